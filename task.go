package datanodes

import (
	"fmt"
	"path/filepath"
	"reflect"
	"runtime/debug"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
)

// TaskOptions configure HandleTask.
type TaskOptions struct {
	// CheckClass, if not empty, must match the datanode class.
	CheckClass string
	// Requires lists tasks that must have succeeded on the same
	// datanode before this one may start.
	Requires []string
	// KeepOldData leaves the contents of a previous run in place
	// instead of wiping the task directory.
	KeepOldData bool
	// Tolerate lists errors which, if returned by the task body, are
	// not considered failures.  Matching uses errors.Is.
	Tolerate []error
	// TolerateIf lists predicates, such as those returned by IsKind,
	// that tolerate any body error they return true for.
	TolerateIf []func(error) bool
}

// IsKind returns a predicate that matches any error errors.As can
// store in a variable of target's type, e.g. IsKind(&os.PathError{}).
func IsKind(target error) func(error) bool {
	typ := reflect.TypeOf(target)
	return func(err error) bool {
		return errors.As(err, reflect.New(typ).Interface())
	}
}

type taskState int

const (
	unopened taskState = iota
	open
	closed
)

func (s taskState) String() string {
	return [...]string{"unopened", "open", "closed"}[s]
}

// Task manages one run of a named task inside a datanode.  Enter
// prepares the task directory and Exit records the outcome in
// datanode_task.json.  A Task is single use.
type Task struct {
	dn    *Datanode
	name  string
	opts  TaskOptions
	state taskState
}

// HandleTask checks the class and required tasks given in opts and
// returns a Task ready to be entered.
func (dn *Datanode) HandleTask(name string, opts TaskOptions) (task *Task, err error) {
	err = validTaskName(name)
	if err != nil {
		return
	}
	if opts.CheckClass != "" {
		_, err = dn.CheckClass(opts.CheckClass, true)
		if err != nil {
			return
		}
	}
	if len(opts.Requires) > 0 {
		_, err = dn.CheckRequiredTasks(opts.Requires, true)
		if err != nil {
			return
		}
	}
	warnUglyPath("task name", name)
	task = &Task{dn: dn, name: name, opts: opts}
	return
}

// RunTask is HandleTask followed by Run.
func (dn *Datanode) RunTask(name string, opts TaskOptions, fn func(*Task) error) (err error) {
	task, err := dn.HandleTask(name, opts)
	if err != nil {
		return
	}
	return task.Run(fn)
}

func (task *Task) Name() string {
	return task.name
}

// Dir is the directory of the task inside its datanode.
func (task *Task) Dir() string {
	return filepath.Join(task.dn.dir, task.name)
}

// Datanode returns the datanode the task runs in.
func (task *Task) Datanode() *Datanode {
	return task.dn
}

// Enter wipes old data, unless KeepOldData is set, and creates the
// task directory.
func (task *Task) Enter() (err error) {
	defer Return(&err)
	if task.state != unopened {
		return &ReuseError{Task: task.name, State: task.state.String()}
	}
	dir := task.Dir()
	if !task.opts.KeepOldData {
		log.Debugf("removing old data in %s", dir)
		err = rmtree(dir)
		Ck(err)
	}
	err = mkdir(dir, 0755)
	Ck(err)
	task.state = open
	return
}

// Exit records the outcome of the task body.  bodyErr is the error
// returned by the body, if any.  The status record is written on every
// call from the open state.  Exit returns bodyErr unless it is
// tolerated, in which case it returns nil; a failure to write the
// record is returned instead, wrapping bodyErr.
func (task *Task) Exit(bodyErr error) (err error) {
	if task.state != open {
		return &ReuseError{Task: task.name, State: task.state.String()}
	}
	task.state = closed

	status := &TaskStatus{
		CompletedOn: timestamp(),
		Success:     bodyErr == nil || task.tolerates(bodyErr),
		TaskName:    task.name,
	}
	if !status.Success {
		status.ExcType = fmt.Sprintf("%T", bodyErr)
		status.ExcValue = bodyErr.Error()
		status.ExcTraceback = fmt.Sprintf("%+v", bodyErr)
		status.TracebackStr = fmt.Sprintf("%s\n%T: %v", debug.Stack(), bodyErr, bodyErr)
	}
	err = writeTaskStatus(task.Dir(), status)
	if err != nil {
		if bodyErr != nil {
			return errors.Wrapf(err, "recording failure of task %s (%v)", task.name, bodyErr)
		}
		return errors.Wrapf(err, "recording task %s", task.name)
	}
	if status.Success {
		if bodyErr != nil {
			log.Debugf("task %s: tolerated %v", task.name, bodyErr)
		}
		return nil
	}
	return bodyErr
}

func (task *Task) tolerates(bodyErr error) bool {
	for _, tol := range task.opts.Tolerate {
		if errors.Is(bodyErr, tol) {
			return true
		}
	}
	for _, tol := range task.opts.TolerateIf {
		if tol(bodyErr) {
			return true
		}
	}
	return false
}

// PanicError wraps a value recovered from a panicking task body so it
// can be recorded like any other failure.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// GoexitError is recorded for a task body that ended its goroutine
// with runtime.Goexit, as t.Fatal does.
type GoexitError struct{}

func (e *GoexitError) Error() string {
	return "runtime.Goexit called in task body"
}

// Run enters the task, calls fn, and exits with fn's error.  If fn
// panics, the panic is recorded as a failure and then re-raised.  A
// body that calls runtime.Goexit is recorded as failed too.
func (task *Task) Run(fn func(*Task) error) (err error) {
	err = task.Enter()
	if err != nil {
		return
	}
	returned := false
	defer func() {
		if returned {
			return
		}
		r := recover()
		var bodyErr error = &GoexitError{}
		if r != nil {
			bodyErr = &PanicError{Value: r}
		}
		exitErr := task.Exit(bodyErr)
		if exitErr != nil {
			log.Errorf("task %s: %v", task.name, exitErr)
		}
		if r != nil {
			panic(r)
		}
	}()
	bodyErr := fn(task)
	returned = true
	return task.Exit(bodyErr)
}

// CreateSubdatanode creates a datanode under the task's subdatanodes
// directory and returns a handler for it.  With Skip, the existing
// subdatanode is returned.
func (task *Task) CreateSubdatanode(name, class string, ifExists IfExists) (sub *Datanode, err error) {
	if task.state != open {
		return nil, errors.Errorf("task %s is %s, cannot create subdatanode %s", task.name, task.state, name)
	}
	parent := task.dn.subdatanodesDir(task.name)
	_, err = Create(parent, name, class, ifExists)
	if err != nil {
		return
	}
	return Open(filepath.Join(parent, name))
}
