package datanodes

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
)

// StatusFile is the per-task status record.
const StatusFile = "datanode_task.json"

// TaskStatus is the content of datanode_task.json.  The Exc* fields
// and TracebackStr are only set for unsuccessful tasks.
type TaskStatus struct {
	CompletedOn  string `json:"completed_on"`
	Success      bool   `json:"success"`
	TaskName     string `json:"task_name"`
	ExcType      string `json:"exc_type,omitempty"`
	ExcValue     string `json:"exc_value,omitempty"`
	ExcTraceback string `json:"exc_traceback,omitempty"`
	TracebackStr string `json:"traceback_str,omitempty"`
}

func readTaskStatus(taskDir string) (status *TaskStatus, err error) {
	buf, err := ioutil.ReadFile(filepath.Join(taskDir, StatusFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return
	}
	status = &TaskStatus{}
	err = json.Unmarshal(buf, status)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: malformed %s", taskDir, StatusFile)
	}
	return
}

func writeTaskStatus(taskDir string, status *TaskStatus) (err error) {
	defer Return(&err)
	buf, err := json.MarshalIndent(status, "", "\t")
	Ck(err)
	err = renameio.WriteFile(filepath.Join(taskDir, StatusFile), buf, 0644)
	Ck(err)
	log.Debugf("task %s success %v recorded in %s", status.TaskName, status.Success, taskDir)
	return
}

func validTaskName(task string) error {
	if task == "" {
		return &ValidationError{Arg: "task name", Msg: "empty"}
	}
	if task != filepath.Base(task) || task == "." || task == ".." {
		return &ValidationError{Arg: "task name", Msg: task + ": must be a single path segment"}
	}
	return nil
}

// ReadTaskStatus returns the last recorded status of task, or nil if
// the task was never run to completion.
func (dn *Datanode) ReadTaskStatus(task string) (status *TaskStatus, err error) {
	err = validTaskName(task)
	if err != nil {
		return
	}
	return readTaskStatus(filepath.Join(dn.dir, task))
}

// WasRunSuccessfully reports whether task has a status record saying
// it succeeded.  A missing task is not an error.
func (dn *Datanode) WasRunSuccessfully(task string) (ok bool, err error) {
	status, err := dn.ReadTaskStatus(task)
	if err != nil || status == nil {
		return false, err
	}
	return status.Success, nil
}

// CheckRequiredTasks reports whether every task in tasks was run
// successfully.  If raise is true, missing tasks are returned as a
// DependencyError.
func (dn *Datanode) CheckRequiredTasks(tasks []string, raise bool) (ok bool, err error) {
	var missing []string
	for _, task := range tasks {
		err = validTaskName(task)
		if err != nil {
			return
		}
	}
	for _, task := range tasks {
		var done bool
		done, err = dn.WasRunSuccessfully(task)
		if err != nil {
			return
		}
		if !done {
			missing = append(missing, task)
		}
	}
	ok = len(missing) == 0
	if !ok && raise {
		return false, &DependencyError{
			Pseudopath: dn.Pseudopath(),
			Dir:        dn.dir,
			Missing:    missing,
		}
	}
	return
}

// TaskDir returns the directory of task.  With requireCompleted, the
// task must have been run successfully, which keeps downstream tasks
// from reading unfinished or failed output.
func (dn *Datanode) TaskDir(task string, requireCompleted bool) (dir string, err error) {
	if requireCompleted {
		_, err = dn.CheckRequiredTasks([]string{task}, true)
	} else {
		err = validTaskName(task)
	}
	if err != nil {
		return
	}
	return filepath.Join(dn.dir, task), nil
}

// Tasks lists the tasks of dn that have a status record, sorted.
func (dn *Datanode) Tasks() (tasks []string, err error) {
	infos, err := ioutil.ReadDir(dn.dir)
	if err != nil {
		return
	}
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		if canstat(filepath.Join(dn.dir, info.Name(), StatusFile)) {
			tasks = append(tasks, info.Name())
		}
	}
	sort.Strings(tasks)
	return
}
