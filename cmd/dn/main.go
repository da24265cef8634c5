package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/google/shlex"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	dn "github.com/t7a/datanodes"
)

func init() {
	debug := os.Getenv("DEBUG")
	if debug == "1" {
		log.SetLevel(log.DebugLevel)
	}
	log.SetReportCaller(true)
	formatter := &log.TextFormatter{
		CallerPrettyfier: caller(),
		FieldMap: log.FieldMap{
			log.FieldKeyFile: "caller",
		},
	}
	formatter.TimestampFormat = "15:04:05.999999999"
	log.SetFormatter(formatter)
}

// caller reports the source line of a log entry relative to the
// working directory, tagged with the logging goroutine, e.g.
// `/task.go:187 gid 1`.
func caller() func(*runtime.Frame) (function string, file string) {
	return func(f *runtime.Frame) (function string, file string) {
		p, _ := os.Getwd()
		return "", fmt.Sprintf("%s:%d gid %d", strings.TrimPrefix(f.File, p), f.Line, dn.GetGID())
	}
}

type Opts struct {
	Create  bool
	Info    bool
	Status  bool
	Require bool
	Run     bool
	Ls      bool
	Tree    bool
	Watch   bool
	Parent  string
	Name    string
	Path    string
	Task    string
	Tasks   []string
	Cmd     []string
	Class   string   `docopt:"-c"`
	Policy  string   `docopt:"-x"`
	Keep    bool     `docopt:"-k"`
	Req     []string `docopt:"-r"`
}

func main() {
	// see https://github.com/google/go-cmdtest
	os.Exit(run())
}

func run() (rc int) {

	usage := `dn -- datanode trees

Usage:
  dn create [-c <class>] [-x <policy>] <parent> <name>
  dn info <path>
  dn status <path> <tasks>...
  dn require <path> <tasks>...
  dn run [-k] [-c <class>] [-r <req>]... <path> <task> <cmd>...
  dn ls <path> <task>
  dn tree <path>
  dn watch <path>

Options:
  -h --help     Show this screen.
  --version     Show version.
  -c <class>    Datanode class.
  -x <policy>   What to do if the datanode exists: "raise error", override or skip [default: raise error].
  -k            Keep data from earlier runs of the task.
  -r <req>      Task that must have succeeded before this one runs.
`
	parser := &docopt.Parser{OptionsFirst: false}
	o, err := parser.ParseArgs(usage, os.Args[1:], "0.1")
	if err != nil {
		log.Error(err)
		return 22
	}
	var opts Opts
	err = o.Bind(&opts)
	if err != nil {
		log.Error(err)
		return 22
	}
	log.Debug(opts)

	switch true {
	case opts.Create:
		policy, err := dn.ParseIfExists(opts.Policy)
		if err != nil {
			log.Error(err)
			return 22
		}
		node, err := dn.Create(opts.Parent, opts.Name, opts.Class, policy)
		if err != nil {
			log.Error(err)
			return 42
		}
		if node == nil {
			fmt.Println("skipped")
			return
		}
		fmt.Println(node.Pseudopath())
	case opts.Info:
		node, err := dn.Open(opts.Path)
		if err != nil {
			log.Error(err)
			return 42
		}
		fmt.Printf("name: %s\n", node.Name())
		if node.HasClass() {
			fmt.Printf("class: %s\n", node.Class())
		} else {
			fmt.Println("class: none")
		}
		fmt.Printf("pseudopath: %s\n", node.Pseudopath())
	case opts.Status:
		lines, err := status(opts.Path, opts.Tasks)
		if err != nil {
			log.Error(err)
			return 42
		}
		fmt.Println(strings.Join(lines, "\n"))
	case opts.Require:
		err := require(opts.Path, opts.Tasks)
		if err != nil {
			log.Error(err)
			return 42
		}
	case opts.Run:
		err := runTask(opts)
		if err != nil {
			log.Error(err)
			return 42
		}
		fmt.Printf("%s: success\n", opts.Task)
	case opts.Ls:
		pseudopaths, err := ls(opts.Path, opts.Task)
		if err != nil {
			log.Error(err)
			return 42
		}
		if len(pseudopaths) > 0 {
			fmt.Println(strings.Join(pseudopaths, "\n"))
		}
	case opts.Tree:
		lines, err := tree(opts.Path)
		if err != nil {
			log.Error(err)
			return 42
		}
		fmt.Println(strings.Join(lines, "\n"))
	case opts.Watch:
		err := watch(opts.Path)
		if err != nil {
			log.Error(err)
			return 42
		}
	}
	return 0
}

func status(path string, tasks []string) (lines []string, err error) {
	node, err := dn.Open(path)
	if err != nil {
		return
	}
	for _, task := range tasks {
		st, err := node.ReadTaskStatus(task)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("%s: %s", task, describe(st)))
	}
	return
}

func describe(st *dn.TaskStatus) string {
	switch {
	case st == nil:
		return "not run"
	case st.Success:
		return "success"
	}
	return "failed"
}

func require(path string, tasks []string) (err error) {
	node, err := dn.Open(path)
	if err != nil {
		return
	}
	_, err = node.CheckRequiredTasks(tasks, true)
	return
}

// command returns the argv to execute.  A single word is split like a
// shell would, so `dn run R t "python measure.py -n 5"` works.
func command(words []string) (argv []string, err error) {
	if len(words) == 1 {
		argv, err = shlex.Split(words[0])
		if err != nil {
			return nil, errors.Wrapf(err, "parsing command %q", words[0])
		}
	} else {
		argv = words
	}
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	return
}

// runTask executes an external command as a task.  The command runs in
// the task directory with its output captured in stdout.log and
// stderr.log there.
func runTask(opts Opts) (err error) {
	argv, err := command(opts.Cmd)
	if err != nil {
		return
	}
	node, err := dn.Open(opts.Path)
	if err != nil {
		return
	}
	taskOpts := dn.TaskOptions{
		CheckClass:  opts.Class,
		Requires:    opts.Req,
		KeepOldData: opts.Keep,
	}
	return node.RunTask(opts.Task, taskOpts, func(task *dn.Task) (err error) {
		stdout, err := os.Create(filepath.Join(task.Dir(), "stdout.log"))
		if err != nil {
			return
		}
		defer stdout.Close()
		stderr, err := os.Create(filepath.Join(task.Dir(), "stderr.log"))
		if err != nil {
			return
		}
		defer stderr.Close()

		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Dir = task.Dir()
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		cmd.Env = append(os.Environ(),
			"DATANODE_DIR="+task.Datanode().Dir(),
			"DATANODE_TASK="+task.Name(),
		)
		log.Debugf("running %v in %s", argv, cmd.Dir)
		err = cmd.Run()
		if err != nil {
			return errors.Wrapf(err, "%s", strings.Join(argv, " "))
		}
		return
	})
}

func ls(path, task string) (pseudopaths []string, err error) {
	node, err := dn.Open(path)
	if err != nil {
		return
	}
	subs, err := node.ListSubdatanodes(task)
	if err != nil {
		return
	}
	for _, sub := range subs {
		pseudopaths = append(pseudopaths, sub.Pseudopath())
	}
	return
}

// tree lists every datanode below path with the status of each of its
// tasks.
func tree(path string) (lines []string, err error) {
	node, err := dn.Open(path)
	if err != nil {
		return
	}
	err = node.Walk(func(d *dn.Datanode, _ string) error {
		line := d.Pseudopath()
		if d.HasClass() {
			line += " (" + d.Class() + ")"
		}
		lines = append(lines, line)
		tasks, err := d.Tasks()
		if err != nil {
			return err
		}
		for _, task := range tasks {
			st, err := d.ReadTaskStatus(task)
			if err != nil {
				return err
			}
			lines = append(lines, fmt.Sprintf("  %s: %s", task, describe(st)))
		}
		return nil
	})
	return
}

func watch(path string) (err error) {
	node, err := dn.Open(path)
	if err != nil {
		return
	}
	w, err := dn.Watch(node)
	if err != nil {
		return
	}
	defer w.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	for {
		select {
		case ev := <-w.Events:
			fmt.Printf("%s %s: %s\n", ev.Status.CompletedOn, ev.Task, describe(ev.Status))
		case err := <-w.Errors:
			log.Error(err)
		case <-interrupt:
			return nil
		}
	}
}
