package datanodes

import (
	"fmt"
	"strings"
)

// ValidationError reports an argument of the wrong shape, such as an
// unknown if-exists policy or an empty task name.
type ValidationError struct {
	Arg string
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Arg, e.Msg)
}

// NotFoundError means there is no datanode.json in Dir.
type NotFoundError struct {
	Dir string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("datanode in %s does not exist", e.Dir)
}

type ExistsError struct {
	Dir string
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("cannot create datanode %s: already exists", e.Dir)
}

// ClassMismatchError is returned by class checks.  Class is what is
// stored on disk, Expected is what the caller asked for.
type ClassMismatchError struct {
	Pseudopath string
	Class      string
	Expected   string
}

func (e *ClassMismatchError) Error() string {
	return fmt.Sprintf("datanode %q is of class %q and not of class %q", e.Pseudopath, e.Class, e.Expected)
}

// DependencyError lists the required tasks that were not run
// successfully beforehand.
type DependencyError struct {
	Pseudopath string
	Dir        string
	Missing    []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("task(s) [%s] were not successfully run beforehand on datanode %s located in %s",
		strings.Join(e.Missing, ", "), e.Pseudopath, e.Dir)
}

// ReuseError is returned when a Task is entered or exited out of order.
// A Task can only be used once.
type ReuseError struct {
	Task  string
	State string
}

func (e *ReuseError) Error() string {
	return fmt.Sprintf("task %q is %s; a task handler can only be used once, create a new one", e.Task, e.State)
}
