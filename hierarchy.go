package datanodes

import (
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Parent returns the datanode that contains this one, following
// ‹parent›/‹task›/subdatanodes/‹dn›.  The root of a hierarchy has no
// parent, in which case Parent returns (nil, nil).
func (dn *Datanode) Parent() (parent *Datanode, err error) {
	candidate := filepath.Dir(filepath.Dir(filepath.Dir(dn.dir)))
	if candidate == dn.dir || !Exists(candidate) {
		return nil, nil
	}
	return Open(candidate)
}

// Root walks up to the top of the hierarchy.
func (dn *Datanode) Root() (root *Datanode, err error) {
	root = dn
	for {
		var parent *Datanode
		parent, err = root.Parent()
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return
		}
		root = parent
	}
}

// Pseudopath returns the names of the datanodes from the root of the
// hierarchy down to dn, joined by '/'.  Task directories and the
// subdatanodes containers are not part of it.  It is only meant for
// diagnostics and is computed once per handler.
func (dn *Datanode) Pseudopath() string {
	if dn.pseudopath != nil {
		return *dn.pseudopath
	}
	names := []string{dn.Name()}
	node := dn
	for {
		parent, err := node.Parent()
		if err != nil {
			log.Warnf("pseudopath of %s stops at %s: %v", dn.dir, node.dir, err)
			break
		}
		if parent == nil {
			break
		}
		names = append([]string{parent.Name()}, names...)
		node = parent
	}
	pp := strings.Join(names, "/")
	dn.pseudopath = &pp
	return pp
}

func (dn *Datanode) subdatanodesDir(task string) string {
	return filepath.Join(dn.dir, task, SubdatanodesDir)
}

// ListSubdatanodes returns handlers for the subdatanodes created by
// task, sorted by name.  The task must have been run successfully.
func (dn *Datanode) ListSubdatanodes(task string) (subs []*Datanode, err error) {
	_, err = dn.CheckRequiredTasks([]string{task}, true)
	if err != nil {
		return
	}
	container := dn.subdatanodesDir(task)
	if !canstat(container) {
		return
	}
	infos, err := ioutil.ReadDir(container)
	if err != nil {
		return
	}
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		path := filepath.Join(container, info.Name())
		if !Exists(path) {
			log.Debugf("skipping %s: not a datanode", path)
			continue
		}
		sub, err := Open(path)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Name() < subs[j].Name() })
	return
}

// WalkFunc is called by Walk for each datanode visited.  task is the
// task of the parent that created dn, or "" for the starting datanode.
type WalkFunc func(dn *Datanode, task string) error

// Walk visits dn and then, depth first, every subdatanode of every
// successfully completed task.
func (dn *Datanode) Walk(fn WalkFunc) error {
	return dn.walk("", fn)
}

func (dn *Datanode) walk(fromTask string, fn WalkFunc) (err error) {
	err = fn(dn, fromTask)
	if err != nil {
		return
	}
	tasks, err := dn.Tasks()
	if err != nil {
		return
	}
	for _, task := range tasks {
		ok, err := dn.WasRunSuccessfully(task)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		subs, err := dn.ListSubdatanodes(task)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			err = sub.walk(task, fn)
			if err != nil {
				return err
			}
		}
	}
	return
}
