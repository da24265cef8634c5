package datanodes

import (
	"io/ioutil"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
)

// TaskEvent reports a status record written for Task.
type TaskEvent struct {
	Task   string
	Status *TaskStatus
}

// Watcher follows the status records of the tasks of one datanode as
// they are written.  The same record may be reported more than once.
type Watcher struct {
	Dn      *Datanode
	Events  chan TaskEvent
	Errors  chan error
	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// Watch starts watching dn and each of its task directories.  New task
// directories are picked up as they appear.
func Watch(dn *Datanode) (w *Watcher, err error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	w, err = startWatch(dn, fsw)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	return
}

func startWatch(dn *Datanode, fsw *fsnotify.Watcher) (w *Watcher, err error) {
	defer Return(&err)
	w = &Watcher{
		Dn:      dn,
		Events:  make(chan TaskEvent),
		Errors:  make(chan error),
		watcher: fsw,
		done:    make(chan struct{}),
	}
	err = w.watcher.Add(dn.dir)
	Ck(err)

	var pending []TaskEvent
	infos, err := ioutil.ReadDir(dn.dir)
	Ck(err)
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		dir := filepath.Join(dn.dir, info.Name())
		err = w.watcher.Add(dir)
		Ck(err)
		ev, ok := w.current(info.Name())
		if ok {
			pending = append(pending, ev)
		}
	}

	w.wg.Add(1)
	go w.loop(pending)
	return
}

// current reads the status record of task, if there is one.
func (w *Watcher) current(task string) (ev TaskEvent, ok bool) {
	status, err := readTaskStatus(filepath.Join(w.Dn.dir, task))
	if err != nil || status == nil {
		return
	}
	return TaskEvent{Task: task, Status: status}, true
}

func (w *Watcher) loop(pending []TaskEvent) {
	defer w.wg.Done()
	for {
		var out chan TaskEvent
		var next TaskEvent
		if len(pending) > 0 {
			out = w.Events
			next = pending[0]
		}
		select {
		case <-w.done:
			return
		case out <- next:
			pending = pending[1:]
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			case <-w.done:
				return
			}
		case fsev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			pending = append(pending, w.handle(fsev)...)
		}
	}
}

func (w *Watcher) handle(fsev fsnotify.Event) (events []TaskEvent) {
	if fsev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	parent := filepath.Dir(fsev.Name)
	base := filepath.Base(fsev.Name)
	switch {
	case parent == w.Dn.dir:
		// a task directory appeared
		if fsev.Op&fsnotify.Create == 0 || !canstat(fsev.Name) {
			return
		}
		err := w.watcher.Add(fsev.Name)
		if err != nil {
			log.Debugf("watching %s: %v", fsev.Name, err)
			return
		}
		// the record may have landed before the watch was added
		ev, ok := w.current(base)
		if ok {
			events = append(events, ev)
		}
	case base == StatusFile && filepath.Dir(parent) == w.Dn.dir:
		ev, ok := w.current(filepath.Base(parent))
		if ok {
			events = append(events, ev)
		}
	}
	return
}

// Close stops the watcher.  Events and Errors are not closed.
func (w *Watcher) Close() (err error) {
	close(w.done)
	err = w.watcher.Close()
	w.wg.Wait()
	return
}
