package datanodes

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
)

const (
	MetadataFile = "datanode.json"
	// SubdatanodesDir is the container inside a task directory that
	// holds the task's subdatanodes.
	SubdatanodesDir = "subdatanodes"
	// TimeLayout is the format of datanode_created_on and completed_on.
	TimeLayout = "2006-01-02 15:04:05.000000"
)

// Metadata is the content of datanode.json.  Class is nil for a
// datanode without a class, which is stored as JSON null.
type Metadata struct {
	CreatedOn string  `json:"datanode_created_on"`
	Name      string  `json:"datanode_name"`
	Class     *string `json:"datanode_class"`
}

// Datanode is a handler for a directory that contains a datanode.json
// file.  Handlers are views of the filesystem at the time they were
// opened; computed properties such as the pseudopath are memoized for
// the life of the handler.
type Datanode struct {
	dir        string
	meta       Metadata
	variant    Variant
	pseudopath *string
	tmpdir     string
}

// Exists returns true if dir holds a datanode.
func Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, MetadataFile))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Open loads an existing datanode.  path may be either the datanode
// directory or the path to its datanode.json file.
func Open(path string) (dn *Datanode, err error) {
	defer Return(&err)
	// absolute, so that walking up to the parent never lands on the
	// current directory
	dir, err := filepath.Abs(path)
	Ck(err)
	if filepath.Base(dir) == MetadataFile {
		dir = filepath.Dir(dir)
	}
	if !Exists(dir) {
		return nil, &NotFoundError{Dir: dir}
	}
	buf, err := ioutil.ReadFile(filepath.Join(dir, MetadataFile))
	Ck(err)
	dn = &Datanode{dir: dir, variant: Generic}
	err = json.Unmarshal(buf, &dn.meta)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: malformed %s", dir, MetadataFile)
	}
	log.Debugf("opened datanode %s", dir)
	return
}

// OpenClass opens the datanode at path and fails with a
// ClassMismatchError unless it is of class `class`.
func OpenClass(path, class string) (dn *Datanode, err error) {
	dn, err = Open(path)
	if err != nil {
		return
	}
	_, err = dn.CheckClass(class, true)
	if err != nil {
		return nil, err
	}
	return
}

// Dir returns the datanode directory.
func (dn *Datanode) Dir() string {
	return dn.dir
}

// Name is the last segment of the datanode directory.
func (dn *Datanode) Name() string {
	return filepath.Base(dn.dir)
}

// Class returns the datanode class, or "" if it has none.
func (dn *Datanode) Class() string {
	if dn.meta.Class == nil {
		return ""
	}
	return *dn.meta.Class
}

func (dn *Datanode) HasClass() bool {
	return dn.meta.Class != nil
}

// CreatedOn returns datanode_created_on as it is stored on disk.
func (dn *Datanode) CreatedOn() string {
	return dn.meta.CreatedOn
}

func (dn *Datanode) CreatedTime() (time.Time, error) {
	return time.ParseInLocation(TimeLayout, dn.meta.CreatedOn, time.Local)
}

// Metadata returns a copy of the loaded datanode.json content.
func (dn *Datanode) Metadata() Metadata {
	meta := dn.meta
	if meta.Class != nil {
		class := *meta.Class
		meta.Class = &class
	}
	return meta
}

// Variant returns the handler specialization this handler was opened
// as.
func (dn *Datanode) Variant() Variant {
	return dn.variant
}

// CheckClass compares the datanode class with expected.  An empty
// expected class matches only a datanode whose class is null.  If raise
// is true a mismatch is returned as a ClassMismatchError.
func (dn *Datanode) CheckClass(expected string, raise bool) (ok bool, err error) {
	ok = dn.HasClass() == (expected != "") && dn.Class() == expected
	if !ok && raise {
		return false, &ClassMismatchError{
			Pseudopath: dn.Pseudopath(),
			Class:      dn.Class(),
			Expected:   expected,
		}
	}
	return
}

// TempDir returns a scratch directory associated with this handler.
// It lives outside the datanode tree and is removed by Cleanup, or on a
// best-effort basis once the handler is garbage collected.  Nothing
// stored there counts toward task completion.
func (dn *Datanode) TempDir() (dir string, err error) {
	if dn.tmpdir != "" {
		return dn.tmpdir, nil
	}
	dir, err = ioutil.TempDir("", "datanode-"+dn.Name()+"-")
	if err != nil {
		return "", errors.Wrap(err, "creating temporary directory")
	}
	dn.tmpdir = dir
	runtime.SetFinalizer(dn, (*Datanode).Cleanup)
	return
}

// Cleanup removes the temporary directory, if one was created.
func (dn *Datanode) Cleanup() {
	if dn.tmpdir == "" {
		return
	}
	err := os.RemoveAll(dn.tmpdir)
	if err != nil {
		log.Warnf("removing %s: %v", dn.tmpdir, err)
	}
	dn.tmpdir = ""
	runtime.SetFinalizer(dn, nil)
}

func (dn *Datanode) String() string {
	return dn.Pseudopath()
}

func canstat(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func mkdir(dir string, mode os.FileMode) (err error) {
	if _, err = os.Stat(dir); os.IsNotExist(err) {
		err = os.MkdirAll(dir, mode)
	}
	return
}

// rmtree deletes p whether it is a file, a symlink or a directory
// tree.  A missing p is not an error.
func rmtree(p string) (err error) {
	info, err := os.Lstat(p)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return
	}
	if info.IsDir() {
		return os.RemoveAll(p)
	}
	return os.Remove(p)
}
