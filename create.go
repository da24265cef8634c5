package datanodes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
)

// IfExists selects what Create does when the datanode is already there.
type IfExists int

const (
	// RaiseError fails with an ExistsError and leaves the datanode alone.
	RaiseError IfExists = iota
	// Override deletes the existing datanode and all its contents.
	Override
	// Skip does nothing; Create returns a nil handler.
	Skip
)

var ifExistsNames = map[IfExists]string{
	RaiseError: "raise error",
	Override:   "override",
	Skip:       "skip",
}

func (ie IfExists) String() string {
	name, ok := ifExistsNames[ie]
	if !ok {
		return fmt.Sprintf("IfExists(%d)", int(ie))
	}
	return name
}

func (ie IfExists) valid() bool {
	_, ok := ifExistsNames[ie]
	return ok
}

// ParseIfExists converts "raise error", "override" or "skip".
func ParseIfExists(s string) (ie IfExists, err error) {
	for ie, name := range ifExistsNames {
		if name == s {
			return ie, nil
		}
	}
	return RaiseError, &ValidationError{
		Arg: "if_exists",
		Msg: fmt.Sprintf(`must be one of "raise error", "override", "skip", received %q`, s),
	}
}

// Create makes the datanode parentDir/name, writes its datanode.json,
// and returns a handler for it.  class may be empty for a datanode
// without a class.  With Skip, an existing datanode yields (nil, nil).
func Create(parentDir, name, class string, ifExists IfExists) (dn *Datanode, err error) {
	defer Return(&err)

	if !ifExists.valid() {
		return nil, &ValidationError{Arg: "if_exists", Msg: fmt.Sprintf("unsupported value %d", int(ifExists))}
	}
	if name == "" {
		return nil, &ValidationError{Arg: "datanode name", Msg: "empty"}
	}
	dir := filepath.Join(parentDir, name)

	if Exists(dir) {
		switch ifExists {
		case RaiseError:
			return nil, &ExistsError{Dir: dir}
		case Override:
			log.Debugf("overriding datanode %s", dir)
			err = rmtree(dir)
			Ck(err)
		case Skip:
			log.Debugf("datanode %s exists, skipping", dir)
			return nil, nil
		}
	}

	warnUglyPath("datanode path", dir)

	// a leftover directory that is not a datanode is never clobbered
	if canstat(dir) {
		return nil, &ExistsError{Dir: dir}
	}
	err = os.MkdirAll(dir, 0755)
	Ck(err)

	meta := Metadata{
		CreatedOn: timestamp(),
		Name:      name,
	}
	if class != "" {
		meta.Class = &class
	}
	buf, err := json.MarshalIndent(meta, "", "\t")
	Ck(err)
	err = renameio.WriteFile(filepath.Join(dir, MetadataFile), buf, 0644)
	Ck(err)
	log.Debugf("created datanode %s class %q", dir, class)

	return Open(dir)
}

func timestamp() string {
	return time.Now().Format(TimeLayout)
}
