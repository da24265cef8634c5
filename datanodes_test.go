package datanodes

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

const testDirPrefix = "datanodes"

// test boolean condition
func tassert(t *testing.T, cond bool, txt string, args ...interface{}) {
	t.Helper() // cause file:line info to show caller
	if !cond {
		t.Fatalf(txt, args...)
	}
}

// setup returns an empty directory to build datanodes in.  With
// DEBUG=1 the directory is left behind for inspection.
func setup(t *testing.T) (dir string) {
	var err error
	if os.Getenv("DEBUG") == "1" {
		dir, err = ioutil.TempDir("", testDirPrefix)
		tassert(t, err == nil, "%v", err)
		fmt.Println(dir)
		// no cleanup
	} else {
		dir = t.TempDir()
		// automatically cleaned up
	}
	return
}

func mkroot(t *testing.T, name, class string) *Datanode {
	t.Helper()
	dn, err := Create(setup(t), name, class, RaiseError)
	tassert(t, err == nil, "Create: %v", err)
	tassert(t, dn != nil, "Create returned nil handler")
	return dn
}

// readJSON loads a JSON object from path into a generic map.
func readJSON(t *testing.T, path string) (m map[string]interface{}) {
	t.Helper()
	buf, err := ioutil.ReadFile(path)
	tassert(t, err == nil, "%v", err)
	err = json.Unmarshal(buf, &m)
	tassert(t, err == nil, "%s: %v", path, err)
	return
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	err := ioutil.WriteFile(path, []byte(content), 0644)
	tassert(t, err == nil, "%v", err)
}

func ls(t *testing.T, dir string) (names []string) {
	t.Helper()
	infos, err := ioutil.ReadDir(dir)
	tassert(t, err == nil, "%v", err)
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func join(elem ...string) string {
	return filepath.Join(elem...)
}
