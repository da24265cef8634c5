package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmdtest"
	"github.com/pkg/fileutils"
	dn "github.com/t7a/datanodes"
)

var update = flag.Bool("update", false, "update test files with results")

func TestCLI(t *testing.T) {
	ts, err := cmdtest.Read("testdata")
	if err != nil {
		t.Fatal(err)
	}
	srcdir, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	ts.Setup = func(dir string) (err error) {
		return fileutils.CopyFile("measure.sh", filepath.Join(srcdir, "testdata/measure.sh"))
	}
	ts.Commands["dn"] = cmdtest.InProcessProgram("dn", run)
	ts.Run(t, *update)
}

// test boolean condition
func tassert(t *testing.T, cond bool, txt string, args ...interface{}) {
	t.Helper() // cause file:line info to show caller
	if !cond {
		t.Fatalf(txt, args...)
	}
}

func TestCommand(t *testing.T) {
	argv, err := command([]string{`python measure.py -n 5 --label "device 4"`})
	tassert(t, err == nil, "%v", err)
	expect := "python|measure.py|-n|5|--label|device 4"
	got := strings.Join(argv, "|")
	tassert(t, got == expect, "expected %q got %q", expect, got)

	argv, err = command([]string{"cp", "a b", "c"})
	tassert(t, err == nil, "%v", err)
	tassert(t, len(argv) == 3 && argv[1] == "a b", "argv %q", argv)

	_, err = command([]string{"  "})
	tassert(t, err != nil, "empty command accepted")
}

func TestLsTree(t *testing.T) {
	dir := t.TempDir()
	root, err := dn.Create(dir, "measurements", "measurements_dn", dn.RaiseError)
	tassert(t, err == nil, "%v", err)
	err = root.RunTask("measure_devices", dn.TaskOptions{}, func(task *dn.Task) error {
		for _, name := range []string{"device_2", "device_1"} {
			sub, err := task.CreateSubdatanode(name, "device_dn", dn.RaiseError)
			if err != nil {
				return err
			}
			err = sub.RunTask("measure_device", dn.TaskOptions{}, func(*dn.Task) error { return nil })
			if err != nil {
				return err
			}
		}
		return nil
	})
	tassert(t, err == nil, "%v", err)

	got, err := ls(root.Dir(), "measure_devices")
	tassert(t, err == nil, "%v", err)
	expect := "measurements/device_1 measurements/device_2"
	tassert(t, strings.Join(got, " ") == expect, "expected %q got %q", expect, got)

	lines, err := tree(root.Dir())
	tassert(t, err == nil, "%v", err)
	expect = strings.Join([]string{
		"measurements (measurements_dn)",
		"  measure_devices: success",
		"measurements/device_1 (device_dn)",
		"  measure_device: success",
		"measurements/device_2 (device_dn)",
		"  measure_device: success",
	}, "\n")
	tassert(t, strings.Join(lines, "\n") == expect, "expected\n%s\ngot\n%s", expect, strings.Join(lines, "\n"))

	err = require(root.Dir(), []string{"measure_devices"})
	tassert(t, err == nil, "%v", err)
	err = require(filepath.Join(root.Dir(), "measure_devices", "subdatanodes", "device_1"), []string{"plot"})
	tassert(t, err != nil, "missing task not reported")
	tassert(t, strings.Contains(err.Error(), "measurements/device_1"), "no pseudopath in %q", err.Error())
}
