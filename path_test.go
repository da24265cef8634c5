package datanodes

import (
	"strings"
	"testing"
)

func TestUglyChars(t *testing.T) {
	cases := []struct {
		path   string
		expect string
	}{
		{"measurements/device_1/data-2.csv", ""},
		{"/abs/path/OK.json", ""},
		{"has space", " "},
		{"a b:c d", " :"},
		{"résumé", "é"},
		{"x?y*z?", "*?"},
	}
	for _, c := range cases {
		got := strings.Join(UglyChars(c.path), "")
		tassert(t, got == c.expect, "%q: expected %q got %q", c.path, c.expect, got)
	}
}

func TestWarnUglyPath(t *testing.T) {
	tassert(t, !warnUglyPath("task name", "fine_name"), "warned on a nice name")
	tassert(t, warnUglyPath("task name", "not fine"), "no warning on an ugly name")
}
