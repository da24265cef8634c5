package datanodes

import (
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// UglyChars returns the characters in path that are better avoided in
// file and directory names, sorted and without duplicates.  The nice
// set is ASCII letters, digits, '.', '_' and '-'; the separator '/' is
// ignored.
func UglyChars(path string) (ugly []string) {
	seen := make(map[rune]bool)
	for _, r := range path {
		if r == '/' || isNice(r) || seen[r] {
			continue
		}
		seen[r] = true
		ugly = append(ugly, string(r))
	}
	sort.Strings(ugly)
	return
}

func isNice(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z':
		return true
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}

// warnUglyPath logs a warning if path contains ugly characters.  It
// never fails.
func warnUglyPath(what, path string) (warned bool) {
	ugly := UglyChars(path)
	if len(ugly) == 0 {
		return false
	}
	log.WithFields(log.Fields{
		what:    path,
		"chars": strings.Join(quoteAll(ugly), " "),
	}).Warnf("%s contains character(s) better avoided in paths", what)
	return true
}

func quoteAll(in []string) (out []string) {
	for _, s := range in {
		out = append(out, "'"+s+"'")
	}
	return
}
