package datanodes

import "testing"

func TestGetGID(t *testing.T) {
	n := GetGID()
	if n == 0 {
		t.Fatalf("oh no n is 0")
	}
	ch := make(chan uint64)
	go func() { ch <- GetGID() }()
	other := <-ch
	tassert(t, other != n, "same gid %d in two goroutines", n)
}
