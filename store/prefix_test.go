package store

import (
	"sort"
	"testing"
)

func TestPrefixSmoke(t *testing.T) {
	var memoryitems = []string{
		"qwerty",
		"zabc",
		"zzed",
	}
	var prefixlists = []struct {
		input  string
		result []string
	}{
		{"", []string{"abc", "zed"}},
		{"a", []string{"abc"}},
		{"b", []string{}},
		{"z", []string{"zed"}},
	}
	m := NewMemory()
	ps := NewWithPrefix(m, "z")

	ps.Put("abc", []byte("text 1"), "text/plain")
	ps.Put("zed", []byte("text 2"), "text/plain")

	// add one to the memory store directly
	m.Put("qwerty", []byte("text 3"), "text/plain")

	for _, test := range prefixlists {
		t.Logf("doing prefix '%s'", test.input)
		ids, err := ps.ListPrefix(test.input)
		if err != nil {
			t.Errorf("Received error %s", err.Error())
		}
		sort.Strings(ids)
		if !equalList(ids, test.result) {
			t.Errorf("Received ids %v", ids)
		}
	}

	ids, err := m.ListPrefix("")
	if err != nil {
		t.Errorf("Received error %s", err.Error())
	}
	sort.Strings(ids)
	if !equalList(ids, memoryitems) {
		t.Errorf("Received ids %v", ids)
	}

	// stat through the prefix finds keys the memory store sees as prefixed
	if _, err := ps.Stat("abc"); err != nil {
		t.Errorf("Stat through prefix: %v", err)
	}
	if _, err := m.Stat("zabc"); err != nil {
		t.Errorf("Stat on underlying store: %v", err)
	}

	// delete through the prefix
	if err := ps.Delete("abc"); err != nil {
		t.Errorf("Delete through prefix: %v", err)
	}
	if _, err := m.Stat("zabc"); err != ErrNotExist {
		t.Errorf("Stat after prefixed delete returned %v", err)
	}
}
