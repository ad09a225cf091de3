package main

import "testing"

func TestRequireZeroOrOneArgs(t *testing.T) {
	if err := requireZeroOrOneArgs(nil, nil); err != nil {
		t.Errorf("expected nil error for 0 args, got %v", err)
	}
	if err := requireZeroOrOneArgs(nil, []string{"dir"}); err != nil {
		t.Errorf("expected nil error for 1 arg, got %v", err)
	}
	if err := requireZeroOrOneArgs(nil, []string{"a", "b"}); err == nil {
		t.Error("expected error for 2 args")
	}
}
