package runner

import (
	"context"
	"strings"
	"testing"
)

func TestExec_MissingBinary(t *testing.T) {
	_, _, err := Exec{}.Run(context.Background(), nil, "label-compliance-no-such-binary")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
}

func TestExec_AbsentAbsolutePath(t *testing.T) {
	_, _, err := Exec{}.Run(context.Background(), nil, "/nonexistent/dir/tool")
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
}

func TestExec_Lookup(t *testing.T) {
	var loc Locator = Exec{}
	_, err := loc.Lookup("label-compliance-no-such-binary")
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	got := truncate(strings.Repeat("x", 20), 5)
	if got != "xxxxx...(truncated)" {
		t.Errorf("truncate(long) = %q", got)
	}
}
