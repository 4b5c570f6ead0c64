package main

import (
	"io"
	"testing"
)

func TestCLIRejectsUnknownFlags(t *testing.T) {
	if code := cli([]string{"-bogus"}, io.Discard, io.Discard); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestEnvDefault(t *testing.T) {
	t.Setenv("WELLSCOPED_TEST_VAR", "")
	if got := envDefault("WELLSCOPED_TEST_VAR", "fallback"); got != "fallback" {
		t.Fatalf("envDefault = %q", got)
	}
	t.Setenv("WELLSCOPED_TEST_VAR", "set")
	if got := envDefault("WELLSCOPED_TEST_VAR", "fallback"); got != "set" {
		t.Fatalf("envDefault = %q", got)
	}
}
