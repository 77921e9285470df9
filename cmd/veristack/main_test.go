package main

import (
	"log/slog"
	"testing"
)

func TestBuildRootRegistersCommands(t *testing.T) {
	root := buildRoot()
	want := map[string]bool{"verify": false, "up": false, "api": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("command %q not registered", name)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestVerifyFailsWithMissingConfig(t *testing.T) {
	root := buildRoot()
	root.SetArgs([]string{"up", "--config", "/nonexistent/config.toml"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error for missing config")
	}
}
