package cli

import (
	"io"
	"testing"
)

func newTestCLI() *CLI {
	return New(io.Discard, LogInfo)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newTestCLI().RootCommand()

	want := []string{"stackup", "cutout", "cells", "cache", "serve", "completion"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func TestRootCommandUse(t *testing.T) {
	root := newTestCLI().RootCommand()
	if root.Use != "lamina" {
		t.Errorf("Use = %q, want lamina", root.Use)
	}
	if !root.SilenceUsage {
		t.Error("SilenceUsage should be set")
	}
}

func TestSetLogLevel(t *testing.T) {
	c := newTestCLI()
	c.SetLogLevel(LogDebug)
	if c.Logger.GetLevel() != LogDebug {
		t.Errorf("level = %v, want debug", c.Logger.GetLevel())
	}
}

func TestSplitNets(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"GND", 1},
		{"NET1, NET2,GND", 3},
		{"NET1,,NET2", 2},
		{" , ", 0},
	}
	for _, tc := range cases {
		if got := splitNets(tc.in); len(got) != tc.want {
			t.Errorf("splitNets(%q) = %v, want %d entries", tc.in, got, tc.want)
		}
	}
}
