package main

import (
	"io"
	"testing"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "probe"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Expected %s subcommand, got %v (%v)", name, cmd, err)
		}
	}
}

func TestProbeRequiresURL(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"probe"})

	if err := root.Execute(); err == nil {
		t.Error("Expected an error when no url is given")
	}
}
