package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"probe", "report", "status", "verify", "archive", "init"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommandFlags(t *testing.T) {
	root := newRootCommand()

	require.NotNil(t, root.PersistentFlags().Lookup("debug"))
	require.NotNil(t, root.PersistentFlags().Lookup("study"))
	assert.True(t, root.SilenceUsage)
}
