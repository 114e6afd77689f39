package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"fetch", "analyze", "serve", "basemap"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCommand_Use(t *testing.T) {
	assert.Equal(t, "co2scan", rootCmd.Use)
}
