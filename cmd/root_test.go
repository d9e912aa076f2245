package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"serve", "area", "stats", "legend", "import", "imports"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "londonmap", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestAreaCommand_Flags(t *testing.T) {
	for _, name := range []string{"year", "type", "size"} {
		assert.NotNil(t, areaCmd.Flags().Lookup(name), "area should have --%s flag", name)
	}
	assert.Equal(t, "all", areaCmd.Flags().Lookup("type").DefValue)
}

func TestImportCommand_Flags(t *testing.T) {
	for _, name := range []string{"format", "sheet", "driver", "dsn", "replace"} {
		assert.NotNil(t, importCmd.Flags().Lookup(name), "import should have --%s flag", name)
	}
	assert.Equal(t, "20", importsCmd.Flags().Lookup("limit").DefValue)
}
