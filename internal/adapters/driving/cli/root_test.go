package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "quarry", rootCmd.Use)
}

func TestRootCmd_HasConfigFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag, "config flag should exist")
	assert.Equal(t, "c", flag.Shorthand)
}

func TestRootCmd_HasVerboseFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag, "verbose flag should exist")
	assert.Equal(t, "v", flag.Shorthand)
}

func TestNeedsServices(t *testing.T) {
	t.Run("pipeline commands need services", func(t *testing.T) {
		assert.True(t, needsServices(ingestCmd))
		assert.True(t, needsServices(askCmd))
		assert.True(t, needsServices(statusCmd))
	})

	t.Run("version does not", func(t *testing.T) {
		assert.False(t, needsServices(versionCmd))
	})

	t.Run("help and completion do not", func(t *testing.T) {
		assert.False(t, needsServices(&cobra.Command{Use: "help"}))
		assert.False(t, needsServices(&cobra.Command{Use: "completion"}))
	})

	t.Run("completion subcommands do not", func(t *testing.T) {
		parent := &cobra.Command{Use: "completion"}
		child := &cobra.Command{Use: "bash"}
		parent.AddCommand(child)
		assert.False(t, needsServices(child))
	})
}
