package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/imdbload/internal/ui"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

func TestCommands_RejectPositionalArgs(t *testing.T) {
	for _, cmd := range []*cobra.Command{loadCmd, serveCmd, loadgenCmd, healthCmd, schemaInitCmd, schemaDropCmd} {
		t.Run(cmd.Name(), func(t *testing.T) {
			err := cmd.Args(cmd, []string{"extra"})
			require.Error(t, err)
			assert.Equal(t, imdbload.ExitUsageError, imdbload.ExitCodeForError(err), "error: %v", err)
		})
	}
}

func TestCommands_Registered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"load", "schema", "serve", "loadgen", "health", "version"} {
		assert.True(t, names[want], "command %q not registered", want)
	}
}

func TestLoadCmd_Flags(t *testing.T) {
	for _, name := range []string{"connection", "host", "schema", "data-dir", "only", "commit", "batch-small", "batch-medium", "diagnostics", "timeout"} {
		assert.NotNil(t, loadCmd.Flags().Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, "H", loadCmd.Flags().Lookup("host").Shorthand)
}

func TestServeCmd_Flags(t *testing.T) {
	assert.Equal(t, defaultServeAddr, serveCmd.Flags().Lookup("addr").DefValue)
	assert.NotNil(t, serveCmd.Flags().Lookup("redis-url"))
	assert.NotNil(t, serveCmd.Flags().Lookup("log-level"))
}

func TestLoadgenCmd_Defaults(t *testing.T) {
	assert.Equal(t, "http://localhost:8000", loadgenCmd.Flags().Lookup("host").DefValue)
	assert.Equal(t, "50", loadgenCmd.Flags().Lookup("batch-size").DefValue)
	assert.Equal(t, "10", loadgenCmd.Flags().Lookup("users").DefValue)
}

func TestSelectApprover(t *testing.T) {
	a, err := selectApprover(true, false)
	require.NoError(t, err)
	assert.IsType(t, &ui.ForcedApprover{}, a)

	a, err = selectApprover(false, true)
	require.NoError(t, err)
	assert.IsType(t, &ui.InteractiveApprover{}, a)

	_, err = selectApprover(false, false)
	require.ErrorIs(t, err, errDropNotApproved)
	assert.Contains(t, err.Error(), "--force")
}

func TestExitCode_UnknownFlag(t *testing.T) {
	err := loadCmd.ParseFlags([]string{"--no-such-flag"})
	require.Error(t, err)
	assert.Equal(t, imdbload.ExitUsageError, imdbload.ExitCodeForError(err))
}
