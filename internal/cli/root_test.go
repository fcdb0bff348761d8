package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "proman", cmd.Use)
	assert.Contains(t, cmd.Long, "[ref:<id>]")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"init"},
		{"project", "add"}, {"project", "list"}, {"project", "show"}, {"project", "update"}, {"project", "delete"},
		{"log", "add"}, {"log", "dates"}, {"log", "show"}, {"log", "edit"}, {"log", "delete-date"},
		{"attach", "add"}, {"attach", "list"}, {"attach", "toggle"}, {"attach", "scope"}, {"attach", "delete"}, {"attach", "broken"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestAliases(t *testing.T) {
	cmd := NewRootCommand()

	for _, path := range [][]string{{"p", "ls"}, {"projects", "rm"}, {"a", "ls"}, {"logs", "dates"}} {
		subCmd, _, err := cmd.Find(path)
		require.NoError(t, err, "alias %v", path)
		assert.NotEqual(t, cmd, subCmd)
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	envFlag := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFlag)
	assert.Equal(t, ".env", envFlag.DefValue)

	for _, name := range []string{"db", "media"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		// Empty means "use the configured value".
		assert.Equal(t, "", flag.DefValue)
	}
}

func TestProjectAddFlags(t *testing.T) {
	cmd := NewRootCommand()
	addCmd, _, err := cmd.Find([]string{"project", "add"})
	require.NoError(t, err)

	for _, name := range []string{"name", "priority", "due", "thumbnail"} {
		assert.NotNil(t, addCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "0", addCmd.Flags().Lookup("priority").DefValue)
}

func TestAttachAddFlags(t *testing.T) {
	cmd := NewRootCommand()
	addCmd, _, err := cmd.Find([]string{"attach", "add"})
	require.NoError(t, err)

	for _, name := range []string{"project", "log", "global"} {
		assert.NotNil(t, addCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "false", addCmd.Flags().Lookup("global").DefValue)
}

func TestParseID(t *testing.T) {
	id, err := parseID("42", "project")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "0", "-3", "1.5"} {
		_, err := parseID(bad, "project")
		require.Error(t, err, bad)
		assert.Equal(t, ExitCommandError, GetExitCode(err), bad)
	}
}
