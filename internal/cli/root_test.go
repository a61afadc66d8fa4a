package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "wardsync", cmd.Use)
	assert.Contains(t, cmd.Long, "queued")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"serve", "drain", "purge", "token", "version"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestTokenSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"set", "show", "clear"} {
		sub, _, err := cmd.Find([]string{"token", name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "", configFlag.DefValue)

	envFlag := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFlag)
	assert.Equal(t, ".env", envFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestPurgeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	purgeCmd, _, err := cmd.Find([]string{"purge"})
	require.NoError(t, err)

	flag := purgeCmd.Flags().Lookup("older-than")
	require.NotNil(t, flag)
	assert.Equal(t, "0s", flag.DefValue)
}

// run executes the root command against a throwaway sqlite file.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("STORAGE_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "error")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion_JSON(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "w.db"), "--format", "json", "version")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got, "version")
	assert.Contains(t, got, "commit")
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "w.db"), "--format", "xml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestMissingExplicitConfig(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "w.db"), "--config", filepath.Join(t.TempDir(), "nope.yaml"), "drain")
	require.Error(t, err)
}

func TestDrain_EmptyQueue(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "w.db"), "--format", "json", "drain")
	require.NoError(t, err)

	var got struct {
		Success int `json:"success"`
		Failed  int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Zero(t, got.Success)
	assert.Zero(t, got.Failed)
}

func TestPurge_Text(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "w.db"), "purge", "--older-than", "48h")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 0 synced record(s) older than 48h0m0s")
}

func TestToken_SetShowClear(t *testing.T) {
	db := filepath.Join(t.TempDir(), "w.db")
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "nurse-7",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	out, err := run(t, db, "token", "set", signed)
	require.NoError(t, err)
	assert.Contains(t, out, "subject: nurse-7")
	assert.Contains(t, out, "expired: false")

	out, err = run(t, db, "--format", "json", "token", "show")
	require.NoError(t, err)
	var info struct {
		Present bool   `json:"present"`
		Subject string `json:"subject"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.True(t, info.Present)
	assert.Equal(t, "nurse-7", info.Subject)

	_, err = run(t, db, "token", "clear")
	require.NoError(t, err)

	out, err = run(t, db, "token", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "no token stored")
}

func TestToken_SetRejectsGarbage(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "w.db"), "token", "set", "not-a-jwt")
	require.Error(t, err)
}
