// cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/doctrail/internal/config"
	"github.com/xkilldash9x/doctrail/internal/observability"
)

// resetForTest clears package-level command state between tests.
func resetForTest(t *testing.T) {
	t.Helper()

	cfgFile = ""
	osExit = os.Exit
	observability.ResetForTest()
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})
	rootCmd = newRootCmd()
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	cmd := newRootCmd()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestVersionFlag(t *testing.T) {
	resetForTest(t)

	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	resetForTest(t)

	_, err := executeCommand(t,
		"explore", "https://example.com",
		"--config", filepath.Join(t.TempDir(), "no-such-config.yaml"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize configuration")
}

func TestInvalidConfigIsRejected(t *testing.T) {
	resetForTest(t)
	t.Setenv("DOCTRAIL_LLM_API_KEY", "")

	// Google requires an API key, so this config cannot validate.
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: google\n"), 0o600))

	_, err := executeCommand(t, "explore", "https://example.com", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load or validate config")
}

func TestConfigFromContext(t *testing.T) {
	t.Run("missing config", func(t *testing.T) {
		_, err := configFromContext(context.Background())
		require.Error(t, err)
	})

	t.Run("present config", func(t *testing.T) {
		want := config.NewDefaultConfig()
		ctx := context.WithValue(context.Background(), configKey, want)

		got, err := configFromContext(ctx)
		require.NoError(t, err)
		assert.Same(t, want, got)
	})
}

func TestNormalizeTargets(t *testing.T) {
	targets := normalizeTargets([]string{
		"vergabe.example/dashboard",
		"http://plain.example",
		"https://secure.example",
	})
	assert.Equal(t, []string{
		"https://vergabe.example/dashboard",
		"http://plain.example",
		"https://secure.example",
	}, targets)
}

func TestApplyExploreFlags(t *testing.T) {
	resetForTest(t)

	cmd := newExploreCmd()
	require.NoError(t, cmd.Flags().Parse([]string{
		"--output", "links.txt",
		"--format", "json",
		"--max-iterations", "7",
		"--headless=false",
		"--provider", "google",
		"--model", "gemini-2.0-flash",
	}))

	cfg := config.NewDefaultConfig()
	applyExploreFlags(cmd, cfg)

	assert.Equal(t, "links.txt", cfg.Run.Output)
	assert.Equal(t, "json", cfg.Run.Format)
	assert.Equal(t, 7, cfg.Explorer.MaxIterations)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, config.ProviderGoogle, cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
}

func TestApplyExploreFlagsKeepsConfigDefaults(t *testing.T) {
	resetForTest(t)

	cmd := newExploreCmd()
	require.NoError(t, cmd.Flags().Parse(nil))

	cfg := config.NewDefaultConfig()
	want := cfg.Explorer.MaxIterations
	applyExploreFlags(cmd, cfg)

	assert.Equal(t, want, cfg.Explorer.MaxIterations)
	assert.True(t, cfg.Browser.Headless)
}
