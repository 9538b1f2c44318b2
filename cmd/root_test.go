package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/kolscout/internal/app"
	"github.com/JakeFAU/kolscout/internal/config"
	"github.com/JakeFAU/kolscout/internal/contact"
	"github.com/JakeFAU/kolscout/internal/scout"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kolscout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

const quietConfig = "logging:\n  development: false\n  level: error\n"

func TestExtractArgs(t *testing.T) {
	cfgPath := writeConfig(t, quietConfig)
	out, err := execute(t, "", "--config", cfgPath, "extract", "WA 0812 3456 7890", "no contact here")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var first, second contact.ContactInfo
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	require.Equal(t, "6281234567890", first.Phone)
	require.Equal(t, contact.ContactInfo{}, second)
}

func TestExtractStdin(t *testing.T) {
	cfgPath := writeConfig(t, quietConfig)
	out, err := execute(t, "mail: Biz@Glow.id\n\n", "--config", cfgPath, "extract")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var first contact.ContactInfo
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "biz@glow.id", first.Email)
	require.JSONEq(t, `{"email":"","phone":""}`, lines[1])
}

func TestDedupeMemoryBackend(t *testing.T) {
	cfgPath := writeConfig(t, quietConfig)
	out, err := execute(t, "", "--config", cfgPath, "dedupe", "--scope", "global", "--dry-run")
	require.NoError(t, err)

	var res scout.DedupeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, scout.DedupeGlobal, res.Scope)
	require.True(t, res.DryRun)
	require.Zero(t, res.Total)
}

func TestDedupeRejectsUnknownScope(t *testing.T) {
	cfgPath := writeConfig(t, quietConfig)
	_, err := execute(t, "", "--config", cfgPath, "dedupe", "--scope", "planet")
	require.ErrorContains(t, err, "unknown dedupe scope")
}

func TestMigrateRequiresPostgres(t *testing.T) {
	cfgPath := writeConfig(t, quietConfig)
	_, err := execute(t, "", "--config", cfgPath, "migrate")
	require.ErrorContains(t, err, "db.backend=postgres")
}

func TestInvalidConfigFails(t *testing.T) {
	cfgPath := writeConfig(t, "scout:\n  workers: 0\n")
	_, err := execute(t, "", "--config", cfgPath, "extract", "x")
	require.ErrorContains(t, err, "scout.workers")
}

// Not parallel: swaps the package-level factory.
func TestServeReportsInitFailure(t *testing.T) {
	orig := newApp
	t.Cleanup(func() { newApp = orig })
	newApp = func(context.Context, config.Config, *zap.Logger) (*app.App, error) {
		return nil, errors.New("apify down")
	}

	cfgPath := writeConfig(t, quietConfig)
	_, err := execute(t, "", "--config", cfgPath, "serve")
	require.ErrorContains(t, err, "apify down")
}
