package cli

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRoot()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := root.Execute()
	return out.String(), err
}

func TestCLI_SiteRoomTariffFlow(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", filepath.Join(t.TempDir(), "rooms.db"))
	t.Setenv("LOG_LEVEL", "error")

	out, err := run(t, "site", "create", "--name", "Center", "--address", "Main st. 1")
	require.NoError(t, err)
	siteID := strings.TrimSpace(out)
	require.Len(t, siteID, 36)

	out, err = run(t, "room", "create", "--site", siteID, "--name", "Karaoke 1", "--category", "VIP", "--capacity", "8")
	require.NoError(t, err)
	require.Len(t, strings.TrimSpace(out), 36)

	_, err = run(t, "room", "create", "--site", siteID, "--name", "Bad", "--category", "penthouse")
	assert.ErrorContains(t, err, "invalid --category")

	out, err = run(t, "room", "list", "--site", siteID)
	require.NoError(t, err)
	assert.Contains(t, out, "Karaoke 1")
	assert.Contains(t, out, "vip")

	out, err = run(t, "tariff", "set", "--category", "vip", "--hourly", "250000", "--deposit-percent", "40")
	require.NoError(t, err)
	assert.Contains(t, out, "vip: 250000/h, deposit 40%")

	out, err = run(t, "user", "register", "--telegram-id", "1001", "--name", "Admin")
	require.NoError(t, err)
	require.Len(t, strings.TrimSpace(out), 36)

	out, err = run(t, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "expired: 0")
}

func TestCLI_Version(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "roomsched "))
}
