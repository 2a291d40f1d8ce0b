package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALinuxPerson/raphy/internal/config"
)

func TestLoadAppliesDefaults(t *testing.T) {
	settings, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:18000", settings.TCPAddress)
	assert.Equal(t, ":9095", settings.MetricsListenAddr)
	assert.Equal(t, "info", settings.Logging.Level)
	assert.Equal(t, 60, settings.ShutdownDeadlineSeconds)
}

func TestLoadDerivesPortFromFirstArgument(t *testing.T) {
	settings, err := config.Load([]string{"25565"})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:25565", settings.TCPAddress)
}

func TestLoadIgnoresAnUnparsableFirstArgument(t *testing.T) {
	settings, err := config.Load([]string{"not-a-port"})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:18000", settings.TCPAddress)
}

func TestLoadServerAddressEnvOverridesTheDefault(t *testing.T) {
	t.Setenv("RAPHY_SERVER_ADDRESS", "127.0.0.1:9999")

	settings, err := config.Load([]string{"25565"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", settings.TCPAddress)
}

func TestLoadRejectsAMalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raphyd.json"), []byte("{not valid json"), 0o644))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	_, err = config.Load(nil)
	assert.Error(t, err)
}
