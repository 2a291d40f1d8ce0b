// Package config loads the daemon's own runtime settings: socket paths,
// bind addresses, the metrics listener, and logging — everything that is
// not part of the persisted server Config document (see internal/protocol).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"

	"github.com/ALinuxPerson/raphy/internal/logging"
)

const (
	// UnixSocketPath is the fixed Unix-domain socket the daemon listens on.
	UnixSocketPath = "/tmp/raphy.sock"

	// DefaultPort is used when neither RAPHY_SERVER_ADDRESS nor a CLI
	// argument supplies a TCP port.
	DefaultPort uint16 = 18000
)

// Settings holds the daemon's ambient configuration.
type Settings struct {
	TCPAddress       string        `mapstructure:"tcp_address"`
	MetricsListenAddr string       `mapstructure:"metrics_listen_addr"`
	Logging          logging.Config `mapstructure:"logging"`
	ShutdownDeadlineSeconds int    `mapstructure:"shutdown_deadline_seconds"`
}

// Load resolves daemon settings from the RAPHY_* environment following
// go-server-3/internal/config's viper pattern: typed defaults, automatic
// env binding, optional config file.
func Load(args []string) (Settings, error) {
	v := viper.New()

	v.SetDefault("tcp_address", defaultTCPAddress(args))
	v.SetDefault("metrics_listen_addr", ":9095")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("shutdown_deadline_seconds", 60)

	v.SetConfigName("raphyd")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.SetEnvPrefix("RAPHY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("failed to read raphyd config file: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("settings unmarshal: %w", err)
	}

	// RAPHY_SERVER_ADDRESS is the authoritative override regardless of a
	// config file, matching spec.md's explicit environment contract.
	if addr, ok := os.LookupEnv("RAPHY_SERVER_ADDRESS"); ok {
		settings.TCPAddress = addr
	}

	return settings, nil
}

// defaultTCPAddress reproduces network.rs's address resolution: bind to
// 0.0.0.0 on the port given as the first program argument, falling back to
// DefaultPort when absent or unparsable.
func defaultTCPAddress(args []string) string {
	port := DefaultPort
	if len(args) > 0 {
		if parsed, err := strconv.ParseUint(args[0], 10, 16); err == nil {
			port = uint16(parsed)
		}
	}
	return fmt.Sprintf("0.0.0.0:%d", port)
}
