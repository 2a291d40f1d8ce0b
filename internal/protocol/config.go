package protocol

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the persisted server configuration document: everything the
// supervisor needs to spawn the Java server process. It is the daemon's
// only on-disk state besides the Unix socket file.
type Config struct {
	JavaPath       JavaPath  `json:"java_path"`
	ServerJarPath  string    `json:"server_jar_path"`
	JavaArguments  Arguments `json:"java_arguments"`
	ServerArguments Arguments `json:"server_arguments"`
	User           User      `json:"user"`
}

// ResolvedConfig is Config with every variant resolved to a concrete value,
// ready to hand to exec.Command.
type ResolvedConfig struct {
	JavaPath        string
	ServerJarPath   string
	JavaArguments   []string
	ServerArguments []string
	User            string // "" means the current user
}

// ConfigMask records which branch of each variant was active in a Config,
// separately from the resolved value, so a UI round-trips the user's
// AutoDetect/Custom and Parsed/Manual choices without losing them.
type ConfigMask struct {
	JavaPath        JavaPathKind
	JavaArguments   ArgumentsKind
	ServerArguments ArgumentsKind
	User            UserKind
}

// Resolve produces both the fully resolved view used to spawn the process
// and the mask describing which variant branches were active.
func (c Config) Resolve() (ResolvedConfig, ConfigMask, error) {
	javaPath, err := c.JavaPath.Resolve()
	if err != nil {
		return ResolvedConfig{}, ConfigMask{}, fmt.Errorf("failed to get the java path: %w", err)
	}

	javaArgs, err := c.JavaArguments.Resolve()
	if err != nil {
		return ResolvedConfig{}, ConfigMask{}, fmt.Errorf("failed to get the java arguments: %w", err)
	}

	serverArgs, err := c.ServerArguments.Resolve()
	if err != nil {
		return ResolvedConfig{}, ConfigMask{}, fmt.Errorf("failed to get the server arguments: %w", err)
	}

	resolved := ResolvedConfig{
		JavaPath:        javaPath,
		ServerJarPath:   c.ServerJarPath,
		JavaArguments:   javaArgs,
		ServerArguments: serverArgs,
		User:            c.User.Resolve(),
	}
	mask := ConfigMask{
		JavaPath:        c.JavaPath.Kind,
		JavaArguments:   c.JavaArguments.Kind,
		ServerArguments: c.ServerArguments.Kind,
		User:            c.User.Kind,
	}
	return resolved, mask, nil
}

const (
	configEnvVar     = "RAPHY_CONFIG_PATH"
	configDirName    = "ALinuxPerson/raphy"
	configFileName   = "config.json"
)

// ResolveConfigPath implements spec.md §6's search order: RAPHY_CONFIG_PATH
// if set, else the per-user config directory, else beside the current
// working directory.
func ResolveConfigPath() (string, error) {
	if path, ok := os.LookupEnv(configEnvVar); ok && path != "" {
		return path, nil
	}

	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, configDirName, configFileName), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine a fallback config path: %w", err)
	}
	return filepath.Join(cwd, configFileName), nil
}

// LoadConfig reads the persisted Config from path. A missing file means "no
// configuration yet" and is reported via ok=false with a nil error, not an
// error — callers treat it as a normal startup state.
func LoadConfig(path string) (cfg Config, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, false, nil
		}
		return Config{}, false, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return cfg, true, nil
}

// SaveConfig persists cfg as JSON at path, creating parent directories as
// needed. Persistence failures are reported to the caller, which treats
// them as best-effort (logged, not fatal) per spec.md §4.5.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %q: %w", path, err)
	}
	return nil
}
