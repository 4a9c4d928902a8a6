package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Getenv reads a named environment variable, returning the documented
// default when it is unset or empty. It never fails.
func Getenv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// Load reads the config file, applies environment overrides, and returns a
// merged Config. A missing file is normal and produces defaults plus
// environment only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// ResolveDataDir returns the agentkit data directory, honoring
// AGENTKIT_DATA_DIR and falling back to ~/.agentkit.
func ResolveDataDir() (string, error) {
	if dir := os.Getenv("AGENTKIT_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".agentkit"), nil
}

// ConfigPath returns the path of the optional YAML config file inside the
// data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// applyDefaults fills zero-value fields after a YAML unmarshal so that a
// sparse file does not wipe out documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.MCP.URL == "" {
		cfg.MCP.URL = DefaultMCPURL
	}
	if cfg.MCP.Timeout == 0 {
		cfg.MCP.Timeout = 30 * time.Second
	}
	if cfg.Knowledge.Path == "" {
		cfg.Knowledge.Path = DefaultKnowledgePath
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "local"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "doubao-seed-1-6"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// applyEnvOverrides reads environment variables and overrides config values.
// UNISAT_MCP_URL and BRC20_KB_PATH keep the names the Python agent kit used
// so existing deployments carry over unchanged.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("UNISAT_MCP_URL"); v != "" {
		cfg.MCP.URL = v
	}
	if v := os.Getenv("BRC20_KB_PATH"); v != "" {
		cfg.Knowledge.Path = v
	}
	if v := os.Getenv("AGENTKIT_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("AGENTKIT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("AGENTKIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("AGENTKIT_SESSION_BACKEND"); v != "" {
		cfg.Session.Backend = v
	}
	if v := os.Getenv("AGENTKIT_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("AGENTKIT_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	} else if v := os.Getenv("ARK_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("AGENTKIT_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
}
