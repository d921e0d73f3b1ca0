package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".moltcourt"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("MOLTCOURT_CONFIG")); explicit != "" {
		return ExpandHome(explicit)
	}
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// HomeDir returns $MOLTCOURT_HOME or the user's home directory.
func HomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("MOLTCOURT_HOME")); h != "" {
		if strings.HasPrefix(h, "~") {
			base, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(base, h[1:]), nil
		}
		return h, nil
	}
	return os.UserHomeDir()
}

// ExpandHome resolves a leading "~" against HomeDir.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults. String values in the file may
// reference process variables as ${NAME}.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Env files first so they can feed both ${NAME} references and overrides.
	LoadEnvFileCandidates()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil // Use defaults if we can't find config path
	}

	data, err := loadResolvedConfig(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Override with environment variables for each group
	groups := []struct {
		prefix string
		spec   any
	}{
		{"MOLTCOURT_DATABASE", &cfg.Database},
		{"MOLTCOURT_ORACLE", &cfg.Oracle},
		{"MOLTCOURT_GATEWAY", &cfg.Gateway},
		{"MOLTCOURT_AUTH", &cfg.Auth},
		{"MOLTCOURT_EVENTS_KAFKA", &cfg.Events.Kafka},
		{"MOLTCOURT_ARCHIVE", &cfg.Archive},
		{"MOLTCOURT_NOTIFY_SLACK", &cfg.Notify.Slack},
		{"MOLTCOURT_LOG", &cfg.Log},
	}
	for _, g := range groups {
		if err := envconfig.Process(g.prefix, g.spec); err != nil {
			return nil, fmt.Errorf("env %s: %w", g.prefix, err)
		}
	}
	applyWellKnownEnv(cfg)
	return cfg, nil
}

// applyWellKnownEnv fills secrets from the conventional vendor variables
// when the config leaves them empty.
func applyWellKnownEnv(cfg *Config) {
	if cfg.Oracle.APIKey == "" {
		var key string
		switch NormalizeProvider(cfg.Oracle.Provider) {
		case "anthropic":
			key = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			key = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			key = os.Getenv("GEMINI_API_KEY")
			if key == "" {
				key = os.Getenv("GOOGLE_API_KEY")
			}
		case "xai":
			key = os.Getenv("XAI_API_KEY")
		case "openrouter":
			key = os.Getenv("OPENROUTER_API_KEY")
		case "deepseek":
			key = os.Getenv("DEEPSEEK_API_KEY")
		case "groq":
			key = os.Getenv("GROQ_API_KEY")
		}
		cfg.Oracle.APIKey = strings.TrimSpace(key)
	}
	if cfg.Database.DSN == "" {
		if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
			cfg.Database.DSN = dsn
			cfg.Database.Driver = "postgres"
		}
	}
}

// NormalizeProvider lowercases a provider id and folds common aliases.
func NormalizeProvider(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	switch id {
	case "claude":
		return "anthropic"
	case "google":
		return "gemini"
	case "grok":
		return "xai"
	}
	return id
}

// Save writes the config to ConfigPath.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// EnsureDir creates path if needed.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

func loadResolvedConfig(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	substituteEnvValues(raw)
	return json.Marshal(raw)
}

func substituteEnvValues(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = substituteEnvValues(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = substituteEnvValues(item)
		}
		return t
	case string:
		return envPattern.ReplaceAllStringFunc(t, func(match string) string {
			parts := envPattern.FindStringSubmatch(match)
			if len(parts) != 2 {
				return match
			}
			if value, ok := os.LookupEnv(parts[1]); ok {
				return value
			}
			return match
		})
	default:
		return v
	}
}
