package config

import (
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

var current atomic.Pointer[Config]

var (
	onReloadMu        sync.Mutex
	onReloadCallbacks []func(*Config)
)

// Get returns the current in-memory config (hot-reloaded when the file changes).
func Get() *Config { return current.Load() }

// Set sets the current in-memory config. Used at startup and by the file watcher.
func Set(c *Config) {
	if c != nil {
		current.Store(c)
	}
}

// RegisterOnReload registers a callback that runs after config is hot-reloaded.
func RegisterOnReload(fn func(*Config)) {
	onReloadMu.Lock()
	defer onReloadMu.Unlock()
	onReloadCallbacks = append(onReloadCallbacks, fn)
}

func notifyReload(cfg *Config) {
	onReloadMu.Lock()
	cb := make([]func(*Config), len(onReloadCallbacks))
	copy(cb, onReloadCallbacks)
	onReloadMu.Unlock()
	for _, fn := range cb {
		fn(cfg)
	}
}

//go:embed config.example.yaml
var exampleConfigBytes []byte

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyLoadDefaults(&cfg)
	return &cfg, nil
}

// DefaultConfig returns the built-in defaults used when no config file exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyLoadDefaults(cfg)
	return cfg
}

func applyLoadDefaults(cfg *Config) {
	if cfg.Coordinator.Port <= 0 {
		cfg.Coordinator.Port = 19400
	}
	if cfg.Agent.CoordinatorURL == "" {
		cfg.Agent.CoordinatorURL = fmt.Sprintf("ws://localhost:%d/ws", cfg.Coordinator.Port)
	}
	if cfg.Agent.TypingMinMs <= 0 {
		cfg.Agent.TypingMinMs = 30
	}
	if cfg.Agent.TypingMaxMs <= cfg.Agent.TypingMinMs {
		cfg.Agent.TypingMaxMs = 90
	}
	if cfg.Workflow.MaxBatchSize <= 0 {
		cfg.Workflow.MaxBatchSize = 150
	}
	if cfg.Workflow.SendDelayMinMs <= 0 {
		cfg.Workflow.SendDelayMinMs = 3000
	}
	if cfg.Workflow.SendDelayMaxMs <= cfg.Workflow.SendDelayMinMs {
		cfg.Workflow.SendDelayMaxMs = 8000
	}
}

func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// ResolveHome returns the LEADBRIDGE_HOME directory.
// Priority: LEADBRIDGE_HOME env > ~/.leadbridge/
func ResolveHome() string {
	if home := os.Getenv("LEADBRIDGE_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".leadbridge"
	}
	return filepath.Join(userHome, ".leadbridge")
}

// ResolveConfigPath finds the config file.
// Priority: --config flag > LEADBRIDGE_HOME/config.yaml
func ResolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return filepath.Join(ResolveHome(), "config.yaml")
}

// Path returns the process-wide config file path (ResolveConfigPath("")).
func Path() string {
	return ResolveConfigPath("")
}

// GenerateToken returns a random hex token (32 bytes = 64 chars) for relay auth.
func GenerateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "fallback-token-please-set-coordinator-auth-token-in-config"
	}
	return hex.EncodeToString(b)
}

// CreateFromExample writes the embedded config.example.yaml to targetPath with
// the token placeholder replaced by a generated token.
func CreateFromExample(targetPath string) error {
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	token := GenerateToken()
	content := strings.ReplaceAll(string(exampleConfigBytes), "${LEADBRIDGE_TOKEN}", token)
	if err := os.WriteFile(targetPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
