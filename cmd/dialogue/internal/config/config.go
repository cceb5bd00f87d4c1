// Package config loads the dialogue CLI configuration.
//
// Configuration lives under os.UserConfigDir()/dialogue/:
//
//	~/Library/Application Support/dialogue/   (macOS)
//	~/.config/dialogue/                       (Linux)
//	%AppData%/dialogue/                       (Windows)
//
// Layout:
//
//	dialogue/
//	├── config.yaml    # credentials and endpoints
//	└── data/          # badger progress database
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

const (
	// appDir is the directory name under os.UserConfigDir().
	appDir = "dialogue"

	configFile = "config.yaml"
	dataDir    = "data"
)

// Config holds credentials, endpoints and local paths.
type Config struct {
	// Dir is the root configuration directory.
	Dir string `yaml:"-"`

	// GeminiAPIKey authenticates generation and speech requests.
	GeminiAPIKey string `yaml:"gemini_api_key,omitempty"`

	// GenerationModel overrides the default generation model.
	GenerationModel string `yaml:"generation_model,omitempty"`

	// TTSModel and TTSVoice override the speech defaults.
	TTSModel string `yaml:"tts_model,omitempty"`
	TTSVoice string `yaml:"tts_voice,omitempty"`

	// VoiceURL is the websocket endpoint of the live voice service.
	VoiceURL string `yaml:"voice_url,omitempty"`

	// VoiceToken is sent as a bearer token when dialing VoiceURL.
	VoiceToken string `yaml:"voice_token,omitempty"`

	// DataDir overrides the default progress database location.
	DataDir string `yaml:"data_dir,omitempty"`
}

// Load reads the configuration from the default location. A missing
// config file yields defaults, not an error.
func Load() (*Config, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine config directory: %w", err)
	}
	return LoadFrom(filepath.Join(base, appDir))
}

// LoadFrom reads the configuration rooted at a specific directory.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{Dir: dir}

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configFile, err)
	}
	cfg.Dir = dir
	return cfg, nil
}

// Save writes the configuration back to its directory, creating it if
// needed.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(filepath.Join(c.Dir, configFile), data, 0o600)
}

// DatabaseDir returns the progress database directory.
func (c *Config) DatabaseDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return filepath.Join(c.Dir, dataDir)
}
