package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GlobalConfig is the per-user client state stored in config.json. Sessions
// maps an API base URL to the conversation ask continues on that server.
type GlobalConfig struct {
	APIKey   string            `json:"api_key,omitempty"`
	APIURL   string            `json:"api_url,omitempty"`
	Sessions map[string]string `json:"sessions,omitempty"`
}

func sessionKey(server string) string {
	return strings.TrimRight(server, "/")
}

var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "consultbot"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetConfigPath returns the full path to the config.json file
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads config.json. A missing file yields a nil config.
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// SaveGlobalConfig writes config.json with 0600 permissions.
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// updateGlobalConfig loads config.json, applies fn and writes it back.
func updateGlobalConfig(fn func(*GlobalConfig)) error {
	config, err := LoadGlobalConfig()
	if err != nil {
		return err
	}
	if config == nil {
		config = &GlobalConfig{}
	}
	fn(config)
	return SaveGlobalConfig(config)
}

// CurrentSessionID returns the session remembered for server, if any.
func CurrentSessionID(server string) (string, error) {
	config, err := LoadGlobalConfig()
	if err != nil || config == nil {
		return "", err
	}
	return config.Sessions[sessionKey(server)], nil
}

// RememberSession stores id as the session ask continues on server.
func RememberSession(server, id string) error {
	return updateGlobalConfig(func(c *GlobalConfig) {
		if c.Sessions == nil {
			c.Sessions = map[string]string{}
		}
		c.Sessions[sessionKey(server)] = id
	})
}

// ForgetSession drops the session remembered for server.
func ForgetSession(server string) error {
	return updateGlobalConfig(func(c *GlobalConfig) {
		delete(c.Sessions, sessionKey(server))
		if len(c.Sessions) == 0 {
			c.Sessions = nil
		}
	})
}
