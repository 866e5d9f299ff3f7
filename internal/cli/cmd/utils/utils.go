package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/matjam/livepaper"
	"github.com/tidwall/pretty"
)

func CanonicalPath(path string) string {
	if path == "" {
		return ""
	}

	if path == "~" {
		return os.Getenv("HOME")
	}

	if strings.HasPrefix(path, "~/") {
		homeDir := os.Getenv("HOME")
		return strings.Replace(path, "~", homeDir, 1)
	}

	return path
}

// ColoredJSON renders data as indented JSON with terminal colors.
func ColoredJSON(data any) ([]byte, error) {
	j, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, err
	}
	return pretty.Color(j, nil), nil
}

func PrintJSONColored(data any) {
	j, err := ColoredJSON(data)
	if err != nil {
		log.Errorf("Error marshalling JSON: %v", err)
		return
	}
	log.Info(string(j))
}

// DefaultConfigPath is where InstallDefaultConfig writes to.
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "livepaper", "livepaper.toml")
}

func InstallDefaultConfig() {
	configPath := DefaultConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		log.Warnf("Config file already exists at %v", configPath)
		return
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		log.Fatalf("Error creating config directory: %v", err)
	}

	if err := os.WriteFile(configPath, []byte(livepaper.DefaultConfig), 0644); err != nil {
		log.Fatalf("Error writing config file: %v", err)
	}

	log.Infof("Installed default config file at %v", configPath)
}
