// Package config loads the settings shared by the backup and restore
// subcommands from an optional YAML file, with environment variables filling
// only the fields the file left unset (file values win over env).
// Grounded on the teacher pack's use of gopkg.in/yaml.v3 for config
// loading (vjache-cie's cmd/cie).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a solrcopy config file.
type File struct {
	URL        string `yaml:"url"`
	Core       string `yaml:"core"`
	Dir        string `yaml:"dir"`
	Timeout    int    `yaml:"timeout"`
	Retries    int    `yaml:"retries"`
	Readers    int    `yaml:"readers"`
	Writers    int    `yaml:"writers"`
	BasicUser  string `yaml:"basic_user"`
	BasicPass  string `yaml:"basic_pass"`
}

const (
	EnvURL     = "SOLR_COPY_URL"
	EnvDir     = "SOLR_COPY_DIR"
	EnvTimeout = "SOLR_COPY_TIMEOUT"
	EnvRetries = "SOLR_COPY_RETRIES"
)

// Load reads path, if non-empty, and returns its parsed contents. A path
// that does not exist is a configuration error, not silently ignored;
// callers that want an optional file should check os.Stat first.
func Load(path string) (File, error) {
	var f File
	if path == "" {
		return f, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return f, nil
}

// ApplyEnv overlays recognized SOLR_COPY_* environment variables onto f,
// only where f's file-derived value is still the zero value, so flags and
// file values set explicitly are never clobbered by a stray env var.
func (f File) ApplyEnv() File {
	if f.URL == "" {
		f.URL = os.Getenv(EnvURL)
	}
	if f.Dir == "" {
		f.Dir = os.Getenv(EnvDir)
	}
	if f.Timeout == 0 {
		f.Timeout = envInt(EnvTimeout)
	}
	if f.Retries == 0 {
		f.Retries = envInt(EnvRetries)
	}
	return f
}

func envInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0
	}
	return n
}
