// Package config loads the station list and runtime settings.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bysykkel/bysykkel/internal/gbfs"
)

// ErrNoStations is returned when the stations file has no "stations" key.
var ErrNoStations = errors.New(`stations file has no "stations" list`)

// Stations is the operator's list of station display names, in file order.
type Stations []string

type stationsFile struct {
	Stations *[]string `json:"stations" yaml:"stations"`
}

// LoadStations reads the stations file at path. JSON and YAML are both
// accepted: {"stations": ["Sentrum"]} or "stations: [Sentrum]". Files named
// *.yaml or *.yml are always read as YAML.
func LoadStations(path string) (Stations, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stations file: %w", err)
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return decodeStations(raw, yaml.Unmarshal)
	}
	return ParseStations(raw)
}

// ParseStations decodes the contents of a stations file. A document whose
// first non-space byte is '{' is read as JSON, anything else as YAML.
func ParseStations(raw []byte) (Stations, error) {
	if isJSONObject(raw) {
		return decodeStations(raw, json.Unmarshal)
	}
	return decodeStations(raw, yaml.Unmarshal)
}

func decodeStations(raw []byte, unmarshal func([]byte, any) error) (Stations, error) {
	var file stationsFile
	if err := unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse stations file: %w", err)
	}
	if file.Stations == nil {
		return nil, ErrNoStations
	}
	return Stations(*file.Stations), nil
}

func isJSONObject(raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Settings holds runtime configuration.
type Settings struct {
	StationsFile     string
	InformationURL   string
	StatusURL        string
	ClientIdentifier string
	Timeout          time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string

	Environment  string
	OTelEnabled  bool
	OTLPEndpoint string
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv creates Settings from environment variables.
func FromEnv() Settings {
	timeout, err := time.ParseDuration(getEnvOrDefault("BYSYKKEL_TIMEOUT", "10s"))
	if err != nil {
		timeout = 10 * time.Second
	}
	otelEnabled, _ := strconv.ParseBool(getEnvOrDefault("OTEL_ENABLED", "false"))

	return Settings{
		StationsFile:     getEnvOrDefault("BYSYKKEL_CONFIG", "config.json"),
		InformationURL:   getEnvOrDefault("BYSYKKEL_INFORMATION_URL", gbfs.DefaultInformationURL),
		StatusURL:        getEnvOrDefault("BYSYKKEL_STATUS_URL", gbfs.DefaultStatusURL),
		ClientIdentifier: os.Getenv("BYSYKKEL_CLIENT_IDENTIFIER"),
		Timeout:          timeout,
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        getEnvOrDefault("LOG_FORMAT", "console"),
		LogFile:          os.Getenv("LOG_FILE"),
		Environment:      getEnvOrDefault("APP_ENV", "development"),
		OTelEnabled:      otelEnabled,
		OTLPEndpoint:     getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
