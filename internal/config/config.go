package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Providers accepted in [extract].provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// Config holds all user-facing configuration for wingstack.
type Config struct {
	Data     DataConfig     `toml:"data"`
	Server   ServerConfig   `toml:"server"`
	Extract  ExtractConfig  `toml:"extract"`
	Scrape   ScrapeConfig   `toml:"scrape"`
	Log      LogConfig      `toml:"log"`
	Airports AirportsConfig `toml:"airports"`
}

type DataConfig struct {
	Dir string `toml:"dir"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type ExtractConfig struct {
	Provider   string        `toml:"provider"`
	Model      string        `toml:"model"`
	MaxTokens  int           `toml:"max_tokens"`
	Timeout    time.Duration `toml:"timeout"`
	FailureLog string        `toml:"failure_log"`
	OllamaURL  string        `toml:"ollama_url"`
	OpenAIURL  string        `toml:"openai_url"`
}

type ScrapeConfig struct {
	RateLimit float64       `toml:"rate_limit"`
	Timeout   time.Duration `toml:"timeout"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type AirportsConfig struct {
	AliasFile string `toml:"alias_file"`
}

// Defaults returns a Config populated with built-in default values.
func Defaults() *Config {
	return &Config{
		Data:   DataConfig{Dir: "data"},
		Server: ServerConfig{Host: "localhost", Port: 8080},
		Extract: ExtractConfig{
			Provider:   ProviderAnthropic,
			Model:      "claude-sonnet-4-20250514",
			MaxTokens:  2048,
			Timeout:    60 * time.Second,
			FailureLog: "extraction_failures.jsonl",
			OllamaURL:  "http://localhost:11434",
		},
		Scrape:   ScrapeConfig{RateLimit: 1.0, Timeout: 30 * time.Second},
		Log:      LogConfig{Level: "info"},
		Airports: AirportsConfig{AliasFile: "airports.toml"},
	}
}

// Load reads a TOML config file. If the file does not exist, built-in
// defaults are returned without error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the rest of the program cannot run with.
func (c *Config) Validate() error {
	switch c.Extract.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("extract.provider %q is not one of anthropic, openai, ollama", c.Extract.Provider)
	}
	if c.Extract.MaxTokens <= 0 {
		return fmt.Errorf("extract.max_tokens must be positive")
	}
	if c.Extract.Timeout <= 0 {
		return fmt.Errorf("extract.timeout must be positive")
	}
	if c.Scrape.RateLimit <= 0 {
		return fmt.Errorf("scrape.rate_limit must be positive")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
