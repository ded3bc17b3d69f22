package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the data directory.
const FileName = "cartes.yaml"

type Config struct {
	DataDir     string          `yaml:"data_dir"`
	ListenAddr  string          `yaml:"listen_addr"`
	KnowledgeDB string          `yaml:"knowledge_db"`
	Generator   GeneratorConfig `yaml:"generator"`
	Notions     NotionsConfig   `yaml:"notions"`
	Retention   RetentionConfig `yaml:"retention"`
	Print       PrintConfig     `yaml:"print"`
}

type GeneratorConfig struct {
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key,omitempty"`
	CardCount int           `yaml:"card_count"`
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

type NotionsConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// RetentionConfig controls the sweeper that deletes old decks. A zero MaxAge
// keeps decks forever.
type RetentionConfig struct {
	MaxAge   time.Duration `yaml:"max_age"`
	Interval time.Duration `yaml:"interval"`
}

type PrintConfig struct {
	PerPage int    `yaml:"per_page"`
	Layout  string `yaml:"layout"`
	Scheme  string `yaml:"scheme"`
	Theme   string `yaml:"theme"`
}

func Default() Config {
	return Config{
		DataDir:     ".",
		ListenAddr:  ":8080",
		KnowledgeDB: "knowledge.db",
		Generator: GeneratorConfig{
			Model:     "gemini-flash-latest",
			CardCount: 12,
			BatchSize: 6,
			Timeout:   2 * time.Minute,
		},
		Notions: NotionsConfig{
			CacheTTL: 10 * time.Minute,
		},
		Retention: RetentionConfig{
			MaxAge:   90 * 24 * time.Hour,
			Interval: time.Hour,
		},
		Print: PrintConfig{
			PerPage: 4,
			Layout:  "classique",
			Scheme:  "default",
			Theme:   "auto",
		},
	}
}

// Path returns the config file location inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Load reads the config from dataDir. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func Load(dataDir string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(dataDir))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", FileName, err)
		}
	}

	cfg.fillDefaults()
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.KnowledgeDB == "" {
		c.KnowledgeDB = def.KnowledgeDB
	}
	if c.Generator.Model == "" {
		c.Generator.Model = def.Generator.Model
	}
	if c.Generator.CardCount <= 0 {
		c.Generator.CardCount = def.Generator.CardCount
	}
	if c.Generator.BatchSize <= 0 {
		c.Generator.BatchSize = def.Generator.BatchSize
	}
	if c.Generator.Timeout <= 0 {
		c.Generator.Timeout = def.Generator.Timeout
	}
	if c.Notions.CacheTTL <= 0 {
		c.Notions.CacheTTL = def.Notions.CacheTTL
	}
	if c.Retention.Interval <= 0 {
		c.Retention.Interval = def.Retention.Interval
	}
	if c.Print.PerPage <= 0 {
		c.Print.PerPage = def.Print.PerPage
	}
	if c.Print.Layout == "" {
		c.Print.Layout = def.Print.Layout
	}
	if c.Print.Scheme == "" {
		c.Print.Scheme = def.Print.Scheme
	}
	if c.Print.Theme == "" {
		c.Print.Theme = def.Print.Theme
	}
}

// applyEnvOverrides lets secrets and the listen address come from the
// environment. GEMINI_API_KEY wins over GOOGLE_API_KEY.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Generator.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Generator.APIKey = key
	}
	if addr := os.Getenv("CARTES_LISTEN_ADDR"); addr != "" {
		c.ListenAddr = addr
	}
}

// KnowledgePath resolves the knowledge database relative to the data dir.
func (c Config) KnowledgePath() string {
	if filepath.IsAbs(c.KnowledgeDB) {
		return c.KnowledgeDB
	}
	return filepath.Join(c.DataDir, c.KnowledgeDB)
}

// Save writes the config atomically. The API key is never written back.
func Save(cfg Config) error {
	cfgPath := Path(cfg.DataDir)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	cfg.Generator.APIKey = ""
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp := cfgPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, cfgPath)
}
