package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings holds phishguard runtime configuration.
type Settings struct {
	Assets     AssetsConfig     `yaml:"assets"`
	Models     ModelsConfig     `yaml:"models"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Reputation ReputationConfig `yaml:"reputation"`
	Graph      GraphConfig      `yaml:"graph"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AssetsConfig points at the reference data loaded once at start.
type AssetsConfig struct {
	NGrams    string `yaml:"ngrams"`    // CSV: ngram,count
	TFIDF     string `yaml:"tfidf"`     // JSON export of the fitted TF-IDF vectorizer
	Whitelist string `yaml:"whitelist"` // CSV: rank,domain
}

type ModelsConfig struct {
	SharedLibrary string      `yaml:"shared_library"` // onnxruntime library; empty probes common paths
	URL           ModelConfig `yaml:"url"`
	Message       ModelConfig `yaml:"message"`
	Content       ModelConfig `yaml:"content"`
}

// ModelConfig describes one scikit-learn classifier exported to ONNX.
type ModelConfig struct {
	Path        string `yaml:"path"`
	InputName   string `yaml:"input_name"`   // e.g. "float_input"
	LabelOutput string `yaml:"label_output"` // e.g. "label"
}

type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes"`
	UserAgent      string `yaml:"user_agent"`
	VerifyTLS      bool   `yaml:"verify_tls"`
}

type ReputationConfig struct {
	SafeBrowsing  ServiceConfig `yaml:"safe_browsing"`
	OpenPageRank  ServiceConfig `yaml:"open_pagerank"`
	DNSServer     string        `yaml:"dns_server"` // host:port
	TimeoutSecond int           `yaml:"timeout_seconds"`
}

// ServiceConfig describes an outbound reputation API.
type ServiceConfig struct {
	BaseURL       string  `yaml:"base_url"`
	APIKeyEnv     string  `yaml:"api_key_env"` // environment variable holding the key
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// APIKey resolves the key from the environment.
func (s ServiceConfig) APIKey() string {
	if s.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(s.APIKeyEnv))
}

type GraphConfig struct {
	URI         string `yaml:"uri"` // e.g. "neo4j://localhost:7687"
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
	Database    string `yaml:"database"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // console | json
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSettings(), nil
		}
		return nil, err
	}

	var cfg Settings
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func defaultSettings() *Settings {
	cfg := &Settings{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Settings) {
	if cfg.Assets.NGrams == "" {
		cfg.Assets.NGrams = "assets/ngrams.csv"
	}
	if cfg.Assets.TFIDF == "" {
		cfg.Assets.TFIDF = "models/tfidf.json"
	}
	if cfg.Assets.Whitelist == "" {
		cfg.Assets.Whitelist = "assets/top-1m.csv"
	}

	applyModelDefaults(&cfg.Models.URL, "models/url_extra_trees.onnx")
	applyModelDefaults(&cfg.Models.Message, "models/msgs_extra_trees.onnx")
	applyModelDefaults(&cfg.Models.Content, "models/content_rf.onnx")

	if cfg.Fetch.TimeoutSeconds <= 0 {
		cfg.Fetch.TimeoutSeconds = 20
	}
	if cfg.Fetch.MaxBodyBytes <= 0 {
		cfg.Fetch.MaxBodyBytes = 5 << 20
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "phishguard/1.0"
	}

	if cfg.Reputation.SafeBrowsing.BaseURL == "" {
		cfg.Reputation.SafeBrowsing.BaseURL = "https://safebrowsing.googleapis.com"
	}
	if cfg.Reputation.SafeBrowsing.APIKeyEnv == "" {
		cfg.Reputation.SafeBrowsing.APIKeyEnv = "GOOGLE_API"
	}
	if cfg.Reputation.SafeBrowsing.RatePerSecond <= 0 {
		cfg.Reputation.SafeBrowsing.RatePerSecond = 10
	}
	if cfg.Reputation.OpenPageRank.BaseURL == "" {
		cfg.Reputation.OpenPageRank.BaseURL = "https://openpagerank.com"
	}
	if cfg.Reputation.OpenPageRank.APIKeyEnv == "" {
		cfg.Reputation.OpenPageRank.APIKeyEnv = "OPENPAGERANK_API"
	}
	if cfg.Reputation.OpenPageRank.RatePerSecond <= 0 {
		cfg.Reputation.OpenPageRank.RatePerSecond = 5
	}
	if cfg.Reputation.DNSServer == "" {
		cfg.Reputation.DNSServer = "8.8.8.8:53"
	}
	if cfg.Reputation.TimeoutSecond <= 0 {
		cfg.Reputation.TimeoutSecond = 15
	}

	if cfg.Graph.Username == "" {
		cfg.Graph.Username = "neo4j"
	}
	if cfg.Graph.PasswordEnv == "" {
		cfg.Graph.PasswordEnv = "NEO4J_PASSWORD"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func applyModelDefaults(m *ModelConfig, path string) {
	if m.Path == "" {
		m.Path = path
	}
	if m.InputName == "" {
		m.InputName = "float_input"
	}
	if m.LabelOutput == "" {
		m.LabelOutput = "label"
	}
}
