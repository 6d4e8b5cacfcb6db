package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	ENV_PREFIX          = "BOOKSTORE_"
	DEFAULT_CONFIG_FILE = "bookstore.yaml"
)

const (
	BackendMongo   = "mongo"
	BackendElastic = "elastic"
	BackendMemory  = "memory"
)

type MongoConfig struct {
	URI        string `koanf:"uri"`
	Database   string `koanf:"database"`
	Collection string `koanf:"collection"`
}

type ElasticConfig struct {
	URL   string `koanf:"url"`
	Index string `koanf:"index"`
	Sniff bool   `koanf:"sniff"`
}

type RedisConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Config struct {
	Backend string        `koanf:"backend"`
	Output  string        `koanf:"output"`
	Seed    bool          `koanf:"seed"`
	Mongo   MongoConfig   `koanf:"mongo"`
	Elastic ElasticConfig `koanf:"elastic"`
	Redis   RedisConfig   `koanf:"redis"`
	HTTP    HTTPConfig    `koanf:"http"`
	Log     LogConfig     `koanf:"log"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"backend":          BackendMongo,
		"output":           "table",
		"seed":             false,
		"mongo.uri":        "mongodb://localhost:27017",
		"mongo.database":   "plp_bookstore",
		"mongo.collection": "books",
		"elastic.url":      "http://localhost:9200",
		"elastic.index":    "books",
		"elastic.sniff":    false,
		"redis.enabled":    false,
		"redis.addr":       "localhost:6379",
		"redis.password":   "",
		"redis.db":         0,
		"redis.ttl":        "5m",
		"http.addr":        ":8080",
		"log.level":        "INFO",
		"log.format":       "text",
	}
}

// Load reads configuration with precedence, lowest first: defaults, the YAML
// file, BOOKSTORE_* environment variables, then flags that were set.
// BOOKSTORE_MONGO_URI maps to mongo.uri and --log-level to log.level.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configFile == "" {
		if _, err := os.Stat(DEFAULT_CONFIG_FILE); err == nil {
			configFile = DEFAULT_CONFIG_FILE
		}
	}
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	if err := k.Load(env.Provider(ENV_PREFIX, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, ENV_PREFIX)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// Only flags naming a configuration key take part; command flags such
	// as --page stay with their command.
	if flags != nil {
		known := defaults()
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key := strings.ReplaceAll(f.Name, "-", ".")
			if _, ok := known[key]; !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) Validate() error {
	switch cfg.Backend {
	case BackendMongo, BackendElastic, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", cfg.Backend, BackendMongo, BackendElastic, BackendMemory)
	}
	switch cfg.Output {
	case "table", "json":
	default:
		return fmt.Errorf("unknown output format %q", cfg.Output)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", cfg.Log.Format)
	}
	if cfg.Redis.Enabled && cfg.Redis.TTL < 0 {
		return fmt.Errorf("redis ttl must not be negative")
	}
	return nil
}
