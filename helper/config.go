package helper

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix for environment variable overrides,
// e.g. PANOPTES_LLM_MODEL overrides llm_model.
const envPrefix = "PANOPTES_"

// Configuration holds the settings for the whole pipeline
type Configuration struct {
	// Cache
	CacheDir string `koanf:"cache_dir"`

	// NER extraction
	NERModel         string   `koanf:"ner_model"`
	NEREntityTypes   []string `koanf:"ner_entity_types"`
	NERMinConfidence float64  `koanf:"ner_min_confidence"`

	// Generative model
	LLMModel string `koanf:"llm_model"`

	// Knowledge-base linking
	WikidataLanguage string `koanf:"wikidata_language"`
	LinkingEnabled   bool   `koanf:"linking_enabled"`

	// Optional result persistence
	StoreEnabled bool `koanf:"store_enabled"`
}

// DefaultConfiguration returns the configuration defaults
func DefaultConfiguration() *Configuration {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = "."
	}

	return &Configuration{
		CacheDir:         filepath.Join(cacheDir, "panoptes"),
		NERModel:         "KnightsAnalytics/distilbert-NER",
		NEREntityTypes:   []string{"PERSON", "ORG", "GPE"},
		NERMinConfidence: 0.6,
		LLMModel:         "",
		WikidataLanguage: "en",
		LinkingEnabled:   true,
		StoreEnabled:     false,
	}
}

// NewConfiguration loads the configuration from an optional YAML file,
// overridden by PANOPTES_-prefixed environment variables. An empty configPath
// skips file loading. A .env file in the working directory is loaded first
// if present.
func NewConfiguration(configPath string) (*Configuration, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, NewError("read config file", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, NewError("parse config file", err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, NewError("load environment variables", err)
	}

	config := DefaultConfiguration()
	if err := k.Unmarshal("", config); err != nil {
		return nil, NewError("unmarshal configuration", err)
	}

	return config, nil
}
