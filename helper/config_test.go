package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfiguration(t *testing.T) {
	t.Run("Sensible defaults", func(t *testing.T) {
		config := DefaultConfiguration()

		assert.Contains(t, config.CacheDir, "panoptes")
		assert.Equal(t, []string{"PERSON", "ORG", "GPE"}, config.NEREntityTypes)
		assert.Equal(t, 0.6, config.NERMinConfidence)
		assert.Equal(t, "en", config.WikidataLanguage)
		assert.True(t, config.LinkingEnabled)
		assert.False(t, config.StoreEnabled)
	})
}

func TestNewConfiguration(t *testing.T) {
	t.Run("Empty path loads defaults", func(t *testing.T) {
		config, err := NewConfiguration("")

		require.NoError(t, err)
		assert.Equal(t, "en", config.WikidataLanguage)
		assert.True(t, config.LinkingEnabled)
	})

	t.Run("YAML file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "wikidata_language: de\nner_min_confidence: 0.8\nlinking_enabled: false\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		config, err := NewConfiguration(path)

		require.NoError(t, err)
		assert.Equal(t, "de", config.WikidataLanguage)
		assert.Equal(t, 0.8, config.NERMinConfidence)
		assert.False(t, config.LinkingEnabled)
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("wikidata_language: de\n"), 0644))
		t.Setenv("PANOPTES_WIKIDATA_LANGUAGE", "fr")

		config, err := NewConfiguration(path)

		require.NoError(t, err)
		assert.Equal(t, "fr", config.WikidataLanguage)
	})

	t.Run("Environment overrides defaults without a file", func(t *testing.T) {
		t.Setenv("PANOPTES_LLM_MODEL", "claude-sonnet-4-20250514")

		config, err := NewConfiguration("")

		require.NoError(t, err)
		assert.Equal(t, "claude-sonnet-4-20250514", config.LLMModel)
	})

	t.Run("Missing config file is an error", func(t *testing.T) {
		_, err := NewConfiguration(filepath.Join(t.TempDir(), "gone.yaml"))

		assert.Error(t, err)
	})

	t.Run("Invalid YAML is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("broken: [unclosed"), 0644))

		_, err := NewConfiguration(path)

		assert.Error(t, err)
	})
}
