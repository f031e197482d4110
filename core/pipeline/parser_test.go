package pipeline

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/siherrmann/panoptes/cache"
	"github.com/siherrmann/panoptes/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) ParseFunc {
	t.Helper()

	logger := slog.New(helper.NewPrettyHandler(os.Stdout, helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelWarn},
	}))
	store, err := cache.NewStore(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	return DefaultParser(store)
}

func TestDefaultParser(t *testing.T) {
	t.Run("Plain text file is read verbatim", func(t *testing.T) {
		parse := newTestParser(t)
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("Angela Merkel visited Paris."), 0644))

		doc, err := parse(path)

		require.NoError(t, err)
		assert.Equal(t, "notes", doc.Title)
		assert.Equal(t, path, doc.Source)
		assert.Equal(t, "Angela Merkel visited Paris.", doc.Text)
	})

	t.Run("File without extension keeps full name as title", func(t *testing.T) {
		parse := newTestParser(t)
		path := filepath.Join(t.TempDir(), "README")
		require.NoError(t, os.WriteFile(path, []byte("content"), 0644))

		doc, err := parse(path)

		require.NoError(t, err)
		assert.Equal(t, "README", doc.Title)
	})

	t.Run("Changed file content is re-parsed", func(t *testing.T) {
		parse := newTestParser(t)
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("first version"), 0644))

		first, err := parse(path)
		require.NoError(t, err)
		assert.Equal(t, "first version", first.Text)

		require.NoError(t, os.WriteFile(path, []byte("second version"), 0644))
		second, err := parse(path)
		require.NoError(t, err)
		assert.Equal(t, "second version", second.Text)
	})

	t.Run("Unchanged file returns the cached document", func(t *testing.T) {
		parse := newTestParser(t)
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("stable"), 0644))

		first, err := parse(path)
		require.NoError(t, err)
		second, err := parse(path)
		require.NoError(t, err)

		assert.Equal(t, first.Text, second.Text)
		assert.Equal(t, first.Title, second.Title)
	})

	t.Run("Missing file is an error", func(t *testing.T) {
		parse := newTestParser(t)

		_, err := parse(filepath.Join(t.TempDir(), "gone.txt"))

		assert.Error(t, err)
	})

	t.Run("Invalid PDF is an error", func(t *testing.T) {
		parse := newTestParser(t)
		path := filepath.Join(t.TempDir(), "broken.pdf")
		require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0644))

		_, err := parse(path)

		assert.Error(t, err)
	})
}
