package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLink(t *testing.T) {
	t.Run("Linked copy carries reference and types", func(t *testing.T) {
		entity := &ResolvedEntity{
			CanonicalName: "Paris",
			Type:          EntityTypeGPE,
			Mentions:      []string{"Paris", "the city"},
		}

		linked := entity.WithLink("Q90", []TypeDescriptor{{ID: "Q515", Label: "city"}})

		require.NotNil(t, linked.KBRef)
		assert.Equal(t, "Q90", linked.KBRef.WikidataID)
		assert.Len(t, linked.InstanceOf, 1)
		assert.Equal(t, "city", linked.InstanceOf[0].Label)
	})

	t.Run("Empty identifier yields unlinked copy", func(t *testing.T) {
		entity := &ResolvedEntity{
			CanonicalName: "Paris",
			Type:          EntityTypeGPE,
			KBRef:         &KnowledgeBaseRef{WikidataID: "Q90"},
		}

		unlinked := entity.WithLink("", nil)

		assert.Nil(t, unlinked.KBRef)
		assert.Nil(t, unlinked.InstanceOf)
	})

	t.Run("Original entity is never mutated", func(t *testing.T) {
		entity := &ResolvedEntity{
			CanonicalName: "Paris",
			Type:          EntityTypeGPE,
			Mentions:      []string{"Paris"},
		}

		linked := entity.WithLink("Q90", []TypeDescriptor{{ID: "Q515", Label: "city"}})
		linked.Mentions[0] = "changed"

		assert.Nil(t, entity.KBRef)
		assert.Nil(t, entity.InstanceOf)
		assert.Equal(t, "Paris", entity.Mentions[0])
	})
}

func TestDefaultEntityTypes(t *testing.T) {
	t.Run("Matches the display order", func(t *testing.T) {
		assert.Equal(t, []string{"PERSON", "ORG", "GPE"}, DefaultEntityTypes())
	})
}
