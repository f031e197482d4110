package database

import (
	"testing"

	"github.com/siherrmann/panoptes/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEmbedding(dim int, seed float32) []float32 {
	embedding := make([]float32, dim)
	for i := range embedding {
		embedding[i] = seed
	}
	embedding[0] = 1
	return embedding
}

func insertTestDocument(t *testing.T, documentsDbHandler *DocumentsDBHandler) *model.Document {
	t.Helper()

	doc := &model.Document{
		Title:  "Entity Test Document",
		Source: "entities.txt",
	}
	err := documentsDbHandler.InsertDocument(doc)
	require.NoError(t, err)
	t.Cleanup(func() {
		documentsDbHandler.DeleteDocument(doc.RID)
	})

	return doc
}

func TestEntitiesNewEntitiesDBHandler(t *testing.T) {
	database := initDB(t)

	// Needed because an entity has a reference to a document
	_, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err, "Expected NewDocumentsDBHandler to not return an error")

	t.Run("Valid call NewEntitiesDBHandler", func(t *testing.T) {
		entitiesDbHandler, err := NewEntitiesDBHandler(database, 384, true)
		assert.NoError(t, err, "Expected NewEntitiesDBHandler to not return an error")
		require.NotNil(t, entitiesDbHandler, "Expected NewEntitiesDBHandler to return a non-nil instance")
	})

	t.Run("Invalid call NewEntitiesDBHandler with nil database", func(t *testing.T) {
		_, err := NewEntitiesDBHandler(nil, 384, false)
		assert.Error(t, err, "Expected error when creating EntitiesDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestEntitiesInsert(t *testing.T) {
	database := initDB(t)

	documentsDbHandler, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err)
	entitiesDbHandler, err := NewEntitiesDBHandler(database, 384, true)
	require.NoError(t, err)

	doc := insertTestDocument(t, documentsDbHandler)

	t.Run("Insert linked entity", func(t *testing.T) {
		entity := &model.ResolvedEntity{
			DocumentRID:   doc.RID,
			CanonicalName: "Angela Merkel",
			Type:          model.EntityTypePerson,
			Mentions:      []string{"Merkel", "Angela Merkel", "she"},
			KBRef:         &model.KnowledgeBaseRef{WikidataID: "Q567"},
			InstanceOf: model.TypeDescriptors{
				{ID: "Q5", Label: "human"},
			},
		}

		err := entitiesDbHandler.InsertEntity(entity, testEmbedding(384, 0.1))
		assert.NoError(t, err, "Expected Insert to not return an error")
		assert.NotEmpty(t, entity.RID, "Expected inserted entity to have a RID")
		assert.NotZero(t, entity.ID, "Expected inserted entity to have an ID")
		assert.Equal(t, []string{"Merkel", "Angela Merkel", "she"}, entity.Mentions, "Expected mentions to survive the round trip")
		require.NotNil(t, entity.KBRef, "Expected knowledge-base reference to survive the round trip")
		assert.Equal(t, "Q567", entity.KBRef.WikidataID)
		require.Len(t, entity.InstanceOf, 1)
		assert.Equal(t, "human", entity.InstanceOf[0].Label)

		// Cleanup
		entitiesDbHandler.DeleteEntity(entity.ID)
	})

	t.Run("Insert unlinked entity without embedding", func(t *testing.T) {
		entity := &model.ResolvedEntity{
			DocumentRID:   doc.RID,
			CanonicalName: "Xyzzyplugh",
			Type:          model.EntityTypeOrg,
			Mentions:      []string{"Xyzzyplugh"},
		}

		err := entitiesDbHandler.InsertEntity(entity, nil)
		assert.NoError(t, err, "Expected Insert without embedding to not return an error")
		assert.Nil(t, entity.KBRef, "Expected unlinked entity to have no knowledge-base reference")
		assert.Empty(t, entity.InstanceOf, "Expected unlinked entity to have no types")

		// Cleanup
		entitiesDbHandler.DeleteEntity(entity.ID)
	})
}

func TestEntitiesGetByDocument(t *testing.T) {
	database := initDB(t)

	documentsDbHandler, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err)
	entitiesDbHandler, err := NewEntitiesDBHandler(database, 384, true)
	require.NoError(t, err)

	doc := insertTestDocument(t, documentsDbHandler)

	names := []string{"Angela Merkel", "Siemens", "Berlin"}
	types := []model.EntityType{model.EntityTypePerson, model.EntityTypeOrg, model.EntityTypeGPE}
	for i, name := range names {
		entity := &model.ResolvedEntity{
			DocumentRID:   doc.RID,
			CanonicalName: name,
			Type:          types[i],
			Mentions:      []string{name},
		}
		err := entitiesDbHandler.InsertEntity(entity, nil)
		require.NoError(t, err)
	}

	retrieved, err := entitiesDbHandler.SelectEntitiesByDocument(doc.RID)
	assert.NoError(t, err, "Expected SelectEntitiesByDocument to not return an error")
	require.Len(t, retrieved, 3, "Expected all inserted entities")
	assert.Equal(t, "Angela Merkel", retrieved[0].CanonicalName, "Expected insertion order to be preserved")
	assert.Equal(t, "Siemens", retrieved[1].CanonicalName)
	assert.Equal(t, "Berlin", retrieved[2].CanonicalName)
}

func TestEntitiesGetByName(t *testing.T) {
	database := initDB(t)

	documentsDbHandler, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err)
	entitiesDbHandler, err := NewEntitiesDBHandler(database, 384, true)
	require.NoError(t, err)

	doc := insertTestDocument(t, documentsDbHandler)

	entity := &model.ResolvedEntity{
		DocumentRID:   doc.RID,
		CanonicalName: "Berlin",
		Type:          model.EntityTypeGPE,
		Mentions:      []string{"Berlin"},
		KBRef:         &model.KnowledgeBaseRef{WikidataID: "Q64"},
	}
	err = entitiesDbHandler.InsertEntity(entity, nil)
	require.NoError(t, err)

	t.Run("Existing name and type", func(t *testing.T) {
		retrieved, err := entitiesDbHandler.SelectEntityByName("Berlin", model.EntityTypeGPE)
		assert.NoError(t, err, "Expected SelectEntityByName to not return an error")
		require.NotNil(t, retrieved)
		assert.Equal(t, entity.RID, retrieved.RID, "Expected entity RIDs to match")
		require.NotNil(t, retrieved.KBRef)
		assert.Equal(t, "Q64", retrieved.KBRef.WikidataID)
	})

	t.Run("Unknown name", func(t *testing.T) {
		_, err := entitiesDbHandler.SelectEntityByName("Atlantis", model.EntityTypeGPE)
		assert.Error(t, err, "Expected error for unknown entity name")
	})
}

func TestEntitiesGetBySimilarity(t *testing.T) {
	database := initDB(t)

	documentsDbHandler, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err)
	entitiesDbHandler, err := NewEntitiesDBHandler(database, 384, true)
	require.NoError(t, err)

	doc := insertTestDocument(t, documentsDbHandler)

	entity := &model.ResolvedEntity{
		DocumentRID:   doc.RID,
		CanonicalName: "Angela Merkel",
		Type:          model.EntityTypePerson,
		Mentions:      []string{"Merkel"},
	}
	embedding := testEmbedding(384, 0.1)
	err = entitiesDbHandler.InsertEntity(entity, embedding)
	require.NoError(t, err)

	t.Run("Identical embedding is found", func(t *testing.T) {
		retrieved, err := entitiesDbHandler.SelectEntitiesBySimilarity(embedding, 5, 0.9)
		assert.NoError(t, err, "Expected SelectEntitiesBySimilarity to not return an error")
		require.NotEmpty(t, retrieved, "Expected the identical embedding to match")
		assert.Equal(t, "Angela Merkel", retrieved[0].CanonicalName)
	})

	t.Run("High threshold filters dissimilar embeddings", func(t *testing.T) {
		other := testEmbedding(384, -0.1)
		retrieved, err := entitiesDbHandler.SelectEntitiesBySimilarity(other, 5, 0.99)
		assert.NoError(t, err)
		assert.Empty(t, retrieved, "Expected no match above the threshold")
	})
}

func TestEntitiesDelete(t *testing.T) {
	database := initDB(t)

	documentsDbHandler, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err)
	entitiesDbHandler, err := NewEntitiesDBHandler(database, 384, true)
	require.NoError(t, err)

	doc := insertTestDocument(t, documentsDbHandler)

	entity := &model.ResolvedEntity{
		DocumentRID:   doc.RID,
		CanonicalName: "Doomed Corp",
		Type:          model.EntityTypeOrg,
		Mentions:      []string{"Doomed Corp"},
	}
	err = entitiesDbHandler.InsertEntity(entity, nil)
	require.NoError(t, err)

	err = entitiesDbHandler.DeleteEntity(entity.ID)
	assert.NoError(t, err, "Expected Delete to not return an error")

	retrieved, err := entitiesDbHandler.SelectEntitiesByDocument(doc.RID)
	assert.NoError(t, err)
	assert.Empty(t, retrieved, "Expected no entities after delete")
}
