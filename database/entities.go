package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/panoptes/helper"
	"github.com/siherrmann/panoptes/model"
	loadSql "github.com/siherrmann/panoptes/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(entity *model.ResolvedEntity, embedding []float32) error
	SelectEntitiesByDocument(documentRID uuid.UUID) ([]*model.ResolvedEntity, error)
	SelectEntityByName(canonicalName string, entityType model.EntityType) (*model.ResolvedEntity, error)
	SelectEntitiesBySimilarity(embedding []float32, limit int, threshold float64) ([]*model.ResolvedEntity, error)
	DeleteEntity(id int64) error
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, embeddingDim int, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EntitiesDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// InsertEntity inserts a resolved entity with its name embedding.
// The embedding may be nil for entities stored without similarity support.
func (h *EntitiesDBHandler) InsertEntity(entity *model.ResolvedEntity, embedding []float32) error {
	var kbID interface{}
	if entity.KBRef != nil && entity.KBRef.WikidataID != "" {
		kbID = entity.KBRef.WikidataID
	}

	var embeddingValue interface{}
	if len(embedding) > 0 {
		embeddingValue = pgvector.NewVector(embedding)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_entity($1, $2, $3, $4, $5, $6, $7)`,
		entity.DocumentRID,
		entity.CanonicalName,
		entity.Type,
		pq.Array(entity.Mentions),
		kbID,
		entity.InstanceOf,
		embeddingValue,
	)

	return scanEntity(row, entity)
}

// SelectEntitiesByDocument retrieves all entities of a document in insertion order
func (h *EntitiesDBHandler) SelectEntitiesByDocument(documentRID uuid.UUID) ([]*model.ResolvedEntity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_document($1)`,
		documentRID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// SelectEntityByName retrieves the most recent entity with the given name and type
func (h *EntitiesDBHandler) SelectEntityByName(canonicalName string, entityType model.EntityType) (*model.ResolvedEntity, error) {
	entity := &model.ResolvedEntity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity_by_name($1, $2)`,
		canonicalName,
		entityType,
	)

	err := scanEntity(row, entity)
	if err != nil {
		return nil, err
	}

	return entity, nil
}

// SelectEntitiesBySimilarity retrieves entities by cosine similarity of their name embeddings
func (h *EntitiesDBHandler) SelectEntitiesBySimilarity(embedding []float32, limit int, threshold float64) ([]*model.ResolvedEntity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_similarity($1, $2, $3)`,
		pgvector.NewVector(embedding),
		limit,
		threshold,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// DeleteEntity deletes an entity by ID
func (h *EntitiesDBHandler) DeleteEntity(id int64) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entity($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row rowScanner, entity *model.ResolvedEntity) error {
	var kbID sql.NullString
	// Embedding is nullable, pgvector.Vector alone cannot scan NULL
	var embedding sql.Null[pgvector.Vector]

	err := row.Scan(
		&entity.ID,
		&entity.RID,
		&entity.DocumentRID,
		&entity.CanonicalName,
		&entity.Type,
		pq.Array(&entity.Mentions),
		&kbID,
		&entity.InstanceOf,
		&embedding,
		&entity.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	entity.KBRef = nil
	if kbID.Valid {
		entity.KBRef = &model.KnowledgeBaseRef{WikidataID: kbID.String}
	}

	return nil
}

func scanEntities(rows *sql.Rows) ([]*model.ResolvedEntity, error) {
	var entities []*model.ResolvedEntity
	for rows.Next() {
		entity := &model.ResolvedEntity{}
		err := scanEntity(rows, entity)
		if err != nil {
			return nil, err
		}

		entities = append(entities, entity)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}
