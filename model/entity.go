package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityType is the allow-listed classification of a resolved entity
type EntityType string

const (
	EntityTypePerson EntityType = "PERSON"
	EntityTypeOrg    EntityType = "ORG"
	EntityTypeGPE    EntityType = "GPE"
)

// EntityTypeOrder is the fixed section order used for display output
var EntityTypeOrder = []EntityType{EntityTypePerson, EntityTypeOrg, EntityTypeGPE}

// DefaultEntityTypes returns the default entity type allow-list
func DefaultEntityTypes() []string {
	types := make([]string, 0, len(EntityTypeOrder))
	for _, t := range EntityTypeOrder {
		types = append(types, string(t))
	}
	return types
}

// Candidate is a single knowledge-base search result offered for an entity
type Candidate struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// AmbiguousEntity is an entity with multiple knowledge-base candidates,
// queued for batched disambiguation
type AmbiguousEntity struct {
	CanonicalName string      `json:"canonical_name"`
	EntityType    EntityType  `json:"entity_type"`
	Candidates    []Candidate `json:"candidates"`
}

// KnowledgeBaseRef anchors an entity to an external knowledge graph item
type KnowledgeBaseRef struct {
	WikidataID string `json:"wikidata_id"`
}

// TypeDescriptor is a single instance-of type of a knowledge-base item
type TypeDescriptor struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ResolvedEntity is a single canonical entity with all of its surface mentions.
// KBRef and InstanceOf are filled in by linking; entities are copied, never
// mutated, when enriched.
type ResolvedEntity struct {
	ID            int64             `json:"id,omitempty"`
	RID           uuid.UUID         `json:"rid,omitempty"`
	DocumentRID   uuid.UUID         `json:"document_rid,omitempty"`
	CanonicalName string            `json:"canonical_name"`
	Type          EntityType        `json:"entity_type"`
	Mentions      []string          `json:"mentions"`
	KBRef         *KnowledgeBaseRef `json:"kb_ref,omitempty"`
	InstanceOf    TypeDescriptors   `json:"instance_of,omitempty"`
	CreatedAt     time.Time         `json:"created_at,omitempty"`
}

// WithLink returns a copy of the entity carrying the given knowledge-base
// reference and type descriptors. An empty kbID yields an unlinked copy.
func (e *ResolvedEntity) WithLink(kbID string, types []TypeDescriptor) *ResolvedEntity {
	enriched := *e
	enriched.Mentions = append([]string(nil), e.Mentions...)
	enriched.KBRef = nil
	enriched.InstanceOf = nil
	if kbID != "" {
		enriched.KBRef = &KnowledgeBaseRef{WikidataID: kbID}
		enriched.InstanceOf = append(TypeDescriptors(nil), types...)
	}
	return &enriched
}
