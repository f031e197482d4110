// Package resolution groups raw NER mentions into canonical entities via a
// single generative-model call.
package resolution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/siherrmann/panoptes/helper"
	"github.com/siherrmann/panoptes/llm"
	"github.com/siherrmann/panoptes/model"
	"github.com/siherrmann/panoptes/prompts"
)

// ErrInvalidResponse marks a resolution response that failed to parse or
// validate. Resolution output is the pipeline's essential product, so this
// is fatal for the whole resolve operation, never silently degraded.
var ErrInvalidResponse = errors.New("invalid resolution response")

// Resolver resolves raw NER mentions to canonical entities
type Resolver struct {
	complete    llm.CompleteFunc
	entityTypes []string
	log         *slog.Logger
}

// NewResolver creates a resolver issuing completions through complete and
// constraining entity types to the given allow-list.
func NewResolver(complete llm.CompleteFunc, entityTypes []string, logger *slog.Logger) *Resolver {
	return &Resolver{
		complete:    complete,
		entityTypes: entityTypes,
		log:         logger,
	}
}

// Resolve groups the given mentions into canonical entities with exactly one
// model call. An empty mention list returns an empty result without any
// external call.
func (r *Resolver) Resolve(ctx context.Context, document *model.Document, mentions []*model.Mention) (*model.ResolutionResult, error) {
	if len(mentions) == 0 {
		return &model.ResolutionResult{Entities: []*model.ResolvedEntity{}}, nil
	}

	systemPrompt := prompts.ResolutionSystemPrompt(r.entityTypes)
	userPrompt := prompts.BuildResolutionPrompt(document.Text, mentions)

	raw, err := r.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, helper.NewError("resolution completion", err)
	}

	result, err := r.parseResult(raw)
	if err != nil {
		return nil, err
	}

	r.warnUncoveredMentions(mentions, result)

	return result, nil
}

// parseResult validates the raw model response into a typed result.
// Non-conforming payloads are rejected rather than passed downstream.
func (r *Resolver) parseResult(raw string) (*model.ResolutionResult, error) {
	var payload struct {
		Entities []*model.ResolvedEntity `json:"entities"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if payload.Entities == nil {
		return nil, fmt.Errorf("%w: missing entities field", ErrInvalidResponse)
	}

	allowed := make(map[string]bool, len(r.entityTypes))
	for _, t := range r.entityTypes {
		allowed[t] = true
	}

	seen := map[string]bool{}
	for _, entity := range payload.Entities {
		if entity == nil || entity.CanonicalName == "" {
			return nil, fmt.Errorf("%w: entity without canonical_name", ErrInvalidResponse)
		}
		if !allowed[string(entity.Type)] {
			return nil, fmt.Errorf("%w: entity_type %q not in allow-list", ErrInvalidResponse, entity.Type)
		}
		if seen[entity.CanonicalName] {
			return nil, fmt.Errorf("%w: duplicate canonical_name %q", ErrInvalidResponse, entity.CanonicalName)
		}
		seen[entity.CanonicalName] = true
	}

	return &model.ResolutionResult{Entities: payload.Entities}, nil
}

// warnUncoveredMentions logs input mentions missing from every output group.
// Coverage is observed but not enforced.
func (r *Resolver) warnUncoveredMentions(mentions []*model.Mention, result *model.ResolutionResult) {
	covered := map[string]bool{}
	for _, entity := range result.Entities {
		for _, m := range entity.Mentions {
			covered[m] = true
		}
	}

	uncovered := 0
	for _, m := range mentions {
		if !covered[m.Text] {
			uncovered++
		}
	}
	if uncovered > 0 {
		r.log.Warn("Resolution output does not cover all input mentions",
			slog.Int("uncovered", uncovered),
			slog.Int("total", len(mentions)),
		)
	}
}
