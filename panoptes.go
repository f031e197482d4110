// Package panoptes resolves and links named entities in documents. A run
// parses a document, extracts raw NER mentions, groups them into canonical
// entities with a single generative-model call and enriches them with
// knowledge-base references. Parsing, extraction and resolution are memoized
// under content-aware cache keys; linking re-runs against the live knowledge
// base.
package panoptes

import (
	"context"
	"log/slog"
	"os"

	"github.com/siherrmann/panoptes/cache"
	"github.com/siherrmann/panoptes/core/linking"
	"github.com/siherrmann/panoptes/core/pipeline"
	"github.com/siherrmann/panoptes/core/resolution"
	"github.com/siherrmann/panoptes/database"
	"github.com/siherrmann/panoptes/helper"
	"github.com/siherrmann/panoptes/llm"
	"github.com/siherrmann/panoptes/model"
	loadSql "github.com/siherrmann/panoptes/sql"
)

// Panoptes provides a unified interface to the whole resolution pipeline
type Panoptes struct {
	Config   *helper.Configuration
	Cache    *cache.Store
	Parse    pipeline.ParseFunc
	Extract  pipeline.ExtractFunc
	Embed    pipeline.EmbedFunc
	Resolver *resolution.Resolver
	Linker   *linking.Linker
	// Optional result store, only set when persistence is enabled
	DB        *helper.Database
	Documents *database.DocumentsDBHandler
	Entities  *database.EntitiesDBHandler
	// Logging
	log *slog.Logger
}

// NewPanoptes creates a pipeline instance from the given configuration.
// A nil configuration uses the defaults.
func NewPanoptes(config *helper.Configuration) (*Panoptes, error) {
	if config == nil {
		config = helper.DefaultConfiguration()
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	store, err := cache.NewStore(config.CacheDir, logger)
	if err != nil {
		return nil, helper.NewError("open cache store", err)
	}

	extract, err := pipeline.DefaultMentionExtractor(config.NERModel, config.NEREntityTypes, config.NERMinConfidence)
	if err != nil {
		return nil, helper.NewError("create mention extractor", err)
	}

	client, err := llm.NewClient(config.LLMModel)
	if err != nil {
		return nil, helper.NewError("create model client", err)
	}

	panoptes := &Panoptes{
		Config:   config,
		Cache:    store,
		Parse:    pipeline.DefaultParser(store),
		Extract:  extract,
		Resolver: resolution.NewResolver(client.Complete, config.NEREntityTypes, logger),
		log:      logger,
	}

	if config.LinkingEnabled {
		wikidata := linking.NewWikidataClient(config.WikidataLanguage)
		panoptes.Linker = linking.NewLinker(wikidata.Search, wikidata.FetchTypes, client.Complete, logger)
	}

	if config.StoreEnabled {
		err := panoptes.useResultStore(logger)
		if err != nil {
			return nil, err
		}
	}

	return panoptes, nil
}

// useResultStore connects the PostgreSQL result store and its handlers.
// Connection settings come from the DB_ environment variables.
func (p *Panoptes) useResultStore(logger *slog.Logger) error {
	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return helper.NewError("load database configuration", err)
	}

	db := helper.NewDatabase("panoptes", dbConfig, logger)
	err = loadSql.Init(db.Instance)
	if err != nil {
		return helper.NewError("initialize database extensions", err)
	}

	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return helper.NewError("create documents handler", err)
	}

	entities, err := database.NewEntitiesDBHandler(db, pipeline.EmbeddingDim, false)
	if err != nil {
		return helper.NewError("create entities handler", err)
	}

	embed, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	p.DB = db
	p.Documents = documents
	p.Entities = entities
	p.Embed = embed

	return nil
}

// Run resolves and links all named entities in the document at path.
// Parsing, extraction and resolution are memoized under content-aware keys
// covering every setting the stage depends on, so a second run over an
// unchanged file issues no extraction or resolution calls. Linking runs
// fresh every time; its failures degrade to unlinked entities and never
// fail the run.
func (p *Panoptes) Run(ctx context.Context, path string) (*model.ResolutionResult, error) {
	doc, err := p.Parse(path)
	if err != nil {
		return nil, helper.NewError("parse document", err)
	}

	p.log.Info("Parsed document", slog.String("title", doc.Title), slog.Int("characters", len(doc.Text)))

	extractKey := cache.NewKey("extractor.extract").
		FileArg(path).
		KwArg("model", p.Config.NERModel).
		KwArg("entity_types", p.Config.NEREntityTypes).
		KwArg("min_confidence", p.Config.NERMinConfidence).
		String()
	mentions, err := cache.Memoize(p.Cache, extractKey, func() ([]*model.Mention, error) {
		return p.Extract(doc.Text)
	})
	if err != nil {
		return nil, helper.NewError("extract mentions", err)
	}

	p.log.Info("Extracted mentions", slog.Int("mentions", len(mentions)))

	// The mention fingerprint ties the resolution entry to the extraction
	// output, so any change to the NER stage invalidates it as well.
	resolveKey := cache.NewKey("resolution.resolve").
		FileArg(path).
		KwArg("model", p.Config.LLMModel).
		KwArg("mentions", cache.Fingerprint(mentions)).
		String()
	result, err := cache.Memoize(p.Cache, resolveKey, func() (*model.ResolutionResult, error) {
		return p.Resolver.Resolve(ctx, doc, mentions)
	})
	if err != nil {
		return nil, helper.NewError("resolve entities", err)
	}

	p.log.Info("Resolved entities", slog.Int("entities", len(result.Entities)))

	// Linking is not memoized: it queries a live knowledge base and degrades
	// to unlinked entities on outages, so every run gets a fresh attempt.
	if p.Linker != nil {
		result = p.Linker.Link(ctx, result, doc.Text)
		p.log.Info("Linked entities", slog.Int("entities", len(result.Entities)))
	}

	if p.Documents != nil && p.Entities != nil {
		p.persist(doc, result)
	}

	return result, nil
}

// persist stores the document and its resolved entities in the result store.
// Persistence is best effort: failures are logged and never fail the run.
func (p *Panoptes) persist(doc *model.Document, result *model.ResolutionResult) {
	err := p.Documents.InsertDocument(doc)
	if err != nil {
		p.log.Warn("Failed to store document", slog.String("title", doc.Title), slog.Any("error", err))
		return
	}

	for _, entity := range result.Entities {
		var embedding []float32
		if p.Embed != nil {
			embedding, err = p.Embed(entity.CanonicalName)
			if err != nil {
				p.log.Warn("Failed to embed entity name", slog.String("name", entity.CanonicalName), slog.Any("error", err))
				embedding = nil
			}
		}

		stored := *entity
		stored.DocumentRID = doc.RID
		err = p.Entities.InsertEntity(&stored, embedding)
		if err != nil {
			p.log.Warn("Failed to store entity", slog.String("name", entity.CanonicalName), slog.Any("error", err))
		}
	}

	p.log.Info("Stored resolution result", slog.String("document_id", doc.RID.String()), slog.Int("entities", len(result.Entities)))
}

// Close closes the cache store and the database connection if open
func (p *Panoptes) Close() error {
	var firstErr error

	if p.Cache != nil {
		if err := p.Cache.Close(); err != nil {
			firstErr = err
		}
	}
	if p.DB != nil && p.DB.Instance != nil {
		if err := p.DB.Instance.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
