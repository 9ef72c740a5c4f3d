package seeding

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"dashboard-service/models"

	"go.uber.org/zap"
)

const (
	CatalogItemsFile = "CatalogItems.sql"
	CatalogTagsFile  = "CatalogTags.json"
)

// CatalogSeeder loads catalog items from a pre-rendered insert script and
// then attaches their tags. Both phases report into one progress counter.
type CatalogSeeder struct {
	state     datasetState
	dir       string
	items     Source[string]
	tags      Source[models.CatalogTags]
	batchSize int

	itemLines *Sequence[string]
	tagSet    *Sequence[models.CatalogTags]
	attempted bool
}

func NewCatalogSeeder(store Store, dir string, batchSize int, logger *zap.Logger) *CatalogSeeder {
	return &CatalogSeeder{
		state: datasetState{
			name:   "catalog",
			table:  models.CatalogItem{}.TableName(),
			store:  store,
			logger: logger,
		},
		dir:       dir,
		items:     NewLineSource(filepath.Join(dir, CatalogItemsFile)),
		tags:      NewJSONSource[models.CatalogTags](filepath.Join(dir, CatalogTagsFile)),
		batchSize: ClampBatchSize(batchSize),
	}
}

func (s *CatalogSeeder) Name() string { return s.state.name }

func (s *CatalogSeeder) Status(ctx context.Context) (Status, error) {
	return s.state.resolve(ctx, s.load)
}

func (s *CatalogSeeder) load(ctx context.Context) (int, error) {
	items, err := s.items.Load(ctx)
	if err != nil {
		return 0, err
	}
	tags, err := s.tags.Load(ctx)
	if err != nil {
		return 0, err
	}
	s.itemLines, s.tagSet = items, tags
	return items.Len() + tags.Len(), nil
}

func (s *CatalogSeeder) Seed(ctx context.Context, progress ProgressFunc) error {
	st, err := s.Status(ctx)
	if err != nil {
		return err
	}
	if !st.NeedsSeeding {
		return nil
	}
	if s.attempted {
		return ErrAlreadyAttempted
	}
	s.attempted = true

	logger := s.state.logger
	logger.Info("Seeding catalog", zap.String("dir", s.dir))
	agg := newPhaseAggregator(2, progress)

	start := time.Now()
	err = runPhase(ctx, s.state.store, logger, "catalog_items", NewLineBatcher(s.itemLines), ScriptStatement, agg.phase(0))
	if err != nil {
		return err
	}
	logger.Info("Catalog items inserted", zap.Int("lines", s.itemLines.Len()), zap.Duration("elapsed", time.Since(start)))

	start = time.Now()
	err = runPhase(ctx, s.state.store, logger, "catalog_tags", NewRecordBatcher(s.tagSet, s.batchSize), TagsUpdateStatement, agg.phase(1))
	if err != nil {
		return err
	}
	logger.Info("Catalog tags added", zap.Int("tags", s.tagSet.Len()), zap.Duration("elapsed", time.Since(start)))

	s.state.complete()
	return nil
}

// TagsUpdateStatement renders one UPDATE ... FROM (VALUES ...) statement that
// stores the serialized tags on every matching catalog item. Tags for
// unknown products match nothing and are ignored.
func TagsUpdateStatement(tags []models.CatalogTags) (Statement, error) {
	if len(tags) == 0 {
		return Statement{}, fmt.Errorf("update catalog tags: empty batch")
	}

	var sb strings.Builder
	args := make([]any, 0, len(tags)*2)
	sb.WriteString("UPDATE catalog_items AS c SET tags_json = v.tags_json FROM (VALUES ")
	for i, tag := range tags {
		encoded, err := json.Marshal(tag)
		if err != nil {
			return Statement{}, fmt.Errorf("encode tags for product %d: %w", tag.ProductID, err)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(CAST(? AS INTEGER), CAST(? AS TEXT))")
		args = append(args, tag.ProductID, string(encoded))
	}
	sb.WriteString(") AS v(id, tags_json) WHERE c.id = v.id")
	return Statement{SQL: sb.String(), Args: args}, nil
}
