package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/luifiio/cougar/internal/catalog"
	"github.com/luifiio/cougar/internal/observability"
)

var (
	// ErrDuplicateIDs indicates two items share an id.
	ErrDuplicateIDs = errors.New("duplicate item ids")
	// ErrShrunk indicates the new catalog would drop existing items.
	ErrShrunk = errors.New("catalog would lose items")
	// ErrNoBackup indicates there is nothing to roll back to.
	ErrNoBackup = errors.New("no catalog backup")
)

// BackupSuffix is appended to the catalog path for the previous version.
const BackupSuffix = ".bak"

// Publisher writes enriched catalogs to disk.
type Publisher struct {
	logger *observability.Logger
}

// PublishRequest describes a catalog write.
type PublishRequest struct {
	RunID uuid.UUID
	Path  string
	Items []catalog.Item
	// AllowShrink permits writing fewer items than the file currently holds.
	AllowShrink bool
	// Backup keeps the previous file next to the new one.
	Backup bool
}

// PublishResult describes a completed write.
type PublishResult struct {
	RunID       uuid.UUID
	Path        string
	BackupPath  string
	Items       int
	WithWiki    int
	Previous    int
	PublishedAt time.Time
}

// NewPublisher creates a new Publisher.
func NewPublisher(logger *observability.Logger) *Publisher {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Publisher{logger: logger.WithComponent("publisher")}
}

// Publish validates items and atomically replaces the catalog at req.Path.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.logger.Info().
		Str("run_id", req.RunID.String()).
		Str("path", req.Path).
		Int("items", len(req.Items)).
		Msg("Publishing catalog")

	if issues := ValidateForPublish(req.Items); len(issues) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateIDs, issues)
	}

	previous, err := catalog.Load(req.Path)
	if err != nil {
		return nil, fmt.Errorf("load current catalog: %w", err)
	}
	if !req.AllowShrink && len(req.Items) < len(previous) {
		return nil, fmt.Errorf("%w: %d -> %d", ErrShrunk, len(previous), len(req.Items))
	}

	result := &PublishResult{
		RunID:    req.RunID,
		Path:     req.Path,
		Items:    len(req.Items),
		Previous: len(previous),
	}
	if req.Backup && len(previous) > 0 {
		result.BackupPath = req.Path + BackupSuffix
		if err := catalog.Save(result.BackupPath, previous); err != nil {
			return nil, fmt.Errorf("write backup: %w", err)
		}
	}

	if err := catalog.Save(req.Path, req.Items); err != nil {
		return nil, err
	}
	for i := range req.Items {
		if req.Items[i].HasWiki() {
			result.WithWiki++
		}
	}
	result.PublishedAt = time.Now()

	p.logger.Info().
		Str("path", req.Path).
		Int("items", result.Items).
		Int("with_wiki", result.WithWiki).
		Msg("Catalog published")
	return result, nil
}

// Rollback restores the catalog at path from its backup.
func (p *Publisher) Rollback(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	backup := path + BackupSuffix
	if _, err := os.Stat(backup); errors.Is(err, fs.ErrNotExist) {
		return 0, ErrNoBackup
	}
	items, err := catalog.Load(backup)
	if err != nil {
		return 0, fmt.Errorf("load backup: %w", err)
	}
	if err := catalog.Save(path, items); err != nil {
		return 0, err
	}
	p.logger.Warn().Str("path", path).Int("items", len(items)).Msg("Catalog rolled back")
	return len(items), nil
}

// ValidateForPublish lists ids shared by more than one item. Items without
// an id are not checked.
func ValidateForPublish(items []catalog.Item) []string {
	seen := make(map[string]int, len(items))
	var issues []string
	for i := range items {
		id := items[i].ID
		if id == "" {
			continue
		}
		seen[id]++
		if seen[id] == 2 {
			issues = append(issues, id)
		}
	}
	return issues
}
