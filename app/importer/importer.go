package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/watch-history/app/database"
	"github.com/lysyi3m/watch-history/app/history"
)

// DefaultBatchSize is the number of rows written per insert call
const DefaultBatchSize = 1000

var (
	ErrAlreadyHasData = errors.New("watch history already contains data")
	ErrEmptyDocument  = errors.New("document is empty")
)

type ParserInterface interface {
	Run(data []byte) []history.Entry
}

var _ ParserInterface = (*history.Parser)(nil)

// Importer loads a Takeout export into the store. An import is
// all-or-nothing: either every parsed entry is stored or none is.
type Importer struct {
	parser    ParserInterface
	repo      database.HistoryRepository
	policy    ConflictPolicy
	batchSize int
}

func NewImporter(parser ParserInterface, repo database.HistoryRepository, policy ConflictPolicy, batchSize int) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &Importer{
		parser:    parser,
		repo:      repo,
		policy:    policy,
		batchSize: batchSize,
	}
}

func (i *Importer) Policy() ConflictPolicy {
	return i.policy
}

// Run parses data and stores the result according to the conflict policy.
// It returns ErrEmptyDocument for blank input and ErrAlreadyHasData when the
// store is not empty under PolicyReject.
func (i *Importer) Run(ctx context.Context, data []byte) (*Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}

	startedAt := time.Now()
	entries := i.parser.Run(data)
	slog.Debug("Parsed export", "bytes", len(data), "entries", len(entries), "duration", time.Since(startedAt))

	result := &Result{Inserted: len(entries)}

	err := i.repo.InTx(ctx, func(repo database.HistoryRepository) error {
		hasData, err := repo.HasAny(ctx)
		if err != nil {
			return err
		}

		if hasData {
			switch i.policy {
			case PolicyReplace:
				if err := repo.DeleteAll(ctx); err != nil {
					return err
				}
				result.Replaced = true
			default:
				return ErrAlreadyHasData
			}
		}

		for start := 0; start < len(entries); start += i.batchSize {
			end := min(start+i.batchSize, len(entries))
			if err := repo.InsertBatch(ctx, toRows(entries[start:end])); err != nil {
				return fmt.Errorf("failed to insert batch at offset %d: %w", start, err)
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyHasData) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to import history: %w", err)
	}

	slog.Info("Import completed",
		"inserted", result.Inserted,
		"replaced", result.Replaced,
		"duration", time.Since(startedAt))

	return result, nil
}

func (i *Importer) Status(ctx context.Context) (*Status, error) {
	hasData, err := i.repo.HasAny(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get import status: %w", err)
	}
	return &Status{HasData: hasData}, nil
}

// Clear removes all stored history. Clearing an empty store succeeds.
func (i *Importer) Clear(ctx context.Context) error {
	if err := i.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	slog.Info("History cleared")
	return nil
}

func toRows(entries []history.Entry) []database.HistoryEntry {
	rows := make([]database.HistoryEntry, len(entries))
	for i, e := range entries {
		rows[i] = database.HistoryEntry{
			VideoID:      e.VideoID,
			Title:        e.Title,
			ChannelID:    e.ChannelID,
			ChannelName:  e.ChannelName,
			WatchedAt:    e.WatchedAt,
			ActivityType: e.ActivityType,
			SourceURL:    e.SourceURL,
		}
	}
	return rows
}
