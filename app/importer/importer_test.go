package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/watch-history/app/database"
	"github.com/lysyi3m/watch-history/app/history"
)

func openRepo(t *testing.T) *database.SQLiteHistoryRepository {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	return database.NewHistoryRepository(db)
}

// export builds a document with n watch blocks, one minute apart.
func export(n int) []byte {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b,
			`<div class="content-cell">Watched <a href="https://www.youtube.com/watch?v=vid%08d">Video %d</a><br>`+
				`<a href="https://www.youtube.com/channel/UCchan%d">Channel %d</a><br>1 de jan. de 2024, 12:%02d:00 BRT<br></div>`+"\n",
			i, i, i%3, i%3, i%60)
	}
	b.WriteString("</body></html>")
	return []byte(b.String())
}

// failingRepo fails the nth InsertBatch call made inside a transaction.
type failingRepo struct {
	database.HistoryRepository
	failOn int
	calls  *int
}

func (r failingRepo) InsertBatch(ctx context.Context, entries []database.HistoryEntry) error {
	*r.calls++
	if *r.calls == r.failOn {
		return errors.New("disk full")
	}
	return r.HistoryRepository.InsertBatch(ctx, entries)
}

func (r failingRepo) InTx(ctx context.Context, fn func(repo database.HistoryRepository) error) error {
	return r.HistoryRepository.InTx(ctx, func(tx database.HistoryRepository) error {
		return fn(failingRepo{HistoryRepository: tx, failOn: r.failOn, calls: r.calls})
	})
}

func TestRun_EmptyStore(t *testing.T) {
	repo := openRepo(t)
	imp := NewImporter(history.NewParser(), repo, PolicyReject, 0)
	ctx := context.Background()

	result, err := imp.Run(ctx, export(5))
	require.NoError(t, err)
	assert.Equal(t, 5, result.Inserted)
	assert.False(t, result.Replaced)

	status, err := imp.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.HasData)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestRun_EmptyDocument(t *testing.T) {
	repo := openRepo(t)
	imp := NewImporter(history.NewParser(), repo, PolicyReject, 0)

	for _, doc := range [][]byte{nil, []byte(""), []byte(" \n\t ")} {
		_, err := imp.Run(context.Background(), doc)
		assert.ErrorIs(t, err, ErrEmptyDocument)
	}
}

func TestRun_NoRecognisedBlocks(t *testing.T) {
	repo := openRepo(t)
	imp := NewImporter(history.NewParser(), repo, PolicyReject, 0)

	result, err := imp.Run(context.Background(), []byte("<html><body>nothing</body></html>"))
	require.NoError(t, err)
	assert.Zero(t, result.Inserted)

	status, err := imp.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.HasData)
}

func TestRun_RejectWhenDataExists(t *testing.T) {
	repo := openRepo(t)
	imp := NewImporter(history.NewParser(), repo, PolicyReject, 0)
	ctx := context.Background()

	_, err := imp.Run(ctx, export(3))
	require.NoError(t, err)

	_, err = imp.Run(ctx, export(7))
	assert.ErrorIs(t, err, ErrAlreadyHasData)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "rejected import must leave data untouched")
}

func TestRun_ReplaceWhenDataExists(t *testing.T) {
	repo := openRepo(t)
	imp := NewImporter(history.NewParser(), repo, PolicyReplace, 0)
	ctx := context.Background()

	_, err := imp.Run(ctx, export(3))
	require.NoError(t, err)

	result, err := imp.Run(ctx, export(7))
	require.NoError(t, err)
	assert.Equal(t, 7, result.Inserted)
	assert.True(t, result.Replaced)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestRun_ChunksInSourceOrder(t *testing.T) {
	repo := openRepo(t)
	imp := NewImporter(history.NewParser(), repo, PolicyReject, 4)
	ctx := context.Background()

	result, err := imp.Run(ctx, export(10))
	require.NoError(t, err)
	assert.Equal(t, 10, result.Inserted)

	page, err := repo.List(ctx, database.ListFilters{Page: 1, Limit: 100})
	require.NoError(t, err)
	require.Len(t, page.Items, 10)

	// Newest first, and row ids follow the order of the document.
	for i, item := range page.Items {
		assert.Equal(t, fmt.Sprintf("Video %d", 9-i), item.Title)
		if i > 0 {
			assert.Less(t, item.ID, page.Items[i-1].ID)
		}
	}
}

func TestRun_RollsBackOnBatchFailure(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	calls := 0
	imp := NewImporter(history.NewParser(), failingRepo{HistoryRepository: repo, failOn: 2, calls: &calls}, PolicyReject, 2)

	_, err := imp.Run(ctx, export(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 2, calls)

	hasAny, err := repo.HasAny(ctx)
	require.NoError(t, err)
	assert.False(t, hasAny, "first batch must be rolled back with the failed one")
}

func TestRun_ReplaceRollsBackDeleteOnFailure(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	_, err := NewImporter(history.NewParser(), repo, PolicyReject, 0).Run(ctx, export(3))
	require.NoError(t, err)

	calls := 0
	imp := NewImporter(history.NewParser(), failingRepo{HistoryRepository: repo, failOn: 1, calls: &calls}, PolicyReplace, 0)

	_, err = imp.Run(ctx, export(5))
	require.Error(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "previous history must survive a failed replace")
}

func TestClear(t *testing.T) {
	repo := openRepo(t)
	imp := NewImporter(history.NewParser(), repo, PolicyReject, 0)
	ctx := context.Background()

	require.NoError(t, imp.Clear(ctx), "clearing an empty store should succeed")

	_, err := imp.Run(ctx, export(2))
	require.NoError(t, err)

	require.NoError(t, imp.Clear(ctx))

	status, err := imp.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.HasData)

	// A reject-policy import is accepted again once cleared.
	result, err := imp.Run(ctx, export(1))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input    string
		expected ConflictPolicy
		wantErr  bool
	}{
		{"reject", PolicyReject, false},
		{"replace", PolicyReplace, false},
		{"", PolicyReject, false},
		{"merge", "", true},
	}

	for _, tt := range tests {
		policy, err := ParsePolicy(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, policy)
	}
}
