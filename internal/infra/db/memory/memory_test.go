package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/evidence-analyzer/internal/domain/analyst"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/checklist"
)

func TestChecklistRepoCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewChecklistRepo()

	c := &checklist.Checklist{ID: "c1", Items: []checklist.Item{{ID: "A-1", Status: checklist.StatusPending}}}
	require.NoError(t, repo.Save(ctx, c))
	c.Items[0].Status = checklist.StatusCompleted

	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, checklist.StatusPending, got.Items[0].Status)

	got.Items[0].AttachEvidence(checklist.Evidence{DocumentName: "x.pdf", Confidence: 0.9})
	again, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, again.Items[0].Evidence)
}

func TestChecklistRepoNotFoundAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewChecklistRepo()
	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, checklist.ErrNotFound)

	require.NoError(t, repo.Save(ctx, &checklist.Checklist{ID: "b"}))
	require.NoError(t, repo.Save(ctx, &checklist.Checklist{ID: "a"}))
	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Error(t, repo.Save(ctx, &checklist.Checklist{}))
}

func TestAnalysisRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepo()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, item := range []string{"A-1", "A-2", "A-1"} {
		require.NoError(t, repo.Save(ctx, &analyst.Analysis{
			ID:          analyst.AnalysisID(string(rune('a' + i))),
			Kind:        analyst.KindMatch,
			ChecklistID: "c1",
			ItemID:      item,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Save(ctx, &analyst.Analysis{ID: "z", ChecklistID: "c2"}))

	latest, err := repo.LatestByItem(ctx, "c1", "A-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, analyst.AnalysisID("c"), latest.ID)

	none, err := repo.LatestByItem(ctx, "c1", "A-9")
	require.NoError(t, err)
	assert.Nil(t, none)

	page, err := repo.Paginate(ctx, "c1", 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, analyst.AnalysisID("c"), page[0].ID)

	page2, err := repo.Paginate(ctx, "c1", 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)

	empty, err := repo.Paginate(ctx, "c1", 5, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)

	all, err := repo.Paginate(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
