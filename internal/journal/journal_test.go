package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex/mascot/internal/behavior"
	"github.com/alex/mascot/internal/skin"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndHistory(t *testing.T) {
	j := openJournal(t)
	j.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, "a", behavior.Event{Kind: behavior.EventMoodChanged, From: "curious", To: "sleepy", Elapsed: 1.5}))
	require.NoError(t, j.Record(ctx, "a", behavior.Event{Kind: behavior.EventTrick, Trick: "backflip", Elapsed: 2}))
	require.NoError(t, j.Record(ctx, "b", behavior.Event{Kind: behavior.EventBoundary, Elapsed: 3}))

	got, err := j.History(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, behavior.EventMoodChanged, got[0].Kind)
	assert.Equal(t, "curious", got[0].From)
	assert.Equal(t, "sleepy", got[0].To)
	assert.Equal(t, 1.5, got[0].Elapsed)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), got[0].At)

	assert.Equal(t, behavior.EventTrick, got[1].Kind)
	assert.Equal(t, behavior.Trick("backflip"), got[1].Trick)
	assert.Less(t, got[0].ID, got[1].ID)
}

func TestHistory_LimitKeepsNewest(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, "s", behavior.Event{Kind: behavior.EventActivityChanged, Elapsed: float64(i)}))
	}

	got, err := j.History(ctx, "s", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3.0, got[0].Elapsed)
	assert.Equal(t, 4.0, got[1].Elapsed)
}

func TestHistory_UnknownSession(t *testing.T) {
	j := openJournal(t)

	got, err := j.History(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListener_RecordsEngineEvents(t *testing.T) {
	j := openJournal(t)
	sk, err := skin.Load("devil-imp")
	require.NoError(t, err)

	e, err := behavior.New(sk.EngineConfig(), behavior.WithListener(j.Listener("show")))
	require.NoError(t, err)

	e.TriggerFourthWallBreak()
	e.TriggerBoundaryInteraction()

	counts, err := j.Counts(context.Background(), "show")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[behavior.EventFourthWall])
	assert.Equal(t, 1, counts[behavior.EventBoundary])
	assert.GreaterOrEqual(t, counts[behavior.EventActivityChanged], 1)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	j, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, "s", behavior.Event{Kind: behavior.EventEngagement}))
	require.NoError(t, j.Close())

	j, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer j.Close()

	got, err := j.History(ctx, "s", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, behavior.EventEngagement, got[0].Kind)
}
