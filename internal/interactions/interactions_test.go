package interactions

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/eduassist/internal/store"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	s, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewLogger(s.LogRepo())
}

func TestLogInteraction_Appends(t *testing.T) {
	l := newTestLogger(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	out := l.LogInteraction(context.Background(), "u1", "What is osmosis?", "Diffusion of water.")
	require.True(t, out.OK(), "log: %v", out.Err)
	assert.NotZero(t, out.Log.ID)
	assert.Equal(t, fixed, out.Log.CreatedAt)

	logs, err := l.Recent(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "What is osmosis?", logs[0].Question)
	assert.Equal(t, "Diffusion of water.", logs[0].Answer)
	assert.True(t, logs[0].CreatedAt.Equal(fixed))
}

func TestRecent_DefaultLimitAndOrder(t *testing.T) {
	l := newTestLogger(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		l.now = func() time.Time { return at }
		require.True(t, l.LogInteraction(ctx, "u1", fmt.Sprintf("q%02d", i), "a").OK())
	}

	logs, err := l.Recent(ctx, "u1", -1)
	require.NoError(t, err)
	require.Len(t, logs, DefaultRecentLimit)
	assert.Equal(t, "q14", logs[0].Question)
	assert.Equal(t, "q05", logs[len(logs)-1].Question)

	logs, err = l.Recent(ctx, "u1", 3)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestRecent_UnknownUserIsEmpty(t *testing.T) {
	l := newTestLogger(t)
	logs, err := l.Recent(context.Background(), "ghost", 5)
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Empty(t, logs)
}

type failingLogRepo struct{ err error }

func (f failingLogRepo) Append(context.Context, *store.InteractionLog) error { return f.err }
func (f failingLogRepo) Recent(context.Context, string, int) ([]store.InteractionLog, error) {
	return nil, f.err
}

type panickingLogRepo struct{ failingLogRepo }

func (panickingLogRepo) Append(context.Context, *store.InteractionLog) error {
	panic("driver bug")
}

func TestLogInteraction_FailureIsContained(t *testing.T) {
	boom := errors.New("insert failed")
	l := NewLogger(failingLogRepo{err: boom})

	var out Outcome
	require.NotPanics(t, func() {
		out = l.LogInteraction(context.Background(), "u1", "q", "a")
	})
	assert.False(t, out.OK())
	assert.ErrorIs(t, out.Err, boom)

	_, err := l.Recent(context.Background(), "u1", 1)
	assert.ErrorIs(t, err, boom)
}

func TestLogInteraction_PanicIsContained(t *testing.T) {
	l := NewLogger(panickingLogRepo{})

	var out Outcome
	require.NotPanics(t, func() {
		out = l.LogInteraction(context.Background(), "u1", "q", "a")
	})
	assert.False(t, out.OK())
	assert.Contains(t, out.Err.Error(), "driver bug")
}
