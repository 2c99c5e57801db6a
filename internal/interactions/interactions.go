// Package interactions keeps the append-only question/answer history.
package interactions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/eduassist/internal/store"
)

// DefaultRecentLimit is the history size returned when no limit is given.
const DefaultRecentLimit = 10

// Logger appends interaction records.
type Logger struct {
	repo store.LogRepo
	now  func() time.Time
}

// NewLogger creates a Logger backed by repo.
func NewLogger(repo store.LogRepo) *Logger {
	return &Logger{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Outcome reports whether an interaction was recorded.
type Outcome struct {
	Log *store.InteractionLog
	Err error
}

// OK reports whether the record was written.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// LogInteraction appends one question/answer pair stamped with the current
// UTC time. Failures are logged and returned in the Outcome; they never
// interrupt the caller.
func (l *Logger) LogInteraction(ctx context.Context, userID, question, answer string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: fmt.Errorf("log interaction: panic: %v", r)}
			slog.Warn("failed to log interaction", "user_id", userID, "err", out.Err)
		}
	}()

	rec := &store.InteractionLog{
		UserID:    userID,
		Question:  question,
		Answer:    answer,
		CreatedAt: l.now(),
	}
	if err := l.repo.Append(ctx, rec); err != nil {
		slog.Warn("failed to log interaction", "user_id", userID, "err", err)
		return Outcome{Err: err}
	}
	slog.Info("logged interaction", "user_id", userID, "log_id", rec.ID)
	return Outcome{Log: rec}
}

// Recent returns the user's last limit interactions, newest first.
// A non-positive limit uses DefaultRecentLimit.
func (l *Logger) Recent(ctx context.Context, userID string, limit int) ([]store.InteractionLog, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	logs, err := l.repo.Recent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent interactions: %w", err)
	}
	if logs == nil {
		logs = []store.InteractionLog{}
	}
	return logs, nil
}
