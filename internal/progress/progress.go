// Package progress maintains per-user, per-topic running scores.
//
// Each submission increments the attempt count and replaces the score with
// floor((previous + submitted) / 2). This is not a cumulative mean: recent
// submissions weigh more. Stored histories depend on the exact rule, so it
// must not change.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/eduassist/internal/store"
)

var (
	// ErrInvalidInput is returned for an empty user or topic.
	ErrInvalidInput = errors.New("user_id and topic are required")

	// ErrConflict is returned when concurrent writers kept winning the
	// compare-and-swap for maxRounds rounds.
	ErrConflict = errors.New("progress update conflicted with concurrent writers")
)

// maxRounds bounds the read-modify-write retries for one update.
const maxRounds = 16

// Next applies one submission to prev. A nil prev starts a new record.
func Next(prev *store.Progress, score int, now time.Time) store.Progress {
	if prev == nil {
		return store.Progress{
			Attempts:     1,
			Score:        score,
			LastReviewed: now,
		}
	}
	next := *prev
	next.Attempts = prev.Attempts + 1
	next.Score = floorDiv(prev.Score+score, 2)
	next.LastReviewed = now
	return next
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Tracker records score submissions.
type Tracker struct {
	repo store.ProgressRepo
	now  func() time.Time
}

// NewTracker creates a Tracker backed by repo.
func NewTracker(repo store.ProgressRepo) *Tracker {
	return &Tracker{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Update applies one submission atomically and returns the stored record.
// Exactly one write is persisted per successful call, even when other
// callers update the same (user, topic) concurrently.
func (t *Tracker) Update(ctx context.Context, userID, topic string, score int) (*store.Progress, error) {
	userID, topic = strings.TrimSpace(userID), strings.TrimSpace(topic)
	if userID == "" || topic == "" {
		return nil, ErrInvalidInput
	}

	for range maxRounds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prev, err := t.repo.Get(ctx, userID, topic)
		if err != nil {
			return nil, fmt.Errorf("read progress: %w", err)
		}

		next := Next(prev, score, t.now())
		next.UserID, next.Topic = userID, topic

		var ok bool
		if prev == nil {
			ok, err = t.repo.Insert(ctx, &next)
		} else {
			ok, err = t.repo.CompareAndSwap(ctx, &next, prev.Attempts)
		}
		if err != nil {
			return nil, fmt.Errorf("write progress: %w", err)
		}
		if ok {
			return &next, nil
		}
	}
	return nil, ErrConflict
}

// Outcome reports the result of a best-effort operation.
type Outcome struct {
	Progress *store.Progress
	Err      error
}

// OK reports whether the submission was recorded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// RecordScore is the best-effort form of Update: failures are logged and
// returned in the Outcome, never propagated or panicked.
func (t *Tracker) RecordScore(ctx context.Context, userID, topic string, score int) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: fmt.Errorf("record score: panic: %v", r)}
			slog.Warn("failed to record progress", "user_id", userID, "topic", topic, "err", out.Err)
		}
	}()

	p, err := t.Update(ctx, userID, topic, score)
	if err != nil {
		slog.Warn("failed to record progress", "user_id", userID, "topic", topic, "err", err)
		return Outcome{Err: err}
	}
	slog.Debug("recorded progress", "user_id", userID, "topic", topic, "attempts", p.Attempts, "score", p.Score)
	return Outcome{Progress: p}
}

// ForUser returns all of a user's progress records ordered by topic.
func (t *Tracker) ForUser(ctx context.Context, userID string) ([]store.Progress, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	list, err := t.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return list, nil
}
