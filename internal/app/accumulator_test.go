package app_test

import (
	"context"
	"testing"
	"time"

	"practice-arena-service/internal/app"
	"practice-arena-service/internal/domain"
	"practice-arena-service/internal/infra/memory"
)

func TestStreakProgression(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	accumulator := app.NewAccumulator(store, app.ClockFunc(func() time.Time { return now }))

	student := domain.Student{ID: "alice", Name: "alice", Role: domain.RoleStudent}

	// First ever solve starts the streak.
	if err := accumulator.ApplySolve(ctx, &student, 10, []string{"arrays"}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if student.CurrentStreak != 1 || student.MaxStreak != 1 {
		t.Fatalf("expected streak 1/1, got %d/%d", student.CurrentStreak, student.MaxStreak)
	}

	// Second solve the same day holds the streak.
	now = now.Add(5 * time.Hour)
	_ = accumulator.ApplySolve(ctx, &student, 10, nil)
	if student.CurrentStreak != 1 {
		t.Fatalf("same-day solve must not extend streak, got %d", student.CurrentStreak)
	}

	// Next calendar day extends it, even across a short wall-clock gap.
	now = time.Date(2025, 6, 2, 0, 30, 0, 0, time.UTC)
	_ = accumulator.ApplySolve(ctx, &student, 10, nil)
	if student.CurrentStreak != 2 || student.MaxStreak != 2 {
		t.Fatalf("expected streak 2/2, got %d/%d", student.CurrentStreak, student.MaxStreak)
	}

	// Skipping a day resets the current streak but keeps the max.
	now = time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC)
	_ = accumulator.ApplySolve(ctx, &student, 10, nil)
	if student.CurrentStreak != 1 || student.MaxStreak != 2 {
		t.Fatalf("expected reset to 1 with max 2, got %d/%d", student.CurrentStreak, student.MaxStreak)
	}

	if student.TotalPoints != 40 {
		t.Fatalf("expected 40 points, got %d", student.TotalPoints)
	}
}

func TestApplySolveRecordsStreakActivity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	accumulator := app.NewAccumulator(store, app.ClockFunc(func() time.Time { return now }))

	student := domain.Student{ID: "alice", Name: "alice", Role: domain.RoleStudent}
	_ = accumulator.ApplySolve(ctx, &student, 10, []string{"arrays", "math"})

	if len(student.TopicStats) != 2 {
		t.Fatalf("expected stats for both tags, got %+v", student.TopicStats)
	}
	entries := store.Activity()
	if len(entries) != 1 || entries[0].Type != domain.ActivityStreakMaintained {
		t.Fatalf("expected one streak entry, got %+v", entries)
	}
	if entries[0].Details.StreakCount != 1 {
		t.Fatalf("expected streak count 1, got %d", entries[0].Details.StreakCount)
	}
}
