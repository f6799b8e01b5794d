package app_test

import (
	"context"
	"errors"
	"testing"

	"practice-arena-service/internal/app"
	"practice-arena-service/internal/domain"
)

func TestStudentStatistics(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(app.AcceptAllGrader{})
	env.addStudent(ctx, "alice")
	env.addQuestion(ctx, "e1", domain.DifficultyEasy, 20, "arrays")
	env.addQuestion(ctx, "e2", domain.DifficultyEasy, 20, "arrays")
	env.addQuestion(ctx, "m1", domain.DifficultyMedium, 40, "graphs")

	for _, id := range []string{"e1", "e2", "m1"} {
		if _, err := env.progress.RecordSubmission(ctx, "alice", id, "code", "python"); err != nil {
			t.Fatalf("submit %s failed: %v", id, err)
		}
	}

	stats, err := env.stats.StudentStatistics(ctx, "alice")
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.TotalSolved != 3 || stats.TotalAttempted != 3 {
		t.Fatalf("expected 3/3, got %d/%d", stats.TotalSolved, stats.TotalAttempted)
	}
	if stats.DifficultyBreakdown[domain.DifficultyEasy] != 2 || stats.DifficultyBreakdown[domain.DifficultyMedium] != 1 {
		t.Fatalf("unexpected breakdown: %+v", stats.DifficultyBreakdown)
	}

	if _, err := env.stats.StudentStatistics(ctx, "ghost"); !errors.Is(err, domain.ErrStudentNotFound) {
		t.Fatalf("expected student not found, got %v", err)
	}
}

func TestRecentActivityNewestFirst(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(app.AcceptAllGrader{})
	env.addStudent(ctx, "alice")
	env.addQuestion(ctx, "q1", domain.DifficultyEasy, 20, "arrays")
	env.addQuestion(ctx, "q2", domain.DifficultyEasy, 20, "arrays")

	for _, id := range []string{"q1", "q2"} {
		if _, err := env.progress.RecordSubmission(ctx, "alice", id, "code", "python"); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	entries, err := env.stats.RecentActivity(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("activity failed: %v", err)
	}
	// Each solve writes a streak entry and a solved entry.
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[0].Details.QuestionID != "q2" && entries[1].Details.QuestionID != "q2" {
		t.Fatalf("expected newest solve first, got %+v", entries[:2])
	}

	limited, err := env.stats.RecentActivity(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("activity failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit not applied, got %d", len(limited))
	}
}
