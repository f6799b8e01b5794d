package app_test

import (
	"context"
	"testing"

	"practice-arena-service/internal/app"
	"practice-arena-service/internal/domain"
	"practice-arena-service/internal/infra/memory"
)

func seedRankedStudents(ctx context.Context, store *memory.Store) {
	_ = store.SaveStudent(ctx, domain.Student{ID: "s1", Name: "Alice", Role: domain.RoleStudent, TotalPoints: 100, CurrentStreak: 2, MaxStreak: 5})
	_ = store.SaveStudent(ctx, domain.Student{ID: "s2", Name: "Bob", Role: domain.RoleStudent, TotalPoints: 250})
	_ = store.SaveStudent(ctx, domain.Student{ID: "s3", Name: "Carol", Role: domain.RoleStudent, TotalPoints: 100})
	_ = store.SaveStudent(ctx, domain.Student{ID: "s4", Name: "Dave", Role: domain.RoleStudent, TotalPoints: 0})
	_ = store.SaveStudent(ctx, domain.Student{ID: "a1", Name: "Admin", Role: domain.RoleAdmin, TotalPoints: 999})
}

func TestLeaderboardOrderingAndRanks(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedRankedStudents(ctx, store)
	leaderboard := app.NewLeaderboard(store.Students(), nil)

	page, err := leaderboard.Page(ctx, 1, 10)
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}
	if page.Total != 4 {
		t.Fatalf("admins must not be ranked, total %d", page.Total)
	}
	want := []struct {
		id   string
		rank int
	}{{"s2", 1}, {"s1", 2}, {"s3", 3}, {"s4", 4}}
	for i, w := range want {
		row := page.Rows[i]
		if row.StudentID != w.id || row.Rank != w.rank {
			t.Fatalf("row %d: expected %s at rank %d, got %+v", i, w.id, w.rank, row)
		}
	}
	// Ties break on name, so Alice outranks Carol at equal points.
	if page.Rows[1].Name != "Alice" || page.Rows[2].Name != "Carol" {
		t.Fatalf("tie-break wrong: %+v", page.Rows[1:3])
	}
}

func TestLeaderboardPagination(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedRankedStudents(ctx, store)
	leaderboard := app.NewLeaderboard(store.Students(), nil)

	page, err := leaderboard.Page(ctx, 2, 2)
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}
	if len(page.Rows) != 2 || page.Rows[0].Rank != 3 {
		t.Fatalf("expected ranks to continue across pages, got %+v", page.Rows)
	}

	// Out-of-range pages come back empty but well formed.
	page, err = leaderboard.Page(ctx, 9, 2)
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}
	if len(page.Rows) != 0 || page.Total != 4 {
		t.Fatalf("expected empty page with totals, got %+v", page)
	}

	// Bad inputs clamp to defaults.
	page, _ = leaderboard.Page(ctx, -1, 500)
	if page.Page != 1 || page.PageSize != 50 {
		t.Fatalf("expected clamped paging, got %+v", page)
	}
}

func TestLeaderboardFeedDeliversSnapshots(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedRankedStudents(ctx, store)
	feed := app.NewLeaderboardFeed(app.NewLeaderboard(store.Students(), nil), 3)

	ch, cancel, err := feed.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	initial := <-ch
	if len(initial.Rows) != 3 || initial.Rows[0].StudentID != "s2" {
		t.Fatalf("unexpected initial snapshot: %+v", initial.Rows)
	}

	_ = store.SaveStudent(ctx, domain.Student{ID: "s4", Name: "Dave", Role: domain.RoleStudent, TotalPoints: 500})
	if err := feed.Broadcast(ctx); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	update := <-ch
	if update.Rows[0].StudentID != "s4" {
		t.Fatalf("expected Dave on top after broadcast, got %+v", update.Rows)
	}
}
