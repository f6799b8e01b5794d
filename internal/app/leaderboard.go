package app

import (
	"context"
	"fmt"
	"sync"

	"practice-arena-service/internal/domain"
)

// Leaderboard projects students into a points-ordered ranking. Ordering is
// totalPoints descending with name ascending as the tie-break, so repeated
// calls over the same data return identical rank assignments. Ranks are dense
// positional ranks: equal points still get distinct consecutive ranks.
type Leaderboard struct {
	students StudentRepository
	cache    LeaderboardCache
}

func NewLeaderboard(students StudentRepository, cache LeaderboardCache) *Leaderboard {
	return &Leaderboard{students: students, cache: cache}
}

// Page returns one page of the ranking. page is 1-based.
func (l *Leaderboard) Page(ctx context.Context, page, pageSize int) (domain.LeaderboardPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	if l.cache != nil {
		if cached, ok := l.cache.Get(ctx, page, pageSize); ok {
			return cached, nil
		}
	}

	offset := (page - 1) * pageSize
	students, err := l.students.ListByPoints(ctx, offset, pageSize)
	if err != nil {
		return domain.LeaderboardPage{}, fmt.Errorf("list by points: %w", err)
	}
	total, err := l.students.CountStudents(ctx)
	if err != nil {
		return domain.LeaderboardPage{}, fmt.Errorf("count students: %w", err)
	}

	rows := make([]domain.LeaderboardRow, 0, len(students))
	for i, s := range students {
		rows = append(rows, domain.LeaderboardRow{
			StudentID:     s.ID,
			Name:          s.Name,
			Rank:          offset + i + 1,
			TotalPoints:   s.TotalPoints,
			CurrentStreak: s.CurrentStreak,
			MaxStreak:     s.MaxStreak,
		})
	}

	result := domain.LeaderboardPage{Page: page, PageSize: pageSize, Total: total, Rows: rows}
	if l.cache != nil {
		l.cache.Set(ctx, result)
	}
	return result, nil
}

// LeaderboardFeed pushes fresh top-of-board snapshots to subscribers whenever
// point totals change.
type LeaderboardFeed struct {
	ranker *Leaderboard
	topN   int

	mu   sync.Mutex
	subs map[chan domain.LeaderboardPage]struct{}
}

func NewLeaderboardFeed(ranker *Leaderboard, topN int) *LeaderboardFeed {
	if topN <= 0 {
		topN = 10
	}
	return &LeaderboardFeed{
		ranker: ranker,
		topN:   topN,
		subs:   make(map[chan domain.LeaderboardPage]struct{}),
	}
}

// Subscribe returns a channel of snapshots, primed with the current standing.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *LeaderboardFeed) Subscribe(ctx context.Context) (<-chan domain.LeaderboardPage, func(), error) {
	initial, err := f.ranker.Page(ctx, 1, f.topN)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.LeaderboardPage, 8)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	ch <- initial

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel, nil
}

// Broadcast fetches a fresh snapshot and fans it out. Slow subscribers have
// their oldest snapshot dropped rather than blocking the sender.
func (f *LeaderboardFeed) Broadcast(ctx context.Context) error {
	snapshot, err := f.ranker.Page(ctx, 1, f.topN)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
	return nil
}
