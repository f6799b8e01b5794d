package app

import (
	"context"

	"github.com/google/uuid"

	"practice-arena-service/internal/domain"
)

// Accumulator applies the point, topic, and streak effects of a first solve to
// a student aggregate. It mutates the student in place; the caller holds the
// student's lock and persists afterwards.
type Accumulator struct {
	activity ActivityLog
	clock    Clock
}

func NewAccumulator(activity ActivityLog, clock Clock) *Accumulator {
	return &Accumulator{activity: activity, clock: clock}
}

// ApplySolve runs on every first-solve event. Points and topic counts advance
// unconditionally; the streak counters are day-gated.
func (a *Accumulator) ApplySolve(ctx context.Context, s *domain.Student, pointsEarned int, topics []string) error {
	s.TotalPoints += pointsEarned

	for _, topic := range topics {
		s.TopicStat(topic).SolvedQuestions++
	}

	now := a.clock.Now()
	switch {
	case s.LastActiveDate == nil:
		s.CurrentStreak = 1
		s.MaxStreak = 1
	default:
		switch gap := domain.DaysBetween(*s.LastActiveDate, now); {
		case gap == 1:
			s.CurrentStreak++
			if s.CurrentStreak > s.MaxStreak {
				s.MaxStreak = s.CurrentStreak
			}
		case gap > 1:
			s.CurrentStreak = 1
		}
		// Same day: streak counters hold.
	}
	s.LastActiveDate = &now

	return a.activity.Record(ctx, domain.ActivityEntry{
		ID:         uuid.NewString(),
		StudentID:  s.ID,
		Type:       domain.ActivityStreakMaintained,
		Details:    domain.ActivityDetails{StreakCount: s.CurrentStreak},
		OccurredAt: now,
	})
}
