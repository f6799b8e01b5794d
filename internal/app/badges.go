package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"practice-arena-service/internal/domain"
)

// BadgeEvaluator scans active badge definitions against a student's current
// aggregate state and grants whichever are newly satisfied.
type BadgeEvaluator struct {
	badges   BadgeRepository
	progress ProgressRepository
	students StudentRepository
	activity ActivityLog
	locks    *StudentLocks
	clock    Clock
}

func NewBadgeEvaluator(badges BadgeRepository, progress ProgressRepository, students StudentRepository, activity ActivityLog, locks *StudentLocks, clock Clock) *BadgeEvaluator {
	return &BadgeEvaluator{
		badges:   badges,
		progress: progress,
		students: students,
		activity: activity,
		locks:    locks,
		clock:    clock,
	}
}

// EvaluateAndGrant loads the student, runs an evaluation pass, and persists
// the result. Safe to call repeatedly: grants are at-most-once.
func (e *BadgeEvaluator) EvaluateAndGrant(ctx context.Context, studentID string) ([]domain.Badge, error) {
	lock := e.locks.For(studentID)
	lock.Lock()
	defer lock.Unlock()

	student, err := e.students.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}
	granted, err := e.evaluate(ctx, &student)
	if err != nil {
		return nil, err
	}
	if len(granted) == 0 {
		return nil, nil
	}
	if err := e.students.Save(ctx, student); err != nil {
		return nil, err
	}
	return granted, nil
}

// evaluate mutates the student in place; the caller holds the student's lock
// and persists. Predicates read state captured before any grant in this pass,
// so badge order cannot affect which badges fire.
func (e *BadgeEvaluator) evaluate(ctx context.Context, s *domain.Student) ([]domain.Badge, error) {
	active, err := e.badges.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}

	solvedCount, err := e.progress.CountSolved(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("count solved: %w", err)
	}
	streak := s.CurrentStreak

	now := e.clock.Now()
	var granted []domain.Badge
	for _, badge := range active {
		if s.HasBadge(badge.ID) {
			continue
		}
		if !satisfied(badge.Criteria, solvedCount, streak) {
			continue
		}
		s.Badges = append(s.Badges, domain.EarnedBadge{BadgeID: badge.ID, EarnedAt: now})
		s.TotalPoints += badge.Points
		granted = append(granted, badge)

		if err := e.activity.Record(ctx, domain.ActivityEntry{
			ID:         uuid.NewString(),
			StudentID:  s.ID,
			Type:       domain.ActivityBadgeEarned,
			Details:    domain.ActivityDetails{BadgeID: badge.ID, PointsEarned: badge.Points},
			OccurredAt: now,
		}); err != nil {
			return granted, err
		}
	}
	return granted, nil
}

// satisfied evaluates a criteria threshold against lifetime cumulative stats.
// The stored timeframe does not window the counts; all criteria read lifetime
// values.
func satisfied(c domain.BadgeCriteria, solvedCount, streak int) bool {
	switch c.Type {
	case domain.CriteriaProblemsSolved:
		return solvedCount >= c.Value
	case domain.CriteriaStreak, domain.CriteriaDailyActivity:
		return streak >= c.Value
	case domain.CriteriaContests:
		// Reserved; there is no contest subsystem.
		return false
	}
	return false
}
