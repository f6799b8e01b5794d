package app

import (
	"context"
	"fmt"

	"practice-arena-service/internal/domain"
)

// StatsService builds the per-student aggregate view served on profile pages.
type StatsService struct {
	students StudentRepository
	progress ProgressRepository
	activity ActivityLog
}

func NewStatsService(students StudentRepository, progress ProgressRepository, activity ActivityLog) *StatsService {
	return &StatsService{students: students, progress: progress, activity: activity}
}

// StudentStatistics aggregates solve counts, the per-difficulty breakdown, and
// the student's topic stats.
func (s *StatsService) StudentStatistics(ctx context.Context, studentID string) (domain.StudentStatistics, error) {
	student, err := s.students.Get(ctx, studentID)
	if err != nil {
		return domain.StudentStatistics{}, err
	}

	totalSolved, err := s.progress.CountSolved(ctx, studentID)
	if err != nil {
		return domain.StudentStatistics{}, fmt.Errorf("count solved: %w", err)
	}
	totalAttempted, err := s.progress.CountAttempted(ctx, studentID)
	if err != nil {
		return domain.StudentStatistics{}, fmt.Errorf("count attempted: %w", err)
	}
	breakdown, err := s.progress.SolvedByDifficulty(ctx, studentID)
	if err != nil {
		return domain.StudentStatistics{}, fmt.Errorf("difficulty breakdown: %w", err)
	}

	return domain.StudentStatistics{
		TotalSolved:         totalSolved,
		TotalAttempted:      totalAttempted,
		DifficultyBreakdown: breakdown,
		TopicStats:          student.TopicStats,
	}, nil
}

// RecentActivity returns the latest audit entries for a student, newest first.
func (s *StatsService) RecentActivity(ctx context.Context, studentID string, limit int) ([]domain.ActivityEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if _, err := s.students.Get(ctx, studentID); err != nil {
		return nil, err
	}
	return s.activity.RecentByStudent(ctx, studentID, limit)
}
