package memory

import (
	"context"

	"practice-arena-service/internal/domain"
)

// The store itself satisfies the question repository, activity log, and
// cascader interfaces. The remaining repositories are thin views so one Store
// can back all of them.

// StudentRepo is the student repository view of a Store.
type StudentRepo struct{ s *Store }

func (s *Store) Students() StudentRepo { return StudentRepo{s: s} }

func (r StudentRepo) Get(ctx context.Context, id string) (domain.Student, error) {
	return r.s.GetStudent(ctx, id)
}

func (r StudentRepo) Save(ctx context.Context, st domain.Student) error {
	return r.s.SaveStudent(ctx, st)
}

func (r StudentRepo) ListStudents(ctx context.Context) ([]domain.Student, error) {
	return r.s.ListStudents(ctx)
}

func (r StudentRepo) ListByPoints(ctx context.Context, offset, limit int) ([]domain.Student, error) {
	return r.s.ListByPoints(ctx, offset, limit)
}

func (r StudentRepo) CountStudents(ctx context.Context) (int, error) {
	return r.s.CountStudents(ctx)
}

// ProgressRepo is the progress-ledger repository view of a Store.
type ProgressRepo struct{ s *Store }

func (s *Store) Progress() ProgressRepo { return ProgressRepo{s: s} }

func (r ProgressRepo) Get(ctx context.Context, studentID, questionID string) (domain.StudentProgress, bool, error) {
	return r.s.GetProgress(ctx, studentID, questionID)
}

func (r ProgressRepo) Save(ctx context.Context, p domain.StudentProgress) error {
	return r.s.SaveProgress(ctx, p)
}

func (r ProgressRepo) CountSolved(ctx context.Context, studentID string) (int, error) {
	return r.s.CountSolved(ctx, studentID)
}

func (r ProgressRepo) CountAttempted(ctx context.Context, studentID string) (int, error) {
	return r.s.CountAttempted(ctx, studentID)
}

func (r ProgressRepo) SolvedQuestionIDs(ctx context.Context, studentID string) (map[string]bool, error) {
	return r.s.SolvedQuestionIDs(ctx, studentID)
}

func (r ProgressRepo) SolvedByDifficulty(ctx context.Context, studentID string) (map[domain.Difficulty]int, error) {
	return r.s.SolvedByDifficulty(ctx, studentID)
}

// SubmissionRepo is the submission repository view of a Store.
type SubmissionRepo struct{ s *Store }

func (s *Store) SubmissionLog() SubmissionRepo { return SubmissionRepo{s: s} }

func (r SubmissionRepo) Create(ctx context.Context, sub domain.Submission) error {
	return r.s.CreateSubmission(ctx, sub)
}

// BadgeRepo is the badge repository view of a Store.
type BadgeRepo struct{ s *Store }

func (s *Store) BadgeDefs() BadgeRepo { return BadgeRepo{s: s} }

func (r BadgeRepo) Get(ctx context.Context, id string) (domain.Badge, error) {
	return r.s.GetBadge(ctx, id)
}

func (r BadgeRepo) Create(ctx context.Context, b domain.Badge) error {
	return r.s.CreateBadge(ctx, b)
}

func (r BadgeRepo) Update(ctx context.Context, b domain.Badge) error {
	return r.s.UpdateBadge(ctx, b)
}

func (r BadgeRepo) List(ctx context.Context) ([]domain.Badge, error) {
	return r.s.ListBadges(ctx)
}

func (r BadgeRepo) ListActive(ctx context.Context) ([]domain.Badge, error) {
	return r.s.ListActiveBadges(ctx)
}
