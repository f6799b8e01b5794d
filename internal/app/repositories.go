package app

import (
	"context"

	"practice-arena-service/internal/domain"
)

// QuestionRepository is the catalog storage boundary.
type QuestionRepository interface {
	Get(ctx context.Context, id string) (domain.Question, error)
	Create(ctx context.Context, q domain.Question) error
	Update(ctx context.Context, q domain.Question) error
	ListActive(ctx context.Context) ([]domain.Question, error)
	ListActiveByTag(ctx context.Context, tag string) ([]domain.Question, error)
	DistinctActiveTags(ctx context.Context) ([]string, error)
	// IncrementSubmissionCounters bumps totalSubmissions and, when solved is
	// true, successfulSubmissions.
	IncrementSubmissionCounters(ctx context.Context, id string, solved bool) error
}

// StudentRepository stores student aggregates. Save writes the whole record;
// callers hold the per-student lock around read-modify-write sequences.
type StudentRepository interface {
	Get(ctx context.Context, id string) (domain.Student, error)
	Save(ctx context.Context, s domain.Student) error
	// ListStudents returns users with the student role, in no particular order.
	ListStudents(ctx context.Context) ([]domain.Student, error)
	// ListByPoints returns students ordered by totalPoints descending, name
	// ascending, skipping offset records.
	ListByPoints(ctx context.Context, offset, limit int) ([]domain.Student, error)
	CountStudents(ctx context.Context) (int, error)
}

// ProgressRepository stores the per-(student, question) ledger rows.
type ProgressRepository interface {
	Get(ctx context.Context, studentID, questionID string) (domain.StudentProgress, bool, error)
	Save(ctx context.Context, p domain.StudentProgress) error
	CountSolved(ctx context.Context, studentID string) (int, error)
	// CountAttempted counts rows in attempted or solved status.
	CountAttempted(ctx context.Context, studentID string) (int, error)
	SolvedQuestionIDs(ctx context.Context, studentID string) (map[string]bool, error)
	// SolvedByDifficulty groups the student's solved questions by difficulty.
	SolvedByDifficulty(ctx context.Context, studentID string) (map[domain.Difficulty]int, error)
}

// SubmissionRepository stores raw submission history.
type SubmissionRepository interface {
	Create(ctx context.Context, sub domain.Submission) error
}

// BadgeRepository stores badge definitions.
type BadgeRepository interface {
	Get(ctx context.Context, id string) (domain.Badge, error)
	Create(ctx context.Context, b domain.Badge) error
	Update(ctx context.Context, b domain.Badge) error
	List(ctx context.Context) ([]domain.Badge, error)
	ListActive(ctx context.Context) ([]domain.Badge, error)
}

// ActivityLog is the append-only audit stream.
type ActivityLog interface {
	Record(ctx context.Context, e domain.ActivityEntry) error
	RecentByStudent(ctx context.Context, studentID string, limit int) ([]domain.ActivityEntry, error)
}

// Cascader performs all-or-nothing cascading deletes across aggregates. A
// failed step must leave the question or badge itself in place.
type Cascader interface {
	// DeleteQuestionCascade removes a question together with its progress
	// rows, submissions, and referencing activity entries.
	DeleteQuestionCascade(ctx context.Context, questionID string) error
	// DeleteBadgeCascade removes a badge, strips it from every student's
	// badge set, and deletes referencing activity entries.
	DeleteBadgeCascade(ctx context.Context, badgeID string) error
}

// LeaderboardCache is an optional snapshot cache in front of the ranker.
type LeaderboardCache interface {
	Get(ctx context.Context, page, pageSize int) (domain.LeaderboardPage, bool)
	Set(ctx context.Context, lp domain.LeaderboardPage)
}
