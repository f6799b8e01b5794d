package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"practice-arena-service/internal/domain"
)

var knownLanguages = map[string]bool{
	"javascript": true,
	"python":     true,
	"java":       true,
	"cpp":        true,
}

// ProgressService is the progress ledger: it turns raw submissions into
// updated student state (attempts, points, streak, topics, badges) and the
// matching activity entries.
type ProgressService struct {
	questions   QuestionRepository
	students    StudentRepository
	progress    ProgressRepository
	submissions SubmissionRepository
	activity    ActivityLog
	accumulator *Accumulator
	evaluator   *BadgeEvaluator
	grader      Grader
	feed        *LeaderboardFeed
	locks       *StudentLocks
	clock       Clock
}

func NewProgressService(
	questions QuestionRepository,
	students StudentRepository,
	progress ProgressRepository,
	submissions SubmissionRepository,
	activity ActivityLog,
	accumulator *Accumulator,
	evaluator *BadgeEvaluator,
	grader Grader,
	locks *StudentLocks,
	clock Clock,
) *ProgressService {
	return &ProgressService{
		questions:   questions,
		students:    students,
		progress:    progress,
		submissions: submissions,
		activity:    activity,
		accumulator: accumulator,
		evaluator:   evaluator,
		grader:      grader,
		locks:       locks,
		clock:       clock,
	}
}

// SetFeed attaches a live leaderboard feed notified after point changes.
func (s *ProgressService) SetFeed(feed *LeaderboardFeed) { s.feed = feed }

// RecordSubmission handles one submitted solution end to end. The whole
// read-modify-write for the student, including cascaded streak and badge
// effects, runs under the student's lock, so a concurrent duplicate
// submission observes the solved status and only bumps attempts.
func (s *ProgressService) RecordSubmission(ctx context.Context, studentID, questionID, code, language string) (domain.SubmissionResult, error) {
	if err := validateSubmission(code, language); err != nil {
		return domain.SubmissionResult{}, err
	}

	question, err := s.questions.Get(ctx, questionID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	if !question.IsActive {
		return domain.SubmissionResult{}, domain.ErrQuestionNotFound
	}

	verdict, err := s.grader.Grade(ctx, question, code, language)
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("grade submission: %w", err)
	}

	lock := s.locks.For(studentID)
	lock.Lock()
	defer lock.Unlock()

	student, err := s.students.Get(ctx, studentID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	now := s.clock.Now()
	solved := verdict == domain.VerdictSolved

	progress, existed, err := s.progress.Get(ctx, studentID, questionID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	if !existed {
		progress = domain.StudentProgress{
			StudentID:    studentID,
			QuestionID:   questionID,
			Status:       domain.StatusAttempted,
			Attempts:     1,
			FirstAttempt: &now,
		}
	} else {
		progress.Attempts++
	}
	progress.LastAttempt = &now

	if err := s.submissions.Create(ctx, domain.Submission{
		ID:           uuid.NewString(),
		StudentID:    studentID,
		QuestionID:   questionID,
		Code:         code,
		Language:     language,
		Verdict:      verdict,
		PointsEarned: solvePoints(solved, question.Points),
		SubmittedAt:  now,
		IsDailyPick:  isDailyPick(&student, questionID, now),
	}); err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("record submission: %w", err)
	}

	firstSolve := solved && progress.Status != domain.StatusSolved
	result := domain.SubmissionResult{Verdict: verdict}

	switch {
	case firstSolve:
		progress.Status = domain.StatusSolved
		progress.SolvedAt = &now
		progress.PointsEarned = question.Points
		progress.Best = &domain.BestSubmission{Code: code, Language: language, PointsEarned: question.Points}

		if err := s.progress.Save(ctx, progress); err != nil {
			return domain.SubmissionResult{}, err
		}
		if err := s.accumulator.ApplySolve(ctx, &student, question.Points, question.Tags); err != nil {
			return domain.SubmissionResult{}, err
		}
		if err := s.activity.Record(ctx, domain.ActivityEntry{
			ID:         uuid.NewString(),
			StudentID:  studentID,
			Type:       domain.ActivityQuestionSolved,
			Details:    domain.ActivityDetails{QuestionID: questionID, PointsEarned: question.Points},
			OccurredAt: now,
		}); err != nil {
			return domain.SubmissionResult{}, err
		}
		if _, err := s.evaluator.evaluate(ctx, &student); err != nil {
			return domain.SubmissionResult{}, err
		}
		result.PointsEarned = question.Points
		result.Message = "Solution accepted!"

	case solved:
		// Already solved before: attempts advance, points and badges do not.
		if progress.Best == nil || question.Points >= progress.Best.PointsEarned {
			progress.Best = &domain.BestSubmission{Code: code, Language: language, PointsEarned: question.Points}
		}
		if err := s.progress.Save(ctx, progress); err != nil {
			return domain.SubmissionResult{}, err
		}
		result.AlreadySolved = true
		result.Message = "Solution accepted!"

	default:
		if err := s.progress.Save(ctx, progress); err != nil {
			return domain.SubmissionResult{}, err
		}
		if !existed {
			if err := s.activity.Record(ctx, domain.ActivityEntry{
				ID:         uuid.NewString(),
				StudentID:  studentID,
				Type:       domain.ActivityQuestionAttempted,
				Details:    domain.ActivityDetails{QuestionID: questionID},
				OccurredAt: now,
			}); err != nil {
				return domain.SubmissionResult{}, err
			}
		}
		result.Message = "Keep trying!"
	}

	if err := s.students.Save(ctx, student); err != nil {
		return domain.SubmissionResult{}, err
	}
	if err := s.questions.IncrementSubmissionCounters(ctx, questionID, firstSolve); err != nil {
		return domain.SubmissionResult{}, err
	}

	if firstSolve && s.feed != nil {
		if err := s.feed.Broadcast(ctx); err != nil {
			log.Printf("leaderboard broadcast: %v", err)
		}
	}
	return result, nil
}

// GetProgress returns the ledger row for a pair, defaulting to a
// not_attempted row when none exists yet.
func (s *ProgressService) GetProgress(ctx context.Context, studentID, questionID string) (domain.StudentProgress, error) {
	progress, existed, err := s.progress.Get(ctx, studentID, questionID)
	if err != nil {
		return domain.StudentProgress{}, err
	}
	if !existed {
		return domain.StudentProgress{
			StudentID:  studentID,
			QuestionID: questionID,
			Status:     domain.StatusNotAttempted,
		}, nil
	}
	return progress, nil
}

func validateSubmission(code, language string) error {
	fields := map[string]string{}
	if code == "" {
		fields["code"] = "must not be empty"
	}
	if language == "" {
		fields["language"] = "must not be empty"
	} else if !knownLanguages[language] {
		fields["language"] = "unsupported language"
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}
	return nil
}

func solvePoints(solved bool, points int) int {
	if solved {
		return points
	}
	return 0
}

// isDailyPick reports whether the submission targets the student's current
// question of the day. A pick from a prior day does not count.
func isDailyPick(s *domain.Student, questionID string, now time.Time) bool {
	if s.DailyQuestion != questionID || s.DailyDate == nil {
		return false
	}
	return domain.Midnight(*s.DailyDate).Equal(domain.Midnight(now))
}
