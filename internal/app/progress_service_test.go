package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"practice-arena-service/internal/app"
	"practice-arena-service/internal/domain"
	"practice-arena-service/internal/infra/memory"
)

// verdictGrader returns a fixed verdict for every submission.
type verdictGrader struct{ v domain.Verdict }

func (g verdictGrader) Grade(_ context.Context, _ domain.Question, _, _ string) (domain.Verdict, error) {
	return g.v, nil
}

type testEnv struct {
	store     *memory.Store
	locks     *app.StudentLocks
	progress  *app.ProgressService
	selector  *app.Selector
	evaluator *app.BadgeEvaluator
	stats     *app.StatsService
	admin     *app.AdminService

	mu  sync.Mutex
	now time.Time
}

func (e *testEnv) Now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	e.now = e.now.Add(d)
	e.mu.Unlock()
}

func newTestEnv(grader app.Grader) *testEnv {
	env := &testEnv{
		store: memory.NewStore(),
		locks: app.NewStudentLocks(),
		now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := app.ClockFunc(env.Now)
	accumulator := app.NewAccumulator(env.store, clock)
	env.evaluator = app.NewBadgeEvaluator(env.store.BadgeDefs(), env.store.Progress(), env.store.Students(), env.store, env.locks, clock)
	env.progress = app.NewProgressService(env.store, env.store.Students(), env.store.Progress(), env.store.SubmissionLog(), env.store,
		accumulator, env.evaluator, grader, env.locks, clock)
	env.selector = app.NewSelector(env.store, env.store.Students(), env.store.Progress(), env.locks, clock, 2)
	env.stats = app.NewStatsService(env.store.Students(), env.store.Progress(), env.store)
	env.admin = app.NewAdminService(env.store, env.store.BadgeDefs(), env.store, clock)
	return env
}

func (e *testEnv) addQuestion(ctx context.Context, id string, difficulty domain.Difficulty, points int, tags ...string) {
	_ = e.store.Create(ctx, domain.Question{
		ID:         id,
		Title:      id,
		Difficulty: difficulty,
		Tags:       tags,
		Points:     points,
		IsActive:   true,
		CreatedAt:  e.Now(),
	})
}

func (e *testEnv) addStudent(ctx context.Context, id string) {
	_ = e.store.SaveStudent(ctx, domain.Student{
		ID:        id,
		Name:      id,
		Role:      domain.RoleStudent,
		CreatedAt: e.Now(),
	})
}

func TestFirstSolveAwardsPointsOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(app.AcceptAllGrader{})
	env.addQuestion(ctx, "q1", domain.DifficultyEasy, 20, "arrays")
	env.addStudent(ctx, "alice")

	result, err := env.progress.RecordSubmission(ctx, "alice", "q1", "code", "python")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.PointsEarned != 20 || result.AlreadySolved {
		t.Fatalf("expected 20 fresh points, got %+v", result)
	}

	student, _ := env.store.GetStudent(ctx, "alice")
	if student.TotalPoints != 20 {
		t.Fatalf("expected 20 total points, got %d", student.TotalPoints)
	}
	if student.CurrentStreak != 1 || student.MaxStreak != 1 {
		t.Fatalf("expected streak 1/1, got %d/%d", student.CurrentStreak, student.MaxStreak)
	}
	if len(student.TopicStats) != 1 || student.TopicStats[0].SolvedQuestions != 1 {
		t.Fatalf("expected one solved in arrays, got %+v", student.TopicStats)
	}

	// Resubmitting a solved question bumps attempts but never points.
	result, err = env.progress.RecordSubmission(ctx, "alice", "q1", "better code", "python")
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if !result.AlreadySolved || result.PointsEarned != 0 {
		t.Fatalf("expected alreadySolved with zero points, got %+v", result)
	}
	student, _ = env.store.GetStudent(ctx, "alice")
	if student.TotalPoints != 20 {
		t.Fatalf("points changed on resubmit: %d", student.TotalPoints)
	}
	p, _, _ := env.store.GetProgress(ctx, "alice", "q1")
	if p.Attempts != 2 || p.Status != domain.StatusSolved {
		t.Fatalf("expected 2 attempts solved, got %+v", p)
	}

	q, _ := env.store.Get(ctx, "q1")
	if q.TotalSubmissions != 2 || q.SuccessfulSubmissions != 1 {
		t.Fatalf("expected counters 2/1, got %d/%d", q.TotalSubmissions, q.SuccessfulSubmissions)
	}
}

func TestFailedAttemptsTrackProgressWithoutPoints(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(verdictGrader{v: domain.VerdictAttempted})
	env.addQuestion(ctx, "q1", domain.DifficultyEasy, 20, "arrays")
	env.addStudent(ctx, "alice")

	for i := 0; i < 3; i++ {
		result, err := env.progress.RecordSubmission(ctx, "alice", "q1", "code", "python")
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		if result.PointsEarned != 0 || result.AlreadySolved {
			t.Fatalf("unexpected result for failed attempt: %+v", result)
		}
	}

	p, existed, _ := env.store.GetProgress(ctx, "alice", "q1")
	if !existed || p.Status != domain.StatusAttempted || p.Attempts != 3 {
		t.Fatalf("expected 3 attempts in attempted, got %+v", p)
	}
	student, _ := env.store.GetStudent(ctx, "alice")
	if student.TotalPoints != 0 || student.CurrentStreak != 0 {
		t.Fatalf("failed attempts must not move points or streak: %+v", student)
	}

	// Only the first contact logs a question_attempted entry.
	attempted := 0
	for _, e := range env.store.Activity() {
		if e.Type == domain.ActivityQuestionAttempted {
			attempted++
		}
	}
	if attempted != 1 {
		t.Fatalf("expected one attempted entry, got %d", attempted)
	}
}

func TestSubmissionValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(app.AcceptAllGrader{})
	env.addQuestion(ctx, "q1", domain.DifficultyEasy, 20, "arrays")
	env.addStudent(ctx, "alice")

	var ve *domain.ValidationError
	if _, err := env.progress.RecordSubmission(ctx, "alice", "q1", "", "python"); !errors.As(err, &ve) {
		t.Fatalf("expected validation error for empty code, got %v", err)
	}
	if _, err := env.progress.RecordSubmission(ctx, "alice", "q1", "code", "cobol"); !errors.As(err, &ve) {
		t.Fatalf("expected validation error for unknown language, got %v", err)
	}
	if _, ok := ve.Fields["language"]; !ok {
		t.Fatalf("expected language field in error, got %+v", ve.Fields)
	}
}

func TestSubmitAgainstMissingOrInactiveQuestion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(app.AcceptAllGrader{})
	env.addStudent(ctx, "alice")

	if _, err := env.progress.RecordSubmission(ctx, "alice", "nope", "code", "python"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}

	_ = env.store.Create(ctx, domain.Question{ID: "off", Title: "off", Difficulty: domain.DifficultyEasy, Points: 10, Tags: []string{"x"}, IsActive: false})
	if _, err := env.progress.RecordSubmission(ctx, "alice", "off", "code", "python"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("inactive question must look absent, got %v", err)
	}

	env.addQuestion(ctx, "q1", domain.DifficultyEasy, 10, "x")
	if _, err := env.progress.RecordSubmission(ctx, "ghost", "q1", "code", "python"); !errors.Is(err, domain.ErrStudentNotFound) {
		t.Fatalf("expected student not found, got %v", err)
	}
}

func TestConcurrentFirstSolveAwardsOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(app.AcceptAllGrader{})
	env.addQuestion(ctx, "q1", domain.DifficultyEasy, 30, "arrays")
	env.addStudent(ctx, "alice")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.progress.RecordSubmission(ctx, "alice", "q1", "code", "python"); err != nil {
				t.Errorf("submit failed: %v", err)
			}
		}()
	}
	wg.Wait()

	student, _ := env.store.GetStudent(ctx, "alice")
	if student.TotalPoints != 30 {
		t.Fatalf("points must be awarded exactly once, got %d", student.TotalPoints)
	}
	p, _, _ := env.store.GetProgress(ctx, "alice", "q1")
	if p.Attempts != 8 {
		t.Fatalf("expected 8 attempts, got %d", p.Attempts)
	}
	q, _ := env.store.Get(ctx, "q1")
	if q.SuccessfulSubmissions != 1 {
		t.Fatalf("expected one successful submission, got %d", q.SuccessfulSubmissions)
	}
}

func TestSubmissionRecordsDailyPickFlag(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(app.AcceptAllGrader{})
	env.addQuestion(ctx, "q1", domain.DifficultyEasy, 10, "arrays")
	env.addStudent(ctx, "alice")

	day := domain.Midnight(env.Now())
	student, _ := env.store.GetStudent(ctx, "alice")
	student.DailyQuestion = "q1"
	student.DailyDate = &day
	_ = env.store.SaveStudent(ctx, student)

	if _, err := env.progress.RecordSubmission(ctx, "alice", "q1", "code", "python"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	subs := env.store.Submissions()
	if len(subs) != 1 || !subs[0].IsDailyPick {
		t.Fatalf("expected daily-pick submission, got %+v", subs)
	}

	// A pick left over from a prior day no longer counts.
	env.addQuestion(ctx, "q2", domain.DifficultyEasy, 10, "arrays")
	student, _ = env.store.GetStudent(ctx, "alice")
	stale := day.AddDate(0, 0, -1)
	student.DailyQuestion = "q2"
	student.DailyDate = &stale
	_ = env.store.SaveStudent(ctx, student)

	if _, err := env.progress.RecordSubmission(ctx, "alice", "q2", "code", "python"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	subs = env.store.Submissions()
	if subs[1].IsDailyPick {
		t.Fatalf("stale daily pick must not be flagged: %+v", subs[1])
	}
}

func TestGetProgressDefaultsToNotAttempted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(app.AcceptAllGrader{})

	p, err := env.progress.GetProgress(ctx, "alice", "q1")
	if err != nil {
		t.Fatalf("get progress failed: %v", err)
	}
	if p.Status != domain.StatusNotAttempted || p.Attempts != 0 {
		t.Fatalf("expected empty not_attempted row, got %+v", p)
	}
}
