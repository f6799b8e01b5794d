package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"practice-arena-service/internal/domain"
)

// Selector computes each student's personalized question of the day and runs
// the daily batch over all students.
type Selector struct {
	questions QuestionRepository
	students  StudentRepository
	progress  ProgressRepository
	locks     *StudentLocks
	clock     Clock
	workers   int

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewSelector(questions QuestionRepository, students StudentRepository, progress ProgressRepository, locks *StudentLocks, clock Clock, workers int) *Selector {
	if workers <= 0 {
		workers = 4
	}
	return &Selector{
		questions: questions,
		students:  students,
		progress:  progress,
		locks:     locks,
		clock:     clock,
		workers:   workers,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRandSeed fixes the RNG for deterministic selection in tests.
func (s *Selector) SetRandSeed(seed int64) {
	s.rndMu.Lock()
	s.rnd = rand.New(rand.NewSource(seed))
	s.rndMu.Unlock()
}

// Current returns the student's stored pick when its effective date is the
// current UTC day, or nil. An assignment from a prior day is treated as
// absent.
func (s *Selector) Current(ctx context.Context, studentID string) (*domain.Question, error) {
	student, err := s.students.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.DailyQuestion == "" || student.DailyDate == nil {
		return nil, nil
	}
	if !domain.Midnight(*student.DailyDate).Equal(domain.Midnight(s.clock.Now())) {
		return nil, nil
	}
	question, err := s.questions.Get(ctx, student.DailyQuestion)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &question, nil
}

// PickFor selects a question for one student and persists it with the given
// effective day. Re-running before the day rolls over overwrites the pending
// pick.
func (s *Selector) PickFor(ctx context.Context, studentID string, effective time.Time) (*domain.Question, error) {
	lock := s.locks.For(studentID)
	lock.Lock()
	defer lock.Unlock()

	student, err := s.students.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	question, err := s.choose(ctx, &student)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, nil
	}

	day := domain.Midnight(effective)
	student.DailyQuestion = question.ID
	student.DailyDate = &day
	if err := s.students.Save(ctx, student); err != nil {
		return nil, err
	}
	return question, nil
}

// RunForAll runs the selection for every student with the given effective day.
// Per-student work is independent; failures are logged and do not stop the
// batch, so an interrupted run leaves the remaining students with yesterday's
// assignment rather than corrupt state.
func (s *Selector) RunForAll(ctx context.Context, effective time.Time) error {
	students, err := s.students.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("list students: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, student := range students {
		studentID := student.ID
		g.Go(func() error {
			if _, err := s.PickFor(ctx, studentID, effective); err != nil {
				log.Printf("daily pick for %s: %v", studentID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// choose implements the selection policy:
//  1. no topic history: oldest question of the lowest difficulty on offer
//  2. weakest topic among stats with totalQuestions >= 1
//  3. fallback: a random tag from the active catalog
//  4. unsolved actives in that topic, easiest first
//  5. fallback: any unsolved active, easiest first
//  6. uniform pick among the lowest-difficulty candidates
func (s *Selector) choose(ctx context.Context, student *domain.Student) (*domain.Question, error) {
	if len(student.TopicStats) == 0 {
		return s.easiestActive(ctx)
	}

	topic := ""
	minSolved := -1
	for _, ts := range student.TopicStats {
		if ts.TotalQuestions < 1 {
			continue
		}
		if minSolved == -1 || ts.SolvedQuestions < minSolved {
			minSolved = ts.SolvedQuestions
			topic = ts.Topic
		}
	}
	if topic == "" {
		tags, err := s.questions.DistinctActiveTags(ctx)
		if err != nil {
			return nil, fmt.Errorf("distinct tags: %w", err)
		}
		if len(tags) == 0 {
			return nil, nil
		}
		topic = tags[s.intn(len(tags))]
	}

	solved, err := s.progress.SolvedQuestionIDs(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("solved ids: %w", err)
	}

	candidates, err := s.questions.ListActiveByTag(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("questions by tag: %w", err)
	}
	candidates = withoutSolved(candidates, solved)

	if len(candidates) == 0 {
		all, err := s.questions.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("active questions: %w", err)
		}
		candidates = withoutSolved(all, solved)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sortByDifficulty(candidates)
	easiest := candidates[:0:0]
	lowest := candidates[0].Difficulty.Rank()
	for _, q := range candidates {
		if q.Difficulty.Rank() != lowest {
			break
		}
		easiest = append(easiest, q)
	}
	pick := easiest[s.intn(len(easiest))]
	return &pick, nil
}

// easiestActive returns the oldest active question at the lowest difficulty
// rank present, for students with no topic history yet.
func (s *Selector) easiestActive(ctx context.Context) (*domain.Question, error) {
	all, err := s.questions.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("active questions: %w", err)
	}
	if len(all) == 0 {
		return nil, nil
	}
	sortByDifficulty(all)
	return &all[0], nil
}

func (s *Selector) intn(n int) int {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.rnd.Intn(n)
}

func withoutSolved(questions []domain.Question, solved map[string]bool) []domain.Question {
	out := questions[:0:0]
	for _, q := range questions {
		if !solved[q.ID] {
			out = append(out, q)
		}
	}
	return out
}

func sortByDifficulty(questions []domain.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].Difficulty.Rank() != questions[j].Difficulty.Rank() {
			return questions[i].Difficulty.Rank() < questions[j].Difficulty.Rank()
		}
		return questions[i].CreatedAt.Before(questions[j].CreatedAt)
	})
}
