package memory

import (
	"context"
	"sort"
	"sync"

	"practice-arena-service/internal/domain"
)

// Store is an in-memory implementation of every app repository plus the
// cascader. It backs tests and the no-database demo mode of the server.
type Store struct {
	mu          sync.RWMutex
	questions   map[string]domain.Question
	students    map[string]domain.Student
	badges      map[string]domain.Badge
	progress    map[string]domain.StudentProgress
	submissions []domain.Submission
	activity    []domain.ActivityEntry
}

func NewStore() *Store {
	return &Store{
		questions: make(map[string]domain.Question),
		students:  make(map[string]domain.Student),
		badges:    make(map[string]domain.Badge),
		progress:  make(map[string]domain.StudentProgress),
	}
}

func progressKey(studentID, questionID string) string {
	return studentID + "/" + questionID
}

// --- QuestionRepository ---

func (s *Store) Get(ctx context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *Store) Create(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = q
	return nil
}

func (s *Store) Update(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.questions[q.ID] = q
	return nil
}

func (s *Store) ListActive(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Question
	for _, q := range s.questions {
		if q.IsActive {
			out = append(out, q)
		}
	}
	sortQuestions(out)
	return out, nil
}

func (s *Store) ListActiveByTag(_ context.Context, tag string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Question
	for _, q := range s.questions {
		if !q.IsActive {
			continue
		}
		for _, t := range q.Tags {
			if t == tag {
				out = append(out, q)
				break
			}
		}
	}
	sortQuestions(out)
	return out, nil
}

func (s *Store) DistinctActiveTags(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var tags []string
	for _, q := range s.questions {
		if !q.IsActive {
			continue
		}
		for _, t := range q.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags, nil
}

func (s *Store) IncrementSubmissionCounters(_ context.Context, id string, solved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.TotalSubmissions++
	if solved {
		q.SuccessfulSubmissions++
	}
	s.questions[id] = q
	return nil
}

// --- StudentRepository ---

func (s *Store) GetStudent(ctx context.Context, id string) (domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	return st, nil
}

func (s *Store) SaveStudent(_ context.Context, st domain.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
	return nil
}

func (s *Store) ListStudents(_ context.Context) ([]domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Student
	for _, st := range s.students {
		if st.Role == domain.RoleStudent {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *Store) ListByPoints(ctx context.Context, offset, limit int) ([]domain.Student, error) {
	all, err := s.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].TotalPoints != all[j].TotalPoints {
			return all[i].TotalPoints > all[j].TotalPoints
		}
		return all[i].Name < all[j].Name
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *Store) CountStudents(ctx context.Context) (int, error) {
	all, err := s.ListStudents(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// --- ProgressRepository ---

func (s *Store) GetProgress(_ context.Context, studentID, questionID string) (domain.StudentProgress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[progressKey(studentID, questionID)]
	return p, ok, nil
}

func (s *Store) SaveProgress(_ context.Context, p domain.StudentProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[progressKey(p.StudentID, p.QuestionID)] = p
	return nil
}

func (s *Store) CountSolved(_ context.Context, studentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.progress {
		if p.StudentID == studentID && p.Status == domain.StatusSolved {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountAttempted(_ context.Context, studentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.progress {
		if p.StudentID == studentID && (p.Status == domain.StatusAttempted || p.Status == domain.StatusSolved) {
			count++
		}
	}
	return count, nil
}

func (s *Store) SolvedQuestionIDs(_ context.Context, studentID string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool)
	for _, p := range s.progress {
		if p.StudentID == studentID && p.Status == domain.StatusSolved {
			out[p.QuestionID] = true
		}
	}
	return out, nil
}

func (s *Store) SolvedByDifficulty(_ context.Context, studentID string) (map[domain.Difficulty]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.Difficulty]int)
	for _, p := range s.progress {
		if p.StudentID != studentID || p.Status != domain.StatusSolved {
			continue
		}
		if q, ok := s.questions[p.QuestionID]; ok {
			out[q.Difficulty]++
		}
	}
	return out, nil
}

// --- SubmissionRepository ---

func (s *Store) CreateSubmission(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, sub)
	return nil
}

// Submissions returns a copy of the stored submissions, for tests.
func (s *Store) Submissions() []domain.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Submission, len(s.submissions))
	copy(out, s.submissions)
	return out
}

// --- BadgeRepository ---

func (s *Store) GetBadge(_ context.Context, id string) (domain.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.badges[id]
	if !ok {
		return domain.Badge{}, domain.ErrBadgeNotFound
	}
	return b, nil
}

func (s *Store) CreateBadge(_ context.Context, b domain.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badges[b.ID] = b
	return nil
}

func (s *Store) UpdateBadge(_ context.Context, b domain.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.badges[b.ID]; !ok {
		return domain.ErrBadgeNotFound
	}
	s.badges[b.ID] = b
	return nil
}

func (s *Store) ListBadges(_ context.Context) ([]domain.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Badge
	for _, b := range s.badges {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListActiveBadges(_ context.Context) ([]domain.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Badge
	for _, b := range s.badges {
		if b.IsActive {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- ActivityLog ---

func (s *Store) Record(_ context.Context, e domain.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, e)
	return nil
}

func (s *Store) RecentByStudent(_ context.Context, studentID string, limit int) ([]domain.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ActivityEntry
	for i := len(s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		if s.activity[i].StudentID == studentID {
			out = append(out, s.activity[i])
		}
	}
	return out, nil
}

// Activity returns a copy of the full log, for tests.
func (s *Store) Activity() []domain.ActivityEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ActivityEntry, len(s.activity))
	copy(out, s.activity)
	return out
}

// --- Cascader ---

// DeleteQuestionCascade removes the question and everything referencing it
// under one lock, children first, so a reader never sees a half-deleted
// aggregate.
func (s *Store) DeleteQuestionCascade(_ context.Context, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[questionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	for key, p := range s.progress {
		if p.QuestionID == questionID {
			delete(s.progress, key)
		}
	}
	s.submissions = filterSubmissions(s.submissions, questionID)
	kept := s.activity[:0]
	for _, e := range s.activity {
		if e.Details.QuestionID != questionID {
			kept = append(kept, e)
		}
	}
	s.activity = kept
	delete(s.questions, questionID)
	return nil
}

// DeleteBadgeCascade removes the badge, strips it from every student, and
// drops referencing activity entries. Students keep points earned from it.
func (s *Store) DeleteBadgeCascade(_ context.Context, badgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.badges[badgeID]; !ok {
		return domain.ErrBadgeNotFound
	}
	for id, st := range s.students {
		kept := st.Badges[:0:0]
		for _, b := range st.Badges {
			if b.BadgeID != badgeID {
				kept = append(kept, b)
			}
		}
		st.Badges = kept
		s.students[id] = st
	}
	keptActivity := s.activity[:0]
	for _, e := range s.activity {
		if e.Details.BadgeID != badgeID {
			keptActivity = append(keptActivity, e)
		}
	}
	s.activity = keptActivity
	delete(s.badges, badgeID)
	return nil
}

func filterSubmissions(subs []domain.Submission, questionID string) []domain.Submission {
	kept := subs[:0]
	for _, sub := range subs {
		if sub.QuestionID != questionID {
			kept = append(kept, sub)
		}
	}
	return kept
}

func sortQuestions(questions []domain.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].Difficulty.Rank() != questions[j].Difficulty.Rank() {
			return questions[i].Difficulty.Rank() < questions[j].Difficulty.Rank()
		}
		return questions[i].CreatedAt.Before(questions[j].CreatedAt)
	})
}
