package domain

import "time"

// Difficulty is the ordered difficulty scale for questions.
type Difficulty string

const (
	DifficultyCakewalk   Difficulty = "cakewalk"
	DifficultyEasy       Difficulty = "easy"
	DifficultyEasyMedium Difficulty = "easy-medium"
	DifficultyMedium     Difficulty = "medium"
	DifficultyHard       Difficulty = "hard"
)

var difficultyRanks = map[Difficulty]int{
	DifficultyCakewalk:   0,
	DifficultyEasy:       1,
	DifficultyEasyMedium: 2,
	DifficultyMedium:     3,
	DifficultyHard:       4,
}

// Rank returns the position of d on the difficulty scale. Unknown values rank last.
func (d Difficulty) Rank() int {
	if r, ok := difficultyRanks[d]; ok {
		return r
	}
	return len(difficultyRanks)
}

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	_, ok := difficultyRanks[d]
	return ok
}

// Verdict is the grading outcome of a single submission.
type Verdict string

const (
	VerdictSolved    Verdict = "solved"
	VerdictAttempted Verdict = "attempted"
	VerdictPartial   Verdict = "partial"
)

// ProgressStatus tracks a student's standing on one question. It only ever
// advances: not_attempted -> attempted -> solved.
type ProgressStatus string

const (
	StatusNotAttempted ProgressStatus = "not_attempted"
	StatusAttempted    ProgressStatus = "attempted"
	StatusSolved       ProgressStatus = "solved"
)

// Role distinguishes students from administrators. Only students are ranked.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Question is a catalog entry students submit solutions against.
type Question struct {
	ID                    string     `json:"id"`
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	Constraints           string     `json:"constraints,omitempty"`
	Difficulty            Difficulty `json:"difficulty"`
	Tags                  []string   `json:"tags"`
	Points                int        `json:"points"`
	IsActive              bool       `json:"isActive"`
	TotalSubmissions      int        `json:"totalSubmissions"`
	SuccessfulSubmissions int        `json:"successfulSubmissions"`
	AddedBy               string     `json:"addedBy,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
}

// TopicStat accumulates a student's standing within one topic tag.
type TopicStat struct {
	Topic              string `json:"topic"`
	TotalQuestions     int    `json:"totalQuestions"`
	SolvedQuestions    int    `json:"solvedQuestions"`
	AttemptedQuestions int    `json:"attemptedQuestions"`
}

// EarnedBadge records a badge grant on a student. Each badge is granted at
// most once per student.
type EarnedBadge struct {
	BadgeID  string    `json:"badgeId"`
	EarnedAt time.Time `json:"earnedAt"`
}

// Student is a user with progression state attached.
type Student struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Email          string        `json:"email"`
	Role           Role          `json:"role"`
	TotalPoints    int           `json:"totalPoints"`
	CurrentStreak  int           `json:"currentStreak"`
	MaxStreak      int           `json:"maxStreak"`
	LastActiveDate *time.Time    `json:"lastActiveDate,omitempty"`
	TopicStats     []TopicStat   `json:"topicStats,omitempty"`
	Badges         []EarnedBadge `json:"badges,omitempty"`
	DailyQuestion  string        `json:"questionOfTheDay,omitempty"`
	DailyDate      *time.Time    `json:"questionOfTheDayDate,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// HasBadge reports whether the student already holds the given badge.
func (s *Student) HasBadge(badgeID string) bool {
	for _, b := range s.Badges {
		if b.BadgeID == badgeID {
			return true
		}
	}
	return false
}

// TopicStat returns a pointer to the stat entry for topic, creating it if absent.
func (s *Student) TopicStat(topic string) *TopicStat {
	for i := range s.TopicStats {
		if s.TopicStats[i].Topic == topic {
			return &s.TopicStats[i]
		}
	}
	s.TopicStats = append(s.TopicStats, TopicStat{Topic: topic})
	return &s.TopicStats[len(s.TopicStats)-1]
}

// CriteriaType selects which aggregate a badge predicate reads.
type CriteriaType string

const (
	CriteriaProblemsSolved CriteriaType = "problems_solved"
	CriteriaStreak         CriteriaType = "streak"
	CriteriaContests       CriteriaType = "contest_participation"
	CriteriaDailyActivity  CriteriaType = "daily_activity"
)

// Valid reports whether t is a known criteria type.
func (t CriteriaType) Valid() bool {
	switch t {
	case CriteriaProblemsSolved, CriteriaStreak, CriteriaContests, CriteriaDailyActivity:
		return true
	}
	return false
}

// Timeframe is stored on badge criteria but not applied to evaluation; all
// predicates run against lifetime cumulative stats.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
	TimeframeAllTime Timeframe = "all_time"
)

// Valid reports whether tf is a known timeframe.
func (tf Timeframe) Valid() bool {
	switch tf {
	case TimeframeDaily, TimeframeWeekly, TimeframeMonthly, TimeframeAllTime:
		return true
	}
	return false
}

// BadgeCriteria is the threshold predicate a badge is granted on.
type BadgeCriteria struct {
	Type      CriteriaType `json:"type"`
	Value     int          `json:"value"`
	Timeframe Timeframe    `json:"timeframe"`
}

// Badge is an achievement granted when its criteria are met.
type Badge struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        string        `json:"icon,omitempty"`
	Criteria    BadgeCriteria `json:"criteria"`
	Points      int           `json:"points"`
	IsActive    bool          `json:"isActive"`
	CreatedBy   string        `json:"createdBy,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// BestSubmission snapshots the submission that earned a progress row's points.
type BestSubmission struct {
	Code         string `json:"code"`
	Language     string `json:"language"`
	PointsEarned int    `json:"pointsEarned"`
}

// StudentProgress is the one-per-(student, question) ledger row.
type StudentProgress struct {
	StudentID    string          `json:"studentId"`
	QuestionID   string          `json:"questionId"`
	Status       ProgressStatus  `json:"status"`
	Attempts     int             `json:"attempts"`
	FirstAttempt *time.Time      `json:"firstAttemptDate,omitempty"`
	LastAttempt  *time.Time      `json:"lastAttemptDate,omitempty"`
	SolvedAt     *time.Time      `json:"solvedDate,omitempty"`
	Best         *BestSubmission `json:"bestSubmission,omitempty"`
	PointsEarned int             `json:"totalPointsEarned"`
}

// Submission is the raw record of one submitted solution.
type Submission struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"studentId"`
	QuestionID   string    `json:"questionId"`
	Code         string    `json:"code"`
	Language     string    `json:"language"`
	Verdict      Verdict   `json:"verdict"`
	PointsEarned int       `json:"pointsEarned"`
	SubmittedAt  time.Time `json:"submittedAt"`
	IsDailyPick  bool      `json:"isQuestionOfTheDay"`
}

// ActivityType classifies entries in the activity log.
type ActivityType string

const (
	ActivityQuestionSolved    ActivityType = "question_solved"
	ActivityQuestionAttempted ActivityType = "question_attempted"
	ActivityStreakMaintained  ActivityType = "streak_maintained"
	ActivityBadgeEarned       ActivityType = "badge_earned"
)

// ActivityDetails carries the optional references an activity entry points at.
type ActivityDetails struct {
	QuestionID   string `json:"questionId,omitempty"`
	BadgeID      string `json:"badgeId,omitempty"`
	PointsEarned int    `json:"pointsEarned,omitempty"`
	StreakCount  int    `json:"streakCount,omitempty"`
}

// ActivityEntry is an immutable, append-only audit record.
type ActivityEntry struct {
	ID         string          `json:"id"`
	StudentID  string          `json:"studentId"`
	Type       ActivityType    `json:"activityType"`
	Details    ActivityDetails `json:"details"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// SubmissionResult is what a submit call reports back to the caller.
type SubmissionResult struct {
	Verdict       Verdict `json:"status"`
	PointsEarned  int     `json:"pointsEarned"`
	AlreadySolved bool    `json:"alreadySolved"`
	Message       string  `json:"message"`
}

// LeaderboardRow is one ranked student.
type LeaderboardRow struct {
	StudentID     string `json:"studentId"`
	Name          string `json:"name"`
	Rank          int    `json:"rank"`
	TotalPoints   int    `json:"totalPoints"`
	CurrentStreak int    `json:"currentStreak"`
	MaxStreak     int    `json:"maxStreak"`
}

// LeaderboardPage is a page of the points-ordered leaderboard.
type LeaderboardPage struct {
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Total    int              `json:"total"`
	Rows     []LeaderboardRow `json:"rows"`
}

// StudentStatistics is the aggregate view served on profile pages.
type StudentStatistics struct {
	TotalSolved         int                `json:"totalSolved"`
	TotalAttempted      int                `json:"totalAttempted"`
	DifficultyBreakdown map[Difficulty]int `json:"difficultyBreakdown"`
	TopicStats          []TopicStat        `json:"topicStats"`
}

// Midnight normalizes t to the start of its UTC calendar day. All day-boundary
// reasoning (streaks, daily picks) uses UTC midnights.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b (UTC).
func DaysBetween(a, b time.Time) int {
	return int(Midnight(b).Sub(Midnight(a)) / (24 * time.Hour))
}
