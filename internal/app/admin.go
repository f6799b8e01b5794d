package app

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"practice-arena-service/internal/domain"
)

// AdminService curates the question catalog and badge definitions. Deletes
// cascade through the Cascader, which guarantees the aggregate itself stays
// in place if any cascade step fails.
type AdminService struct {
	questions QuestionRepository
	badges    BadgeRepository
	cascade   Cascader
	clock     Clock
}

func NewAdminService(questions QuestionRepository, badges BadgeRepository, cascade Cascader, clock Clock) *AdminService {
	return &AdminService{questions: questions, badges: badges, cascade: cascade, clock: clock}
}

// QuestionInput is the admin payload for creating or updating a question.
type QuestionInput struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Constraints string            `json:"constraints"`
	Difficulty  domain.Difficulty `json:"difficulty"`
	Tags        []string          `json:"tags"`
	Points      int               `json:"points"`
	IsActive    *bool             `json:"isActive"`
	AddedBy     string            `json:"addedBy"`
}

func (in QuestionInput) validate() error {
	fields := map[string]string{}
	if in.Title == "" {
		fields["title"] = "must not be empty"
	}
	if !in.Difficulty.Valid() {
		fields["difficulty"] = "unknown difficulty"
	}
	if in.Points <= 0 {
		fields["points"] = "must be positive"
	}
	if len(in.Tags) == 0 {
		fields["tags"] = "at least one tag required"
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}
	return nil
}

// CreateQuestion validates and stores a new catalog entry, active by default.
func (a *AdminService) CreateQuestion(ctx context.Context, in QuestionInput) (domain.Question, error) {
	if err := in.validate(); err != nil {
		return domain.Question{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	q := domain.Question{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Constraints: in.Constraints,
		Difficulty:  in.Difficulty,
		Tags:        in.Tags,
		Points:      in.Points,
		IsActive:    active,
		AddedBy:     in.AddedBy,
		CreatedAt:   a.clock.Now(),
	}
	if err := a.questions.Create(ctx, q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

// UpdateQuestion overwrites the editable fields of an existing question.
// Submission counters and creation time are not editable.
func (a *AdminService) UpdateQuestion(ctx context.Context, id string, in QuestionInput) (domain.Question, error) {
	if err := in.validate(); err != nil {
		return domain.Question{}, err
	}
	q, err := a.questions.Get(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	q.Title = in.Title
	q.Description = in.Description
	q.Constraints = in.Constraints
	q.Difficulty = in.Difficulty
	q.Tags = in.Tags
	q.Points = in.Points
	if in.IsActive != nil {
		q.IsActive = *in.IsActive
	}
	if err := a.questions.Update(ctx, q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

// DeleteQuestion hard-deletes a question and cascades to progress rows,
// submissions, and activity entries.
func (a *AdminService) DeleteQuestion(ctx context.Context, id string) error {
	if _, err := a.questions.Get(ctx, id); err != nil {
		return err
	}
	return a.cascade.DeleteQuestionCascade(ctx, id)
}

// BadgeInput is the admin payload for creating or updating a badge.
type BadgeInput struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Icon        string               `json:"icon"`
	Criteria    domain.BadgeCriteria `json:"criteria"`
	Points      int                  `json:"points"`
	IsActive    *bool                `json:"isActive"`
	CreatedBy   string               `json:"createdBy"`
}

func (in BadgeInput) validate() error {
	fields := map[string]string{}
	if in.Name == "" {
		fields["name"] = "must not be empty"
	}
	if !in.Criteria.Type.Valid() {
		fields["criteria.type"] = "unknown criteria type"
	}
	if in.Criteria.Value <= 0 {
		fields["criteria.value"] = "must be positive"
	}
	if in.Criteria.Timeframe != "" && !in.Criteria.Timeframe.Valid() {
		fields["criteria.timeframe"] = "unknown timeframe"
	}
	if in.Points < 0 {
		fields["points"] = "must not be negative"
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}
	return nil
}

// CreateBadge validates and stores a new badge definition. Points default to
// 100, timeframe to all_time.
func (a *AdminService) CreateBadge(ctx context.Context, in BadgeInput) (domain.Badge, error) {
	if err := in.validate(); err != nil {
		return domain.Badge{}, err
	}
	if in.Points == 0 {
		in.Points = 100
	}
	if in.Criteria.Timeframe == "" {
		in.Criteria.Timeframe = domain.TimeframeAllTime
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	b := domain.Badge{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Icon:        in.Icon,
		Criteria:    in.Criteria,
		Points:      in.Points,
		IsActive:    active,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   a.clock.Now(),
	}
	if err := a.badges.Create(ctx, b); err != nil {
		return domain.Badge{}, err
	}
	return b, nil
}

// UpdateBadge overwrites the editable fields of an existing badge.
func (a *AdminService) UpdateBadge(ctx context.Context, id string, in BadgeInput) (domain.Badge, error) {
	if err := in.validate(); err != nil {
		return domain.Badge{}, err
	}
	b, err := a.badges.Get(ctx, id)
	if err != nil {
		return domain.Badge{}, err
	}
	b.Name = in.Name
	b.Description = in.Description
	b.Icon = in.Icon
	b.Criteria = in.Criteria
	if in.Points > 0 {
		b.Points = in.Points
	}
	if in.IsActive != nil {
		b.IsActive = *in.IsActive
	}
	if err := a.badges.Update(ctx, b); err != nil {
		return domain.Badge{}, err
	}
	return b, nil
}

// DeleteBadge hard-deletes a badge, strips it from all students, and removes
// referencing activity entries.
func (a *AdminService) DeleteBadge(ctx context.Context, id string) error {
	if _, err := a.badges.Get(ctx, id); err != nil {
		return err
	}
	return a.cascade.DeleteBadgeCascade(ctx, id)
}

// Tags lists the distinct tags across active questions, sorted.
func (a *AdminService) Tags(ctx context.Context) ([]string, error) {
	tags, err := a.questions.DistinctActiveTags(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(tags)
	return tags, nil
}
