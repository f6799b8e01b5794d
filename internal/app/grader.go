package app

import (
	"context"

	"practice-arena-service/internal/domain"
)

// Grader produces a verdict for a submitted solution. Real grading (running
// the code against tests) lives outside this service; the interface accepts
// the full verdict set so a future grader slots in without touching the
// ledger.
type Grader interface {
	Grade(ctx context.Context, q domain.Question, code, language string) (domain.Verdict, error)
}

// AcceptAllGrader marks every submission solved.
type AcceptAllGrader struct{}

func (AcceptAllGrader) Grade(_ context.Context, _ domain.Question, _, _ string) (domain.Verdict, error) {
	return domain.VerdictSolved, nil
}
