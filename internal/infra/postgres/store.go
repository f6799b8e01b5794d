package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"practice-arena-service/internal/domain"
)

// QuestionRepo stores catalog rows relationally so tag and difficulty
// filtering happen in SQL.
type QuestionRepo struct {
	pool *pgxpool.Pool
}

func NewQuestionRepo(pool *pgxpool.Pool) *QuestionRepo {
	return &QuestionRepo{pool: pool}
}

const questionColumns = `id, title, description, constraints, difficulty, tags, points, is_active, total_submissions, successful_submissions, added_by, created_at`

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	err := row.Scan(&q.ID, &q.Title, &q.Description, &q.Constraints, &q.Difficulty, &q.Tags,
		&q.Points, &q.IsActive, &q.TotalSubmissions, &q.SuccessfulSubmissions, &q.AddedBy, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}
	return q, nil
}

func (r *QuestionRepo) Get(ctx context.Context, id string) (domain.Question, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, id)
	return scanQuestion(row)
}

func (r *QuestionRepo) Create(ctx context.Context, q domain.Question) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO questions (`+questionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		q.ID, q.Title, q.Description, q.Constraints, q.Difficulty, q.Tags,
		q.Points, q.IsActive, q.TotalSubmissions, q.SuccessfulSubmissions, q.AddedBy, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (r *QuestionRepo) Update(ctx context.Context, q domain.Question) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE questions
		SET title=$2, description=$3, constraints=$4, difficulty=$5, tags=$6, points=$7, is_active=$8
		WHERE id=$1`,
		q.ID, q.Title, q.Description, q.Constraints, q.Difficulty, q.Tags, q.Points, q.IsActive)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (r *QuestionRepo) listQuery(ctx context.Context, query string, args ...interface{}) ([]domain.Question, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *QuestionRepo) ListActive(ctx context.Context) ([]domain.Question, error) {
	return r.listQuery(ctx, `SELECT `+questionColumns+` FROM questions WHERE is_active ORDER BY created_at`)
}

func (r *QuestionRepo) ListActiveByTag(ctx context.Context, tag string) ([]domain.Question, error) {
	return r.listQuery(ctx, `SELECT `+questionColumns+` FROM questions WHERE is_active AND $1 = ANY(tags) ORDER BY created_at`, tag)
}

func (r *QuestionRepo) DistinctActiveTags(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT unnest(tags) FROM questions WHERE is_active`)
	if err != nil {
		return nil, fmt.Errorf("distinct tags: %w", err)
	}
	defer rows.Close()
	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *QuestionRepo) IncrementSubmissionCounters(ctx context.Context, id string, solved bool) error {
	successful := 0
	if solved {
		successful = 1
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE questions
		SET total_submissions = total_submissions + 1,
		    successful_submissions = successful_submissions + $2
		WHERE id=$1`, id, successful)
	if err != nil {
		return fmt.Errorf("increment counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

// StudentRepo stores student aggregates as JSONB documents with the ranking
// keys promoted to columns for ORDER BY.
type StudentRepo struct {
	pool *pgxpool.Pool
}

func NewStudentRepo(pool *pgxpool.Pool) *StudentRepo {
	return &StudentRepo{pool: pool}
}

func (r *StudentRepo) Get(ctx context.Context, id string) (domain.Student, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM students WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	if err != nil {
		return domain.Student{}, fmt.Errorf("load student: %w", err)
	}
	var s domain.Student
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Student{}, fmt.Errorf("unmarshal student: %w", err)
	}
	return s, nil
}

func (r *StudentRepo) Save(ctx context.Context, s domain.Student) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal student: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO students (id, name, role, total_points, data, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE
		SET name=EXCLUDED.name, role=EXCLUDED.role, total_points=EXCLUDED.total_points, data=EXCLUDED.data`,
		s.ID, s.Name, s.Role, s.TotalPoints, raw, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("save student: %w", err)
	}
	return nil
}

func (r *StudentRepo) listQuery(ctx context.Context, query string, args ...interface{}) ([]domain.Student, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()
	var out []domain.Student
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var s domain.Student
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("unmarshal student: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *StudentRepo) ListStudents(ctx context.Context) ([]domain.Student, error) {
	return r.listQuery(ctx, `SELECT data FROM students WHERE role='student'`)
}

func (r *StudentRepo) ListByPoints(ctx context.Context, offset, limit int) ([]domain.Student, error) {
	return r.listQuery(ctx, `
		SELECT data FROM students WHERE role='student'
		ORDER BY total_points DESC, name ASC
		OFFSET $1 LIMIT $2`, offset, limit)
}

func (r *StudentRepo) CountStudents(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM students WHERE role='student'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return n, nil
}

// ProgressRepo stores the ledger rows relationally; the (student, question)
// primary key is the uniqueness constraint the ledger relies on.
type ProgressRepo struct {
	pool *pgxpool.Pool
}

func NewProgressRepo(pool *pgxpool.Pool) *ProgressRepo {
	return &ProgressRepo{pool: pool}
}

func (r *ProgressRepo) Get(ctx context.Context, studentID, questionID string) (domain.StudentProgress, bool, error) {
	var p domain.StudentProgress
	var best []byte
	err := r.pool.QueryRow(ctx, `
		SELECT student_id, question_id, status, attempts, first_attempt, last_attempt, solved_at, points_earned, best
		FROM student_progress WHERE student_id=$1 AND question_id=$2`, studentID, questionID).
		Scan(&p.StudentID, &p.QuestionID, &p.Status, &p.Attempts, &p.FirstAttempt, &p.LastAttempt, &p.SolvedAt, &p.PointsEarned, &best)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StudentProgress{}, false, nil
	}
	if err != nil {
		return domain.StudentProgress{}, false, fmt.Errorf("load progress: %w", err)
	}
	if len(best) > 0 {
		p.Best = &domain.BestSubmission{}
		if err := json.Unmarshal(best, p.Best); err != nil {
			return domain.StudentProgress{}, false, fmt.Errorf("unmarshal best submission: %w", err)
		}
	}
	return p, true, nil
}

func (r *ProgressRepo) Save(ctx context.Context, p domain.StudentProgress) error {
	var best []byte
	if p.Best != nil {
		var err error
		if best, err = json.Marshal(p.Best); err != nil {
			return fmt.Errorf("marshal best submission: %w", err)
		}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO student_progress (student_id, question_id, status, attempts, first_attempt, last_attempt, solved_at, points_earned, best)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (student_id, question_id) DO UPDATE
		SET status=EXCLUDED.status, attempts=EXCLUDED.attempts, last_attempt=EXCLUDED.last_attempt,
		    solved_at=EXCLUDED.solved_at, points_earned=EXCLUDED.points_earned, best=EXCLUDED.best`,
		p.StudentID, p.QuestionID, p.Status, p.Attempts, p.FirstAttempt, p.LastAttempt, p.SolvedAt, p.PointsEarned, best)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (r *ProgressRepo) CountSolved(ctx context.Context, studentID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM student_progress WHERE student_id=$1 AND status='solved'`, studentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count solved: %w", err)
	}
	return n, nil
}

func (r *ProgressRepo) CountAttempted(ctx context.Context, studentID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM student_progress WHERE student_id=$1 AND status IN ('attempted','solved')`, studentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attempted: %w", err)
	}
	return n, nil
}

func (r *ProgressRepo) SolvedQuestionIDs(ctx context.Context, studentID string) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT question_id FROM student_progress WHERE student_id=$1 AND status='solved'`, studentID)
	if err != nil {
		return nil, fmt.Errorf("solved ids: %w", err)
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (r *ProgressRepo) SolvedByDifficulty(ctx context.Context, studentID string) (map[domain.Difficulty]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT q.difficulty, count(*)
		FROM student_progress sp
		JOIN questions q ON q.id = sp.question_id
		WHERE sp.student_id=$1 AND sp.status='solved'
		GROUP BY q.difficulty`, studentID)
	if err != nil {
		return nil, fmt.Errorf("difficulty breakdown: %w", err)
	}
	defer rows.Close()
	out := make(map[domain.Difficulty]int)
	for rows.Next() {
		var d domain.Difficulty
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			return nil, err
		}
		out[d] = n
	}
	return out, rows.Err()
}

// SubmissionRepo appends raw submission history.
type SubmissionRepo struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

func (r *SubmissionRepo) Create(ctx context.Context, sub domain.Submission) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO submissions (id, student_id, question_id, code, language, verdict, points_earned, submitted_at, is_daily_pick)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		sub.ID, sub.StudentID, sub.QuestionID, sub.Code, sub.Language, sub.Verdict, sub.PointsEarned, sub.SubmittedAt, sub.IsDailyPick)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// BadgeRepo stores badge definitions as JSONB documents.
type BadgeRepo struct {
	pool *pgxpool.Pool
}

func NewBadgeRepo(pool *pgxpool.Pool) *BadgeRepo {
	return &BadgeRepo{pool: pool}
}

func (r *BadgeRepo) Get(ctx context.Context, id string) (domain.Badge, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM badges WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Badge{}, domain.ErrBadgeNotFound
	}
	if err != nil {
		return domain.Badge{}, fmt.Errorf("load badge: %w", err)
	}
	var b domain.Badge
	if err := json.Unmarshal(raw, &b); err != nil {
		return domain.Badge{}, fmt.Errorf("unmarshal badge: %w", err)
	}
	return b, nil
}

func (r *BadgeRepo) Create(ctx context.Context, b domain.Badge) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal badge: %w", err)
	}
	if _, err := r.pool.Exec(ctx, `INSERT INTO badges (id, is_active, data) VALUES ($1,$2,$3)`, b.ID, b.IsActive, raw); err != nil {
		return fmt.Errorf("insert badge: %w", err)
	}
	return nil
}

func (r *BadgeRepo) Update(ctx context.Context, b domain.Badge) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal badge: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE badges SET is_active=$2, data=$3 WHERE id=$1`, b.ID, b.IsActive, raw)
	if err != nil {
		return fmt.Errorf("update badge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBadgeNotFound
	}
	return nil
}

func (r *BadgeRepo) listQuery(ctx context.Context, query string) ([]domain.Badge, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()
	var out []domain.Badge
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var b domain.Badge
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("unmarshal badge: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BadgeRepo) List(ctx context.Context) ([]domain.Badge, error) {
	return r.listQuery(ctx, `SELECT data FROM badges ORDER BY id`)
}

func (r *BadgeRepo) ListActive(ctx context.Context) ([]domain.Badge, error) {
	return r.listQuery(ctx, `SELECT data FROM badges WHERE is_active ORDER BY id`)
}

// ActivityRepo appends audit entries.
type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

func (r *ActivityRepo) Record(ctx context.Context, e domain.ActivityEntry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO activity_log (id, student_id, activity_type, details, occurred_at)
		VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.StudentID, e.Type, details, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *ActivityRepo) RecentByStudent(ctx context.Context, studentID string, limit int) ([]domain.ActivityEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, student_id, activity_type, details, occurred_at
		FROM activity_log WHERE student_id=$1
		ORDER BY occurred_at DESC LIMIT $2`, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	defer rows.Close()
	var out []domain.ActivityEntry
	for rows.Next() {
		var e domain.ActivityEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.StudentID, &e.Type, &details, &e.OccurredAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("unmarshal details: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Cascader runs cascading deletes in one transaction so a failed step leaves
// the aggregate in place.
type Cascader struct {
	pool *pgxpool.Pool
}

func NewCascader(pool *pgxpool.Pool) *Cascader {
	return &Cascader{pool: pool}
}

func (c *Cascader) DeleteQuestionCascade(ctx context.Context, questionID string) error {
	return c.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM student_progress WHERE question_id=$1`, questionID); err != nil {
			return fmt.Errorf("delete progress: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM submissions WHERE question_id=$1`, questionID); err != nil {
			return fmt.Errorf("delete submissions: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM activity_log WHERE details->>'questionId' = $1`, questionID); err != nil {
			return fmt.Errorf("delete activity: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM questions WHERE id=$1`, questionID)
		if err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrQuestionNotFound
		}
		return nil
	})
}

func (c *Cascader) DeleteBadgeCascade(ctx context.Context, badgeID string) error {
	return c.inTx(ctx, func(tx pgx.Tx) error {
		// Strip the badge from every student document; points stay.
		rows, err := tx.Query(ctx, `SELECT data FROM students WHERE data->'badges' @> $1`,
			fmt.Sprintf(`[{"badgeId":%q}]`, badgeID))
		if err != nil {
			return fmt.Errorf("find badge holders: %w", err)
		}
		var holders []domain.Student
		for rows.Next() {
			var raw []byte
			if err := rows.Scan(&raw); err != nil {
				rows.Close()
				return err
			}
			var s domain.Student
			if err := json.Unmarshal(raw, &s); err != nil {
				rows.Close()
				return fmt.Errorf("unmarshal student: %w", err)
			}
			holders = append(holders, s)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, s := range holders {
			kept := s.Badges[:0:0]
			for _, b := range s.Badges {
				if b.BadgeID != badgeID {
					kept = append(kept, b)
				}
			}
			s.Badges = kept
			raw, err := json.Marshal(s)
			if err != nil {
				return fmt.Errorf("marshal student: %w", err)
			}
			if _, err := tx.Exec(ctx, `UPDATE students SET data=$2 WHERE id=$1`, s.ID, raw); err != nil {
				return fmt.Errorf("update student: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM activity_log WHERE details->>'badgeId' = $1`, badgeID); err != nil {
			return fmt.Errorf("delete activity: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM badges WHERE id=$1`, badgeID)
		if err != nil {
			return fmt.Errorf("delete badge: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrBadgeNotFound
		}
		return nil
	})
}

func (c *Cascader) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
