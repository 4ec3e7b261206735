package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lamitie/server/internal/api/pagination"
	"github.com/lamitie/server/internal/domain/students"
	"github.com/lamitie/server/internal/metrics"
)

const uniqueViolationCode = "23505"

const studentColumns = `id, ulid, index_number, email, name, combination, mobile_number, attended, registered_at, updated_at`

type studentRow struct {
	ID           string
	ULID         string
	IndexNumber  string
	Email        string
	Name         string
	Combination  string
	MobileNumber *string
	Attended     bool
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

func (row studentRow) toDomain() students.Student {
	return students.Student{
		ID:           row.ID,
		ULID:         row.ULID,
		IndexNumber:  row.IndexNumber,
		Email:        row.Email,
		Name:         row.Name,
		Combination:  row.Combination,
		MobileNumber: derefString(row.MobileNumber),
		Attended:     row.Attended,
		RegisteredAt: row.RegisteredAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func scanStudent(row pgx.Row) (students.Student, error) {
	var r studentRow
	err := row.Scan(&r.ID, &r.ULID, &r.IndexNumber, &r.Email, &r.Name,
		&r.Combination, &r.MobileNumber, &r.Attended, &r.RegisteredAt, &r.UpdatedAt)
	if err != nil {
		return students.Student{}, err
	}
	return r.toDomain(), nil
}

func (r *StudentRepository) Create(ctx context.Context, student students.Student) (students.Student, error) {
	start := time.Now()
	created, err := scanStudent(r.queryer().QueryRow(ctx, `
		INSERT INTO students (ulid, index_number, email, name, combination, mobile_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+studentColumns,
		student.ULID, student.IndexNumber, student.Email, student.Name,
		student.Combination, nullableString(student.MobileNumber)))
	metrics.RecordQuery("insert_student", start, err)
	if err != nil {
		if isUniqueViolation(err) {
			return students.Student{}, fmt.Errorf("student %q: %w", student.IndexNumber, students.ErrDuplicate)
		}
		return students.Student{}, fmt.Errorf("insert student: %w", err)
	}
	return created, nil
}

func (r *StudentRepository) GetByIndexNumber(ctx context.Context, indexNumber string) (students.Student, error) {
	start := time.Now()
	student, err := scanStudent(r.queryer().QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE index_number = $1`, indexNumber))
	metrics.RecordQuery("select_student_by_index", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return students.Student{}, students.ErrNotFound
		}
		return students.Student{}, fmt.Errorf("select student: %w", err)
	}
	return student, nil
}

func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (students.Student, error) {
	start := time.Now()
	student, err := scanStudent(r.queryer().QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE email = $1`, email))
	metrics.RecordQuery("select_student_by_email", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return students.Student{}, students.ErrNotFound
		}
		return students.Student{}, fmt.Errorf("select student by email: %w", err)
	}
	return student, nil
}

// LockEmail takes a transaction-scoped advisory lock on the email so two
// registrations with the same address serialize. Postgres releases the
// lock at commit or rollback; by then the winner's row is visible to the
// loser's duplicate check.
func (r *StudentRepository) LockEmail(ctx context.Context, email string) error {
	if r.tx == nil {
		return fmt.Errorf("lock email: requires a transaction")
	}
	start := time.Now()
	_, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, email)
	metrics.RecordQuery("lock_email", start, err)
	if err != nil {
		return fmt.Errorf("lock email: %w", err)
	}
	return nil
}

func (r *StudentRepository) Update(ctx context.Context, student students.Student) (students.Student, error) {
	start := time.Now()
	updated, err := scanStudent(r.queryer().QueryRow(ctx, `
		UPDATE students
		SET index_number = $2, email = $3, name = $4, combination = $5,
		    mobile_number = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+studentColumns,
		student.ID, student.IndexNumber, student.Email, student.Name,
		student.Combination, nullableString(student.MobileNumber)))
	metrics.RecordQuery("update_student", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return students.Student{}, students.ErrNotFound
		}
		if isUniqueViolation(err) {
			return students.Student{}, fmt.Errorf("student %q: %w", student.IndexNumber, students.ErrDuplicate)
		}
		return students.Student{}, fmt.Errorf("update student: %w", err)
	}
	return updated, nil
}

// MarkAttended flips attended in a single conditional UPDATE. Under
// concurrent scans the row lock serializes the writers and exactly one
// sees the flip; the rest fall through to the SELECT and report already.
func (r *StudentRepository) MarkAttended(ctx context.Context, indexNumber string) (students.Student, bool, error) {
	start := time.Now()
	student, err := scanStudent(r.queryer().QueryRow(ctx, `
		UPDATE students
		SET attended = true, updated_at = now()
		WHERE index_number = $1 AND attended = false
		RETURNING `+studentColumns, indexNumber))
	metrics.RecordQuery("mark_attended", start, err)
	if err == nil {
		return student, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return students.Student{}, false, fmt.Errorf("mark attended: %w", err)
	}

	// No row flipped: either already attended or unknown.
	student, err = r.GetByIndexNumber(ctx, indexNumber)
	if err != nil {
		return students.Student{}, false, err
	}
	return student, true, nil
}

func (r *StudentRepository) List(ctx context.Context, p students.Pagination) (students.ListResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}

	args := []any{limit + 1}
	query := `
		SELECT ` + studentColumns + `
		FROM students`
	if p.After != "" {
		cursor, err := pagination.DecodeStudentCursor(p.After)
		if err != nil {
			return students.ListResult{}, fmt.Errorf("list students: %w", err)
		}
		query += `
		WHERE (registered_at, ulid) < ($2, $3)`
		args = append(args, cursor.Timestamp, cursor.ULID)
	}
	query += `
		ORDER BY registered_at DESC, ulid DESC
		LIMIT $1`

	start := time.Now()
	rows, err := r.queryer().Query(ctx, query, args...)
	metrics.RecordQuery("list_students", start, err)
	if err != nil {
		return students.ListResult{}, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []students.Student
	for rows.Next() {
		var r studentRow
		if err := rows.Scan(&r.ID, &r.ULID, &r.IndexNumber, &r.Email, &r.Name,
			&r.Combination, &r.MobileNumber, &r.Attended, &r.RegisteredAt, &r.UpdatedAt); err != nil {
			return students.ListResult{}, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, r.toDomain())
	}
	if err := rows.Err(); err != nil {
		return students.ListResult{}, fmt.Errorf("iterate students: %w", err)
	}

	result := students.ListResult{Students: out}
	if len(out) > limit {
		result.Students = out[:limit]
		last := result.Students[limit-1]
		result.NextCursor = pagination.EncodeStudentCursor(last.RegisteredAt, last.ULID)
	}
	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
