package students

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("student not found")

var ErrDuplicate = errors.New("student already registered")

// Student is a registered festival participant. The index number is the
// identifier encoded into the QR ticket and used for attendance lookup.
type Student struct {
	ID           string
	ULID         string
	IndexNumber  string
	Email        string
	Name         string
	Combination  string
	MobileNumber string
	Attended     bool
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

type Pagination struct {
	Limit int
	After string
}

type ListResult struct {
	Students   []Student
	NextCursor string
}

// Repository is the storage contract for students. Create and Update must
// surface unique-constraint violations as ErrDuplicate; lookups on a missing
// index number return ErrNotFound.
type Repository interface {
	Create(ctx context.Context, student Student) (Student, error)
	GetByIndexNumber(ctx context.Context, indexNumber string) (Student, error)
	GetByEmail(ctx context.Context, email string) (Student, error)
	Update(ctx context.Context, student Student) (Student, error)

	// LockEmail serializes writers for the given email address until the
	// surrounding transaction ends, so an existence check followed by a
	// write cannot race a concurrent registration. Only valid inside
	// Store.WithTx.
	LockEmail(ctx context.Context, email string) error

	// MarkAttended flips the attendance flag for the student with the given
	// index number. The flip must be a conditional write in the store so two
	// concurrent scans produce exactly one transition. Returns the student
	// after the call and whether the flag was already set.
	MarkAttended(ctx context.Context, indexNumber string) (Student, bool, error)

	List(ctx context.Context, pagination Pagination) (ListResult, error)
}

// Store is the aggregate the service operates on. WithTx runs fn against a
// transaction-scoped Store; all reads and writes inside fn share one
// database transaction.
type Store interface {
	Students() Repository
	WithTx(ctx context.Context, fn func(context.Context, Store) error) error
}
