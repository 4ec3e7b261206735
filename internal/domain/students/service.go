package students

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lamitie/server/internal/sanitize"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// FieldError reports a rejected input field. Malformed requests are mostly
// caught at the API boundary; the service still refuses empty required
// fields so no caller can bypass the contract.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// DispatchRequest asks the ticket pipeline to render a QR ticket for the
// index number and email it to the student.
type DispatchRequest struct {
	StudentULID string
	IndexNumber string
	Email       string
	Name        string
}

// Dispatcher hands a ticket dispatch off to the background queue. The
// request path never waits for rendering or mail transport.
type Dispatcher interface {
	DispatchTicket(ctx context.Context, req DispatchRequest) error
}

type Config struct {
	// UniqueEmail additionally enforces uniqueness on the email address,
	// not just the index number.
	UniqueEmail bool
}

// Service is the sole authority over student registration, profile
// updates, and the attendance transition.
type Service struct {
	store    Store
	dispatch Dispatcher
	cfg      Config
	logger   zerolog.Logger
}

func NewService(store Store, dispatcher Dispatcher, cfg Config, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		dispatch: dispatcher,
		cfg:      cfg,
		logger:   logger.With().Str("component", "students").Logger(),
	}
}

type RegisterParams struct {
	IndexNumber  string
	Email        string
	Name         string
	Combination  string
	MobileNumber string
}

// Register persists a new student and schedules exactly one ticket
// dispatch. Registration success and dispatch success are independent
// outcomes: a queue or mail failure never rolls back the row.
func (s *Service) Register(ctx context.Context, params RegisterParams) (Student, error) {
	cleaned, err := cleanParams(params)
	if err != nil {
		return Student{}, err
	}

	var student Student
	err = s.store.WithTx(ctx, func(ctx context.Context, store Store) error {
		repo := store.Students()

		if s.cfg.UniqueEmail {
			// The lock holds until the transaction ends, so the existence
			// check cannot race a concurrent insert of the same email.
			if err := repo.LockEmail(ctx, cleaned.Email); err != nil {
				return fmt.Errorf("lock email: %w", err)
			}
			if _, err := repo.GetByEmail(ctx, cleaned.Email); err == nil {
				return fmt.Errorf("email %q: %w", cleaned.Email, ErrDuplicate)
			} else if !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("check email: %w", err)
			}
		}

		created, err := repo.Create(ctx, Student{
			ULID:         ulid.Make().String(),
			IndexNumber:  cleaned.IndexNumber,
			Email:        cleaned.Email,
			Name:         cleaned.Name,
			Combination:  cleaned.Combination,
			MobileNumber: cleaned.MobileNumber,
			Attended:     false,
		})
		if err != nil {
			return err
		}
		student = created
		return nil
	})
	if err != nil {
		return Student{}, err
	}

	s.scheduleDispatch(ctx, student)
	return student, nil
}

type UpdateParams struct {
	IndexNumber  string
	Email        string
	Name         string
	Combination  string
	MobileNumber string
}

// UpdateProfile overwrites the mutable fields of the student currently
// identified by indexNumber. A new ticket is dispatched only when the
// email, name, or index number actually changed; combination or mobile
// number edits alone never trigger mail.
func (s *Service) UpdateProfile(ctx context.Context, indexNumber string, params UpdateParams) (Student, error) {
	indexNumber = strings.TrimSpace(indexNumber)
	if indexNumber == "" {
		return Student{}, FieldError{Field: "index_number", Message: "must not be empty"}
	}
	cleaned, err := cleanParams(RegisterParams(params))
	if err != nil {
		return Student{}, err
	}

	var updated Student
	var needsTicket bool
	err = s.store.WithTx(ctx, func(ctx context.Context, store Store) error {
		repo := store.Students()

		existing, err := repo.GetByIndexNumber(ctx, indexNumber)
		if err != nil {
			return err
		}

		if cleaned.IndexNumber != existing.IndexNumber {
			if _, err := repo.GetByIndexNumber(ctx, cleaned.IndexNumber); err == nil {
				return fmt.Errorf("index number %q: %w", cleaned.IndexNumber, ErrDuplicate)
			} else if !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("check index number: %w", err)
			}
		}
		if s.cfg.UniqueEmail && cleaned.Email != existing.Email {
			if err := repo.LockEmail(ctx, cleaned.Email); err != nil {
				return fmt.Errorf("lock email: %w", err)
			}
			if other, err := repo.GetByEmail(ctx, cleaned.Email); err == nil && other.ID != existing.ID {
				return fmt.Errorf("email %q: %w", cleaned.Email, ErrDuplicate)
			} else if err != nil && !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("check email: %w", err)
			}
		}

		needsTicket = cleaned.Email != existing.Email ||
			cleaned.Name != existing.Name ||
			cleaned.IndexNumber != existing.IndexNumber

		existing.IndexNumber = cleaned.IndexNumber
		existing.Email = cleaned.Email
		existing.Name = cleaned.Name
		existing.Combination = cleaned.Combination
		existing.MobileNumber = cleaned.MobileNumber

		updated, err = repo.Update(ctx, existing)
		return err
	})
	if err != nil {
		return Student{}, err
	}

	if needsTicket {
		s.scheduleDispatch(ctx, updated)
	}
	return updated, nil
}

// Scan records attendance for the index number read from a QR ticket.
// Scanning is idempotent: a second scan returns the student unchanged with
// alreadyAttended true. The flip itself is a conditional update in the
// store, so concurrent scans of the same ticket serialize there.
func (s *Service) Scan(ctx context.Context, indexNumber string) (Student, bool, error) {
	indexNumber = strings.TrimSpace(indexNumber)
	if indexNumber == "" {
		return Student{}, false, FieldError{Field: "index_number", Message: "must not be empty"}
	}
	return s.store.Students().MarkAttended(ctx, indexNumber)
}

func (s *Service) Get(ctx context.Context, indexNumber string) (Student, error) {
	indexNumber = strings.TrimSpace(indexNumber)
	if indexNumber == "" {
		return Student{}, FieldError{Field: "index_number", Message: "must not be empty"}
	}
	return s.store.Students().GetByIndexNumber(ctx, indexNumber)
}

func (s *Service) List(ctx context.Context, pagination Pagination) (ListResult, error) {
	if pagination.Limit <= 0 {
		pagination.Limit = 50
	}
	return s.store.Students().List(ctx, pagination)
}

func (s *Service) scheduleDispatch(ctx context.Context, student Student) {
	if s.dispatch == nil {
		return
	}
	err := s.dispatch.DispatchTicket(ctx, DispatchRequest{
		StudentULID: student.ULID,
		IndexNumber: student.IndexNumber,
		Email:       student.Email,
		Name:        student.Name,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("index_number", student.IndexNumber).
			Msg("failed to enqueue ticket dispatch")
	}
}

func cleanParams(params RegisterParams) (RegisterParams, error) {
	cleaned := RegisterParams{
		IndexNumber:  strings.TrimSpace(params.IndexNumber),
		Email:        strings.TrimSpace(params.Email),
		Name:         sanitize.Text(strings.TrimSpace(params.Name)),
		Combination:  sanitize.Text(strings.TrimSpace(params.Combination)),
		MobileNumber: strings.TrimSpace(params.MobileNumber),
	}

	switch {
	case cleaned.IndexNumber == "":
		return cleaned, FieldError{Field: "index_number", Message: "must not be empty"}
	case cleaned.Email == "":
		return cleaned, FieldError{Field: "email", Message: "must not be empty"}
	case cleaned.Name == "":
		return cleaned, FieldError{Field: "name", Message: "must not be empty"}
	case cleaned.Combination == "":
		return cleaned, FieldError{Field: "combination", Message: "must not be empty"}
	}
	return cleaned, nil
}
