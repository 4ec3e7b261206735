package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lamitie/server/internal/domain/students"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestStudentRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	created, err := repo.Students().Create(ctx, newTestStudent("UGBS1234567", "ama@example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.False(t, created.Attended)
	require.WithinDuration(t, time.Now(), created.RegisteredAt, time.Minute)

	got, err := repo.Students().GetByIndexNumber(ctx, "UGBS1234567")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "ama@example.com", got.Email)
	require.Equal(t, "0244000000", got.MobileNumber)

	byEmail, err := repo.Students().GetByEmail(ctx, "ama@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)
}

func TestStudentRepository_NullMobileNumber(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	student := newTestStudent("UGBS1234567", "ama@example.com")
	student.MobileNumber = ""
	created, err := repo.Students().Create(ctx, student)
	require.NoError(t, err)
	require.Empty(t, created.MobileNumber)
}

func TestStudentRepository_DuplicateIndexNumber(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	_, err = repo.Students().Create(ctx, newTestStudent("UGBS1234567", "ama@example.com"))
	require.NoError(t, err)

	_, err = repo.Students().Create(ctx, newTestStudent("UGBS1234567", "other@example.com"))
	require.ErrorIs(t, err, students.ErrDuplicate)
}

func TestStudentRepository_GetNotFound(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	_, err = repo.Students().GetByIndexNumber(ctx, "UGBS0000000")
	require.ErrorIs(t, err, students.ErrNotFound)

	_, err = repo.Students().GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, students.ErrNotFound)
}

func TestStudentRepository_Update(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	created, err := repo.Students().Create(ctx, newTestStudent("UGBS1234567", "ama@example.com"))
	require.NoError(t, err)

	created.Email = "ama.mensah@example.com"
	created.Combination = "Business"
	updated, err := repo.Students().Update(ctx, created)
	require.NoError(t, err)
	require.Equal(t, "ama.mensah@example.com", updated.Email)
	require.Equal(t, "Business", updated.Combination)
	require.True(t, updated.UpdatedAt.After(updated.RegisteredAt) || updated.UpdatedAt.Equal(updated.RegisteredAt))
}

func TestStudentRepository_UpdateIndexCollision(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	_, err = repo.Students().Create(ctx, newTestStudent("UGBS1234567", "ama@example.com"))
	require.NoError(t, err)
	second, err := repo.Students().Create(ctx, newTestStudent("UGBS7654321", "kofi@example.com"))
	require.NoError(t, err)

	second.IndexNumber = "UGBS1234567"
	_, err = repo.Students().Update(ctx, second)
	require.ErrorIs(t, err, students.ErrDuplicate)
}

func TestStudentRepository_MarkAttended(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	_, err = repo.Students().Create(ctx, newTestStudent("UGBS1234567", "ama@example.com"))
	require.NoError(t, err)

	student, already, err := repo.Students().MarkAttended(ctx, "UGBS1234567")
	require.NoError(t, err)
	require.False(t, already)
	require.True(t, student.Attended)

	student, already, err = repo.Students().MarkAttended(ctx, "UGBS1234567")
	require.NoError(t, err)
	require.True(t, already)
	require.True(t, student.Attended)
}

func TestStudentRepository_MarkAttendedNotFound(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	_, _, err = repo.Students().MarkAttended(ctx, "UGBS0000000")
	require.ErrorIs(t, err, students.ErrNotFound)
}

func TestStudentRepository_MarkAttendedConcurrent(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	_, err = repo.Students().Create(ctx, newTestStudent("UGBS1234567", "ama@example.com"))
	require.NoError(t, err)

	const scanners = 8
	results := make(chan bool, scanners)
	var wg sync.WaitGroup
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, already, err := repo.Students().MarkAttended(ctx, "UGBS1234567")
			if err != nil {
				t.Errorf("mark attended: %v", err)
				return
			}
			results <- already
		}()
	}
	wg.Wait()
	close(results)

	fresh := 0
	for already := range results {
		if !already {
			fresh++
		}
	}
	require.Equal(t, 1, fresh, "exactly one scan should observe the flip")
}

func TestStudentRepository_ListPagination(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	indexNumbers := []string{"UGBS0000001", "UGBS0000002", "UGBS0000003", "UGBS0000004", "UGBS0000005"}
	for i, indexNumber := range indexNumbers {
		student := newTestStudent(indexNumber, indexNumber+"@example.com")
		created, err := repo.Students().Create(ctx, student)
		require.NoError(t, err)
		// Stagger registered_at so ordering is deterministic.
		_, err = pool.Exec(ctx, `UPDATE students SET registered_at = now() - ($2 || ' minutes')::interval WHERE id = $1`,
			created.ID, len(indexNumbers)-i)
		require.NoError(t, err)
	}

	first, err := repo.Students().List(ctx, students.Pagination{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Students, 2)
	require.NotEmpty(t, first.NextCursor)
	require.Equal(t, "UGBS0000005", first.Students[0].IndexNumber)

	second, err := repo.Students().List(ctx, students.Pagination{Limit: 2, After: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Students, 2)

	third, err := repo.Students().List(ctx, students.Pagination{Limit: 2, After: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, third.Students, 1)
	require.Empty(t, third.NextCursor)

	seen := map[string]bool{}
	for _, page := range [][]students.Student{first.Students, second.Students, third.Students} {
		for _, student := range page {
			require.False(t, seen[student.IndexNumber], "duplicate %s across pages", student.IndexNumber)
			seen[student.IndexNumber] = true
		}
	}
	require.Len(t, seen, len(indexNumbers))
}

func TestRepository_WithTxRollback(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	sentinel := students.ErrDuplicate
	err = repo.WithTx(ctx, func(ctx context.Context, store students.Store) error {
		_, err := store.Students().Create(ctx, newTestStudent("UGBS1234567", "ama@example.com"))
		require.NoError(t, err)
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = repo.Students().GetByIndexNumber(ctx, "UGBS1234567")
	require.ErrorIs(t, err, students.ErrNotFound, "rolled-back insert must not be visible")
}

func TestStudentRepository_LockEmailRequiresTransaction(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	require.Error(t, repo.Students().LockEmail(ctx, "ama@example.com"))
}

func TestRegisterConcurrentSameEmail(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	svc := students.NewService(repo, nil, students.Config{UniqueEmail: true}, zerolog.Nop())

	const writers = 4
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, students.RegisterParams{
				IndexNumber: fmt.Sprintf("UGBS000000%d", i),
				Email:       "shared@example.com",
				Name:        "Ama Mensah",
				Combination: "General Arts",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var created int
	for err := range errs {
		if err == nil {
			created++
		} else {
			require.ErrorIs(t, err, students.ErrDuplicate)
		}
	}
	require.Equal(t, 1, created, "exactly one registration may win a shared email")
}
