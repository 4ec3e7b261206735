package jobs

import (
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
)

const (
	JobKindTicketDispatch = "ticket_dispatch"
)

// Ticket dispatch is at-most-once: a failed send is logged and dropped,
// never retried, so a flaky mail provider cannot duplicate tickets.
const TicketDispatchMaxAttempts = 1

// InsertOptsForKind returns default insert options for a job kind.
func InsertOptsForKind(kind string) river.InsertOpts {
	switch kind {
	case JobKindTicketDispatch:
		return river.InsertOpts{MaxAttempts: TicketDispatchMaxAttempts}
	default:
		return river.InsertOpts{}
	}
}

// NewClientConfig builds a River client configuration.
func NewClientConfig(workers *river.Workers, logger *slog.Logger, hooks []rivertype.Hook) *river.Config {
	config := &river.Config{
		Workers:     workers,
		MaxAttempts: TicketDispatchMaxAttempts,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Hooks: hooks,
	}
	if logger != nil {
		config.Logger = logger
	}
	return config
}

// NewClient creates a River client using pgx v5.
func NewClient(pool *pgxpool.Pool, workers *river.Workers, logger *slog.Logger, hooks []rivertype.Hook) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), NewClientConfig(workers, logger, hooks))
}
