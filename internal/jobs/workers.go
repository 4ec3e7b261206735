package jobs

import (
	"context"
	"fmt"

	"github.com/lamitie/server/internal/email"
	"github.com/lamitie/server/internal/metrics"
	"github.com/lamitie/server/internal/ticket"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"
)

// TicketDispatchArgs carries everything the worker needs so it never has
// to read the students table; a profile edited after enqueue simply gets
// a fresh dispatch from the service.
type TicketDispatchArgs struct {
	StudentULID string `json:"student_ulid"`
	IndexNumber string `json:"index_number"`
	Email       string `json:"email"`
	Name        string `json:"name"`
}

func (TicketDispatchArgs) Kind() string { return JobKindTicketDispatch }

// TicketDispatchWorker renders the QR ticket and emails it.
type TicketDispatchWorker struct {
	river.WorkerDefaults[TicketDispatchArgs]
	Mailer *email.Service
	Logger zerolog.Logger
}

func (TicketDispatchWorker) Kind() string { return JobKindTicketDispatch }

func (w TicketDispatchWorker) Work(ctx context.Context, job *river.Job[TicketDispatchArgs]) error {
	if w.Mailer == nil {
		return fmt.Errorf("mailer not configured")
	}
	if job == nil {
		return fmt.Errorf("ticket dispatch job missing")
	}
	args := job.Args
	if args.IndexNumber == "" || args.Email == "" {
		return fmt.Errorf("ticket dispatch job incomplete: index_number and email are required")
	}

	qrPNG, err := ticket.EncodeQR(args.IndexNumber)
	if err != nil {
		metrics.TicketEmailsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("render ticket for %s: %w", args.IndexNumber, err)
	}

	if err := w.Mailer.SendTicket(ctx, args.Email, args.Name, args.IndexNumber, qrPNG); err != nil {
		metrics.TicketEmailsTotal.WithLabelValues("failed").Inc()
		w.Logger.Error().Err(err).
			Str("index_number", args.IndexNumber).
			Str("student_ulid", args.StudentULID).
			Msg("ticket email failed")
		return fmt.Errorf("send ticket for %s: %w", args.IndexNumber, err)
	}

	metrics.TicketEmailsTotal.WithLabelValues("sent").Inc()
	return nil
}

func NewWorkers(mailer *email.Service, logger zerolog.Logger) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[TicketDispatchArgs](workers, TicketDispatchWorker{
		Mailer: mailer,
		Logger: logger.With().Str("component", "jobs").Logger(),
	})
	return workers
}
