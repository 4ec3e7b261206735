package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lamitie/server/internal/domain/students"
	"github.com/riverqueue/river"
)

// RiverDispatcher enqueues ticket dispatch jobs on River. It implements
// students.Dispatcher.
type RiverDispatcher struct {
	client *river.Client[pgx.Tx]
}

func NewRiverDispatcher(client *river.Client[pgx.Tx]) *RiverDispatcher {
	return &RiverDispatcher{client: client}
}

func (d *RiverDispatcher) DispatchTicket(ctx context.Context, req students.DispatchRequest) error {
	if d.client == nil {
		return fmt.Errorf("river client not configured")
	}
	opts := InsertOptsForKind(JobKindTicketDispatch)
	_, err := d.client.Insert(ctx, TicketDispatchArgs{
		StudentULID: req.StudentULID,
		IndexNumber: req.IndexNumber,
		Email:       req.Email,
		Name:        req.Name,
	}, &opts)
	if err != nil {
		return fmt.Errorf("enqueue ticket dispatch: %w", err)
	}
	return nil
}
