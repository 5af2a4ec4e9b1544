package lifecycle

import (
    "context"
    "log"
    "time"

    "github.com/lakeview/spot-reservation/internal/model"
    "github.com/lakeview/spot-reservation/internal/queue"
    queue_publisher "github.com/lakeview/spot-reservation/internal/service"
)

// QueueNotifier publishes lifecycle events to RabbitMQ.  Publishing runs
// in a goroutine detached from the request context so a slow broker never
// delays a transition; failures are logged by the publisher and dropped.
type QueueNotifier struct{}

// NewQueueNotifier returns a broker-backed Notifier.
func NewQueueNotifier() *QueueNotifier { return &QueueNotifier{} }

// Notify implements Notifier.
func (n *QueueNotifier) Notify(_ context.Context, kind queue.EventKind, res *model.Reservation) {
    ev := queue.ReservationEvent{
        Kind:          kind,
        ReservationID: res.ID,
        Token:         res.Token,
        SpotID:        res.SpotID,
        StartDate:     res.StartDate.Format(model.DayKey),
        EndDate:       res.EndDate.Format(model.DayKey),
        Status:        string(res.Status),
        Amount:        res.Amount,
        Email:         res.Email,
        FirstName:     res.FirstName,
        LastName:      res.LastName,
        OccurredAt:    time.Now().UTC().Format(time.RFC3339),
    }
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        if err := queue_publisher.PublishReservationEvent(ctx, ev); err != nil {
            log.Printf("lifecycle: publish %s for reservation %d failed: %v", kind, res.ID, err)
        }
    }()
}
