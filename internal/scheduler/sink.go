package scheduler

//go:generate mockgen -source=sink.go -destination=mock_sink_test.go -package=scheduler_test

import (
	"context"

	"StockPulse/internal/model"
)

// Sink is where finished updates go.
type Sink interface {
	// ResolveChannel looks up the chat destination; false means it is unreachable.
	ResolveChannel(ctx context.Context, id int64) (model.Channel, bool)
	Send(ctx context.Context, ch model.Channel, upd model.Update) error
}
