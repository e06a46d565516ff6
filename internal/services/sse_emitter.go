package services

import (
	"context"

	"github.com/pierdell/mediaforge-backend/internal/platform/ctxutil"
	"github.com/pierdell/mediaforge-backend/internal/realtime"
	"github.com/pierdell/mediaforge-backend/internal/realtime/bus"
)

// SSEEmitter is the single seam every notifier pushes through, letting a
// deployment swap an in-process hub for a cross-process bus without
// touching notifier logic (spec.md §9 "if horizontally scaled, front
// with a pub/sub bus").
type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

// HubEmitter broadcasts straight to an in-process SSEHub; the right
// choice for a single-replica deployment.
type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	stampTrace(ctx, &msg)
	e.Hub.Broadcast(msg)
}

// BusEmitter publishes onto a cross-process bus (redis_bus.go) instead
// of broadcasting locally; pair with a StartForwarder loop that feeds
// received messages back into the local SSEHub.
type BusEmitter struct{ Bus bus.Bus }

func (e *BusEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	stampTrace(ctx, &msg)
	_ = e.Bus.Publish(ctx, msg)
}

func stampTrace(ctx context.Context, msg *realtime.SSEMessage) {
	td := ctxutil.GetTraceData(ctx)
	if td == nil {
		return
	}
	if msg.TraceID == "" {
		msg.TraceID = td.TraceID
	}
	if msg.RequestID == "" {
		msg.RequestID = td.RequestID
	}
}
