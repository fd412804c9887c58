package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"

	"github.com/zjrosen/kitties/internal/journal"
	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/log"
	"github.com/zjrosen/kitties/internal/pubsub"
)

type ListEventsRequest struct {
	From  uint64 `query:"from"`
	Limit int    `query:"limit" validate:"gte=0,lte=100"`
}

type StreamEventsRequest struct {
	// From replays the journal from this sequence number before going live.
	From *uint64 `query:"from"`
}

func (s *Server) ListEvents(ctx echo.Context) error {
	var req ListEventsRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, Res{Error: err.Error()})
	}
	if req.Limit == 0 {
		req.Limit = defaultLimit
	}

	tx, err := s.deps.Store.Begin(ctx.Request().Context())
	if err != nil {
		return fail(ctx, err)
	}
	defer func() { _ = tx.Rollback() }()

	total, err := journal.Count(tx)
	if err != nil {
		return fail(ctx, err)
	}
	events, err := journal.Read(tx, req.From, req.Limit)
	if err != nil {
		return fail(ctx, err)
	}
	if events == nil {
		events = []kitty.Event{}
	}

	return ctx.JSON(http.StatusOK, Res{
		Data: events,
		Meta: &Meta{Total: int(total), Skip: int(req.From), Limit: req.Limit},
	})
}

// StreamEvents upgrades to a websocket and writes every committed event as
// JSON until the client goes away or the server shuts down.
func (s *Server) StreamEvents(ctx echo.Context) error {
	var req StreamEventsRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, Res{Error: err.Error()})
	}

	conn, err := websocket.Accept(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// Accept has already written the handshake failure.
		log.ErrorErr(log.CatHTTP, "websocket accept failed", err)
		return nil
	}
	defer conn.CloseNow()

	// Subscribe before replaying so nothing committed in between is lost.
	rctx := conn.CloseRead(ctx.Request().Context())
	live := s.deps.Events.Subscribe(rctx)

	next := uint64(0)
	if req.From != nil {
		backlog, err := journal.List(rctx, s.deps.Store, *req.From, 0)
		if err != nil {
			conn.Close(websocket.StatusInternalError, "failed to read journal")
			return nil
		}
		next = *req.From
		for _, ev := range backlog {
			if err := wsjson.Write(rctx, conn, ev); err != nil {
				return nil
			}
			next = ev.Seq + 1
		}
	}

	err = pubsub.Forward(rctx, live, func(e pubsub.Event[kitty.Event]) error {
		if e.Payload.Seq < next {
			return nil
		}
		return wsjson.Write(rctx, conn, e.Payload)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Debug(log.CatHTTP, "event stream ended", "error", err)
	}
	conn.Close(websocket.StatusNormalClosure, "")
	return nil
}
