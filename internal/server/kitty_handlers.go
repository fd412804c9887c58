package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/kitties/internal/command"
	"github.com/zjrosen/kitties/internal/kitty"
)

const defaultLimit = 20

type ListKittiesRequest struct {
	Owner string `query:"owner"`
	Skip  int    `query:"skip" validate:"gte=0"`
	Limit int    `query:"limit" validate:"gte=0,lte=100"`
}

type TransferKittyRequest struct {
	ID string `param:"id"`
	To string `json:"to" validate:"required"`
}

type BreedKittyRequest struct {
	Parent1 *kitty.AssetID `json:"parent_1" validate:"required"`
	Parent2 *kitty.AssetID `json:"parent_2" validate:"required"`
}

func (s *Server) ListKitties(ctx echo.Context) error {
	var req ListKittiesRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, Res{Error: err.Error()})
	}
	if req.Limit == 0 {
		req.Limit = defaultLimit
	}

	rctx := ctx.Request().Context()
	var (
		list  []kitty.Kitty
		total int
	)
	if req.Owner != "" {
		owned, err := s.deps.Query.Owned(rctx, kitty.OwnerID(req.Owner))
		if err != nil {
			return fail(ctx, err)
		}
		total = len(owned)
		list = page(owned, req.Skip, req.Limit)
	} else {
		n, err := s.deps.Query.Count(rctx)
		if err != nil {
			return fail(ctx, err)
		}
		list, err = s.deps.Query.List(rctx, req.Skip, req.Limit)
		if err != nil {
			return fail(ctx, err)
		}
		total = int(n)
	}

	return ctx.JSON(http.StatusOK, Res{
		Data: toKitties(list),
		Meta: &Meta{Total: total, Skip: req.Skip, Limit: req.Limit},
	})
}

func (s *Server) GetKitty(ctx echo.Context) error {
	id, err := kitty.ParseAssetID(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Res{Error: err.Error()})
	}
	k, err := s.deps.Query.Kitty(ctx.Request().Context(), id)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toKitty(k)})
}

func (s *Server) CreateKitty(ctx echo.Context) error {
	cmd := command.NewCreateKittyCommand(command.SourceHTTP, caller(ctx))
	return s.submit(ctx, cmd, &cmd.BaseCommand, http.StatusCreated)
}

func (s *Server) TransferKitty(ctx echo.Context) error {
	var req TransferKittyRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, Res{Error: err.Error()})
	}
	id, err := kitty.ParseAssetID(req.ID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, Res{Error: err.Error()})
	}

	cmd := command.NewTransferKittyCommand(command.SourceHTTP, caller(ctx), kitty.OwnerID(req.To), id)
	return s.submit(ctx, cmd, &cmd.BaseCommand, http.StatusOK)
}

func (s *Server) BreedKitty(ctx echo.Context) error {
	var req BreedKittyRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, Res{Error: err.Error()})
	}

	cmd := command.NewBreedKittyCommand(command.SourceHTTP, caller(ctx), *req.Parent1, *req.Parent2)
	return s.submit(ctx, cmd, &cmd.BaseCommand, http.StatusCreated)
}

// submit runs cmd through the processor and renders the outcome. The request
// id becomes the command trace id and the request span becomes its parent.
func (s *Server) submit(ctx echo.Context, cmd command.Command, base *command.BaseCommand, okStatus int) error {
	rctx := ctx.Request().Context()
	base.SetTraceID(ctx.Response().Header().Get(echo.HeaderXRequestID))
	if sc := trace.SpanContextFromContext(rctx); sc.IsValid() {
		base.SetSpanContext(sc)
	}

	res, err := s.deps.Commands.SubmitAndWait(rctx, cmd)
	if err != nil {
		return fail(ctx, err)
	}
	if !res.Success {
		return fail(ctx, res.Error)
	}
	return ctx.JSON(okStatus, Res{Data: res.Data})
}

func caller(ctx echo.Context) kitty.OwnerID {
	return kitty.OwnerID(ctx.Request().Header.Get(HeaderCallerID))
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	end := min(skip+limit, len(items))
	return items[skip:end]
}
