package server

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/zjrosen/kitties/internal/command"
	"github.com/zjrosen/kitties/internal/kitty"
)

type Meta struct {
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

type Res struct {
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type Kitty struct {
	ID     kitty.AssetID `json:"id"`
	Owner  string        `json:"owner"`
	Genome string        `json:"genome"`
}

func toKitty(k kitty.Kitty) Kitty {
	return Kitty{ID: k.ID, Owner: k.Owner.String(), Genome: k.Genome.String()}
}

func toKitties(ks []kitty.Kitty) []Kitty {
	out := make([]Kitty, 0, len(ks))
	for _, k := range ks {
		out = append(out, toKitty(k))
	}
	return out
}

// statusFor maps a domain or processor error to an HTTP status.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, kitty.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, kitty.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, kitty.ErrSameParent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, kitty.ErrIndexOverflow):
		return http.StatusConflict
	case errors.Is(err, command.ErrInvalidCommand), errors.As(err, &verrs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, command.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(c echo.Context, err error) error {
	return c.JSON(statusFor(err), Res{Error: err.Error()})
}

// errorHandler renders echo's own errors (unknown route, bad method, panics
// caught by Recover) in the Res envelope.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	_ = c.JSON(code, Res{Error: msg})
}
