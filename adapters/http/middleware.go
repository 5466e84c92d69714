package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/satriahrh/cocoa-fruit/ragchat/adapters/metrics"
	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
	"github.com/satriahrh/cocoa-fruit/ragchat/utils/log"
	"go.uber.org/zap"
)

// Validator plugs go-playground/validator into echo's c.Validate.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// MetricsMiddleware records count and latency per route pattern.
func MetricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			// deferred so aborted streams are counted while their panic unwinds
			defer func() {
				m.RecordRequest(c.Request().Method, c.Path(), c.Response().Status, time.Since(start))
			}()
			if err := next(c); err != nil {
				c.Error(err)
			}
			return nil
		}
	}
}

// ErrorHandler renders every error that reaches echo, including rejections
// from middleware, as a domain.ErrorResponse.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		if werr := writeError(c, err); werr != nil {
			log.WithCtx(requestContext(c)).Error("Failed to write error response", zap.Error(werr))
		}
		return
	}

	resp := domain.ErrorResponse{Error: http.StatusText(he.Code)}
	if msg, ok := he.Message.(string); ok && msg != resp.Error {
		resp.Details = msg
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(he.Code)
	} else {
		werr = c.JSON(he.Code, resp)
	}
	if werr != nil {
		log.WithCtx(requestContext(c)).Error("Failed to write error response", zap.Error(werr))
	}
}
