package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/smolenkov/portfolio_tracker/data/session"
	"github.com/smolenkov/portfolio_tracker/internal/model"
	"github.com/smolenkov/portfolio_tracker/utils"
)

const SessionCookieName = "session_token"

type Session interface {
	GetSession(ctx context.Context, token string) (model.Session, error)
}

// RequestID assigns a uuid to every request for log correlation.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("rqID", uuid.NewString())
			return next(c)
		}
	}
}

// Logger logs every request with its status and latency.
func Logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			rqID, _ := c.Get("rqID").(string)
			slog.Info(
				"request",
				slog.String("rqID", rqID),
				slog.String("method", c.Request().Method),
				slog.String("uri", c.Request().RequestURI),
				slog.Int("status", c.Response().Status),
				slog.Duration("latency", time.Since(start)),
			)

			return nil
		}
	}
}

// Auth rejects requests without a live session cookie.
func Auth(sessionStore Session) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authorized")
			}

			ctx := utils.CreateCtxWithRqID(c)
			_, err = sessionStore.GetSession(ctx, cookie.Value)
			if err != nil {
				if !errors.Is(err, session.ErrNotFound) {
					rqID := utils.GetRequestIDFromCtx(ctx)
					slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "not authorized")
			}

			return next(c)
		}
	}
}
