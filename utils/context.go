package utils

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type rqIDKey struct{}

func GetRequestIDFromCtx(ctx context.Context) string {
	rqID, ok := ctx.Value(rqIDKey{}).(string)
	if !ok {
		return ""
	}
	return rqID
}

func CtxWithRqID(ctx context.Context, rqID string) context.Context {
	return context.WithValue(ctx, rqIDKey{}, rqID)
}

// CreateCtxWithRqID builds a request context carrying the request id set by
// the middleware, generating a fresh one when it is missing.
func CreateCtxWithRqID(c echo.Context) context.Context {
	rqID, ok := c.Get("rqID").(string)
	if !ok {
		rqID = uuid.NewString()
	}
	return CtxWithRqID(c.Request().Context(), rqID)
}
