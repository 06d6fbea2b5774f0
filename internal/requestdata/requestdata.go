package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// RequestData carries the caller identity the gateway established. This
// service trusts the forwarded headers; verifying them is the identity
// collaborator's job, not ours.
type RequestData struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, ctxKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	rd, _ := ctx.Value(ctxKey{}).(*RequestData)
	return rd
}
