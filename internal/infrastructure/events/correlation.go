package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
)

const MetadataOrderID = "order_id"

type correlationKey struct{}

// WithCorrelationID tags ctx so that messages published under it share the id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

func correlationID(ctx context.Context) string {
	if id := CorrelationIDFrom(ctx); id != "" {
		return id
	}
	return watermill.NewUUID()
}
