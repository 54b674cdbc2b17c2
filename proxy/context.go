package proxy

import (
	"context"
	"fmt"
	"math/rand"

	"messagebridge/internal"
)

func withRequestID(ctx context.Context, requestID string) context.Context {
	return internal.WithRequestID(ctx, requestID)
}

func getRequestID(ctx context.Context) string {
	return internal.GetRequestID(ctx)
}

func generateRequestID() string {
	return fmt.Sprintf("req_%x", rand.Int63())
}
