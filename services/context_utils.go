package services

import "context"

// persistentContext keeps request values such as the logger but drops the
// request's cancellation, for writes that must finish once started.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
