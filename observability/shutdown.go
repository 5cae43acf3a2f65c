package observability

import (
	"context"
	"fmt"
	"time"
)

// DefaultShutdownTimeout bounds how long Shutdown waits for exporters to drain.
const DefaultShutdownTimeout = 10 * time.Second

// Shutdown exports the REST client spans and metrics still buffered in p and stops its
// exporters. A nil provider is ignored; a non-positive timeout means
// DefaultShutdownTimeout.
func Shutdown(p Provider, timeout time.Duration) error {
	if p == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := p.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to flush telemetry: %w", err)
	}
	return nil
}
