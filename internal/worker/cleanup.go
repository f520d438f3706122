// Package worker runs the background retention sweep over expired
// refresh-token rows. The sweep is storage hygiene only: expired
// rows already fail validation, so skipping a cycle never affects
// correctness.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/civic-auth/internal/repository"
)

// StartTokenCleanup deletes expired refresh-token rows on the given
// interval until ctx is cancelled. Runs one sweep immediately so a
// long-down instance catches up on start.
func StartTokenCleanup(ctx context.Context, tokens *repository.TokenRepo, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	sweep := func() {
		cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		n, err := tokens.DeleteExpired(cctx, time.Now().UTC())
		if err != nil {
			log.Printf("token-cleanup: sweep failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("token-cleanup: removed %d expired refresh tokens", n)
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
