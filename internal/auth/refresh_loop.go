package auth

import (
	"context"
	"time"
)

// StartRefreshLoop refreshes proactively whenever the credential's expiry hint
// falls within skew. It stops when ctx ends. Credentials without a hint are
// left to the on-401 path.
func (c *Client) StartRefreshLoop(ctx context.Context, interval, skew time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	c.log.Info().Dur("refresh_interval", interval).Dur("refresh_skew", skew).Msg("Starting periodic token refresh")

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.refreshIfExpiring(ctx, skew, time.Now())
			}
		}
	}()
}

// refreshIfExpiring reports whether a refresh was attempted.
func (c *Client) refreshIfExpiring(ctx context.Context, skew time.Duration, now time.Time) bool {
	cred := c.coord.credential(ctx)
	if cred == nil || !cred.ExpiresWithin(skew, now) {
		c.log.Debug().Msg("Periodic refresh check: nothing to do")
		return false
	}
	exp, _ := cred.Expiry()
	c.log.Info().Time("expires_at", exp).Msg("Credential expiring soon, refreshing")
	if err := c.Refresh(ctx); err != nil {
		c.log.Error().Err(err).Msg("Error during periodic token refresh")
	}
	return true
}
