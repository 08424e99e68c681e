package telegram

import (
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/woltwatch/core/config"
	"github.com/m3rciful/woltwatch/core/telegram/middleware"
)

// DefaultMiddlewares builds the shared middleware chain: panic recovery,
// chat allow-list, optional per-user rate limiting, and update logging.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited func(tele.Context) error) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}

	if cfg != nil {
		mws = append(mws, Middleware{
			Name: "access",
			Use:  middleware.AllowListMiddleware(middleware.AccessOptions{AllowedChats: cfg.Access.AllowedChats}),
		})

		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			opts := middleware.RateLimitOptions{Interval: interval}
			if onLimited != nil {
				opts.OnLimited = onLimited
			}
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use:  middleware.RateLimitMiddleware(opts),
			})
		}
	}

	mws = append(mws, Middleware{Name: "logger", Use: middleware.LoggerMiddleware})
	return mws
}
