package handler

import (
	"encoding/json"
	"fmt"

	"chatify/internal/app/relay"
	"chatify/internal/configs"
	"chatify/internal/pkg/auth/session"
	"chatify/internal/pkg/limiter"
	"chatify/internal/pkg/metrics"
)

// Deliverer pushes a message to a recipient's live connection.
type Deliverer interface {
	Deliver(recipientID string, message json.RawMessage) (bool, error)
}

// PresenceReader exposes the online-user set read-only.
type PresenceReader interface {
	OnlineUsers() []string
	OnlineCount() int
}

// AppDeps holds everything the relay handlers share.
type AppDeps struct {
	Config  *configs.AppConfig
	Gateway *relay.Gateway
	Codec   *session.Codec
	Metrics *metrics.Relay

	GeneralLimiter *limiter.IPRateLimiter
	NotifyLimiter  *limiter.IPRateLimiter
}

// NewAppDeps builds the gateway, session codec, metrics and limiters for cfg.
func NewAppDeps(cfg *configs.AppConfig) (*AppDeps, error) {
	codec, err := session.NewCodec(cfg.AuthSecret)
	if err != nil {
		return nil, fmt.Errorf("build session codec: %w", err)
	}

	m := metrics.NewRelay()

	generalRate, generalBurst := limiter.PerMinute(cfg.GeneralRatePerMinute)
	notifyRate, notifyBurst := limiter.PerSecond(cfg.NotifyRatePerSecond)

	return &AppDeps{
		Config:         cfg,
		Gateway:        relay.NewGateway(m),
		Codec:          codec,
		Metrics:        m,
		GeneralLimiter: limiter.NewIPRateLimiter("general", generalRate, generalBurst),
		NotifyLimiter:  limiter.NewIPRateLimiter("notify", notifyRate, notifyBurst),
	}, nil
}

// Close stops the limiter janitors.
func (d *AppDeps) Close() {
	d.GeneralLimiter.Stop()
	d.NotifyLimiter.Stop()
}
