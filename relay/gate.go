package relay

import (
	"time"

	"github.com/way365/realm-exchange/protocol"
	"golang.org/x/time/rate"
)

// Limit is the accepted-transfer budget of one sender for one kind.
type Limit struct {
	Every time.Duration
	Burst int
}

func DefaultLimits() map[protocol.Kind]Limit {
	return map[protocol.Kind]Limit{
		protocol.KIND_COLONIST: {Every: COLONIST_RATE_INTERVAL, Burst: COLONIST_BURST},
		protocol.KIND_ITEMS:    {Every: ITEMS_RATE_INTERVAL, Burst: ITEMS_BURST},
	}
}

type gateKey struct {
	sender protocol.UserID
	kind   protocol.Kind
}

// Gate rate limits accepted transfers per sender and kind. Kinds without a
// limit pass. Only the hub goroutine uses it.
type Gate struct {
	limits   map[protocol.Kind]Limit
	limiters map[gateKey]*rate.Limiter
}

func NewGate(limits map[protocol.Kind]Limit) *Gate {
	return &Gate{
		limits:   limits,
		limiters: make(map[gateKey]*rate.Limiter),
	}
}

func (g *Gate) Allow(sender protocol.UserID, kind protocol.Kind, now time.Time) bool {
	limit, ok := g.limits[kind]
	if !ok || limit.Every <= 0 {
		return true
	}

	key := gateKey{sender, kind}
	limiter, ok := g.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(limit.Every), limit.Burst)
		g.limiters[key] = limiter
	}
	return limiter.AllowN(now, 1)
}
