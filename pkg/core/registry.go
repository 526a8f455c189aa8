package core

import (
	"sync"

	"go.uber.org/zap"

	"github.com/moss-street/tradeserver/pkg/apperr"
)

// Registry maps each tradeable SwapPair to its running Market, guarded
// by an RWMutex since markets are added rarely (at startup, or on
// demand) but looked up on every trade.
type Registry struct {
	mu      sync.RWMutex
	markets map[SwapPair]*Market
	onFill  TradeBroadcaster
	log     *zap.SugaredLogger
}

func NewRegistry(onFill TradeBroadcaster, log *zap.SugaredLogger) *Registry {
	return &Registry{
		markets: make(map[SwapPair]*Market),
		onFill:  onFill,
		log:     log,
	}
}

// AddMarket creates and starts a market for first/second if one does not
// already exist, returning it either way. Idempotent: calling it twice
// for the same pair (in either symbol order) returns the existing
// market rather than replacing it.
func (r *Registry) AddMarket(first, second string) *Market {
	pair := NewSwapPair(first, second)

	r.mu.RLock()
	if m, ok := r.markets[pair]; ok {
		r.mu.RUnlock()
		return m
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.markets[pair]; ok {
		return m
	}
	m := NewMarket(first, second, r.onFill, r.log)
	m.Start()
	r.markets[pair] = m
	return m
}

// Market looks up the market trading symbol a against symbol b, in
// either order.
func (r *Registry) Market(a, b string) (*Market, error) {
	pair := NewSwapPair(a, b)
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[pair]
	if !ok {
		return nil, apperr.New(apperr.KindWrongMarket, "no market for pair: "+pair.String())
	}
	return m, nil
}

// Markets returns a snapshot of all registered markets.
func (r *Registry) Markets() []*Market {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Market, 0, len(r.markets))
	for _, m := range r.markets {
		out = append(out, m)
	}
	return out
}

// StopAll stops every registered market's worker, waiting for each to
// drain its inbox. Used on graceful shutdown.
func (r *Registry) StopAll() {
	for _, m := range r.Markets() {
		m.Stop()
	}
}
