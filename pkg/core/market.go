package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/moss-street/tradeserver/pkg/apperr"
)

// inboxCapacity bounds how many orders can queue for a market before
// producers see backpressure.
const inboxCapacity = 100

// Fill records one transfer of quantity between a taker and a maker
// order at the maker's price.
type Fill struct {
	Pair      SwapPair
	Price     decimal.Decimal
	Qty       decimal.Decimal
	TakerID   int64
	MakerID   int64
	TakerSide Side
	Timestamp time.Time
}

// TradeBroadcaster is notified after every successful fill. It must not
// block the matching goroutine for long; the trade feed hub (pkg/api)
// only makes a non-blocking send onto its own buffered broadcast channel.
type TradeBroadcaster func(Fill)

// CompletedEntry is one terminal order outcome appended to a market's
// completed log.
type CompletedEntry struct {
	Order *Order
	Err   error
}

// Market is the per-pair matching engine: a bounded inbox, a single
// dedicated worker goroutine, and the two order book sides and completed
// log that worker owns exclusively.
type Market struct {
	Pair          SwapPair
	First, Second string

	inbox chan *Order
	book  *OrderBook

	completedMu sync.Mutex
	completed   []CompletedEntry

	nextOrderID atomic.Int64

	onFill TradeBroadcaster
	log    *zap.SugaredLogger

	wg   sync.WaitGroup
	once sync.Once
}

// NewMarket creates a market trading first against second. first is the
// pair's canonical "source" symbol for side derivation: an incoming order
// selling first for second is a Sell, the reverse is a Buy.
func NewMarket(first, second string, onFill TradeBroadcaster, log *zap.SugaredLogger) *Market {
	return &Market{
		Pair:   NewSwapPair(first, second),
		First:  first,
		Second: second,
		inbox:  make(chan *Order, inboxCapacity),
		book:   NewOrderBook(),
		onFill: onFill,
		log:    log,
	}
}

// CanonicalSide derives Buy/Sell from the symbol the trader is offering
// up (sourceSymbol). ok is false if sourceSymbol is not one of the
// market's two symbols (WrongMarket).
func (m *Market) CanonicalSide(sourceSymbol, destSymbol string) (side Side, ok bool) {
	switch {
	case sourceSymbol == m.First && destSymbol == m.Second:
		return Sell, true
	case sourceSymbol == m.Second && destSymbol == m.First:
		return Buy, true
	default:
		return 0, false
	}
}

// Book exposes the resting order book for read-only snapshots (e.g. the
// GET book endpoint). Safe to call concurrently with the worker because
// OrderBook guards its heaps with a mutex and Bids/Asks return copies.
func (m *Market) Book() *OrderBook { return m.book }

// Start launches the worker goroutine. Call once.
func (m *Market) Start() {
	m.wg.Add(1)
	go m.run()
}

// Stop closes the inbox and waits for the worker to drain it and exit.
// The worker finishes the order it is currently processing first.
func (m *Market) Stop() {
	m.once.Do(func() { close(m.inbox) })
	m.wg.Wait()
}

// TrySendOrder enqueues o without blocking, failing with Backpressure if
// the inbox is full. This is the only entry point producers use.
func (m *Market) TrySendOrder(o *Order) error {
	select {
	case m.inbox <- o:
		return nil
	default:
		return apperr.New(apperr.KindBackpressure, "market inbox full: "+m.Pair.String())
	}
}

// Completed returns a snapshot of the completed log. Safe to call
// concurrently; the worker appends under the same mutex.
func (m *Market) Completed() []CompletedEntry {
	m.completedMu.Lock()
	defer m.completedMu.Unlock()
	return append([]CompletedEntry(nil), m.completed...)
}

func (m *Market) appendCompleted(o *Order, err error) {
	m.completedMu.Lock()
	m.completed = append(m.completed, CompletedEntry{Order: o, Err: err})
	m.completedMu.Unlock()
	// A resting order's Done was already closed by restOrder.
	select {
	case <-o.Done:
	default:
		close(o.Done)
	}
}

func (m *Market) run() {
	defer m.wg.Done()
	for o := range m.inbox {
		m.processOrder(o)
	}
}

// processOrder implements the matching algorithm for a single order
// popped from the inbox. Package-visible so tests can drive the engine
// synchronously without starting Start/Stop.
func (m *Market) processOrder(o *Order) {
	o.Status = StatusPending
	zero := decimal.Zero

	for o.RemainingQty.GreaterThan(zero) {
		maker, ok := m.book.PeekOpposite(o.Side)
		if !ok {
			break
		}
		if !m.priceFeasible(o, maker) {
			break
		}

		m.book.PopOpposite(o.Side)

		fillQty := decimal.Min(o.RemainingQty, maker.RemainingQty)
		price := *maker.Price

		violator, err := m.settle(o, maker, fillQty, price)
		if err != nil {
			if violator == o {
				o.Status = StatusFailed
				o.SettleErr = err
				m.logErr("settle failed, taker is violator", o, err)
				m.appendCompleted(o, err)
				return
			}
			// maker is the violator: discard it (not pushed back) and
			// keep matching o against the next resting order.
			maker.Status = StatusFailed
			maker.SettleErr = err
			m.logErr("settle failed, maker is violator", maker, err)
			m.appendCompleted(maker, err)
			continue
		}

		o.RemainingQty = o.RemainingQty.Sub(fillQty)
		maker.RemainingQty = maker.RemainingQty.Sub(fillQty)

		m.recordFill(o, maker, fillQty, price)

		if maker.RemainingQty.GreaterThan(zero) {
			m.book.Push(maker)
		} else {
			maker.Status = StatusFilled
			m.appendCompleted(maker, nil)
		}
	}

	if o.RemainingQty.GreaterThan(zero) {
		if o.Kind == Limit {
			m.restOrder(o)
		} else {
			o.Status = StatusPartialUnfilled
			m.appendCompleted(o, nil)
		}
		return
	}
	o.Status = StatusFilled
	m.appendCompleted(o, nil)
}

// priceFeasible reports whether incoming order o can trade against
// resting maker.
func (m *Market) priceFeasible(o, maker *Order) bool {
	if o.Kind == MarketOrder {
		return true
	}
	if o.Side == Sell {
		return maker.Price.GreaterThanOrEqual(*o.Price)
	}
	return maker.Price.LessThanOrEqual(*o.Price)
}

// restOrder escrows the resting order's own-side funds (a limit sell
// locks its source quantity, a limit buy locks its quote cost) and
// pushes it onto its side of the book. If the escrow fails — a
// concurrent trade on the same wallet drained it between the pretrade
// check and now — the order is rejected instead of rested.
func (m *Market) restOrder(o *Order) {
	symbol, amount := m.escrowLeg(o)
	w, ok := o.User.Ledger.Wallet(symbol)
	if !ok {
		o.Status = StatusRejected
		o.SettleErr = apperr.New(apperr.KindWalletMissing, "missing wallet: "+symbol)
		m.appendCompleted(o, o.SettleErr)
		return
	}
	if err := w.Subtract(amount); err != nil {
		o.Status = StatusRejected
		o.SettleErr = err
		m.appendCompleted(o, err)
		return
	}
	o.OrderID = m.nextOrderID.Add(1)
	o.Status = StatusResting
	m.book.Push(o)
	close(o.Done)
}

// escrowLeg returns the symbol and amount a resting order must lock: a
// sell locks its remaining source quantity, a buy locks the quote cost
// (remaining_qty * price) it would owe on a full fill.
func (m *Market) escrowLeg(o *Order) (symbol string, amount decimal.Decimal) {
	if o.Side == Sell {
		return m.First, o.RemainingQty
	}
	return m.Second, o.RemainingQty.Mul(*o.Price)
}

// settle transfers fillQty units of the First symbol from seller to
// buyer and fillQty*price units of the Second symbol from buyer to
// seller. The resting order (maker) already escrowed its own leg at
// rest time (restOrder), so its subtract step is skipped here — only
// its corresponding credit runs. The incoming order (taker) never
// escrowed, so its subtract runs live. On a live-subtract failure, any
// already-applied subtract in this fill is rolled back via the inverse
// add, and the offending order (buyer or seller) is returned as the
// violator.
func (m *Market) settle(taker, maker *Order, fillQty, price decimal.Decimal) (violator *Order, err error) {
	var buyer, seller *Order
	if taker.Side == Buy {
		buyer, seller = taker, maker
	} else {
		buyer, seller = maker, taker
	}
	buyerIsMaker := buyer == maker
	sellerIsMaker := seller == maker
	destAmt := fillQty.Mul(price)

	var sellerSubtracted bool
	if !sellerIsMaker {
		if err := subtractLedger(seller.User.Ledger, m.First, fillQty); err != nil {
			return seller, err
		}
		sellerSubtracted = true
	}
	if !buyerIsMaker {
		if err := subtractLedger(buyer.User.Ledger, m.Second, destAmt); err != nil {
			if sellerSubtracted {
				addLedger(seller.User.Ledger, m.First, fillQty)
			}
			return buyer, err
		}
	}
	addLedger(buyer.User.Ledger, m.First, fillQty)
	addLedger(seller.User.Ledger, m.Second, destAmt)
	return nil, nil
}

func subtractLedger(l Ledger, symbol string, amount decimal.Decimal) error {
	w, ok := l.Wallet(symbol)
	if !ok {
		return apperr.New(apperr.KindWalletMissing, "missing wallet: "+symbol)
	}
	return w.Subtract(amount)
}

func addLedger(l Ledger, symbol string, amount decimal.Decimal) {
	if w, ok := l.Wallet(symbol); ok {
		w.Add(amount)
	}
}

func (m *Market) recordFill(taker, maker *Order, qty, price decimal.Decimal) {
	if m.onFill == nil {
		return
	}
	m.onFill(Fill{
		Pair:      m.Pair,
		Price:     price,
		Qty:       qty,
		TakerID:   taker.OrderID,
		MakerID:   maker.OrderID,
		TakerSide: taker.Side,
		Timestamp: time.Now(),
	})
}

func (m *Market) logErr(msg string, o *Order, err error) {
	if m.log == nil {
		return
	}
	m.log.Errorw(msg, "pair", m.Pair.String(), "order_id", o.OrderID, "err", err)
}
