package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moss-street/tradeserver/pkg/apperr"
	"github.com/moss-street/tradeserver/pkg/core"
)

// handleCreateTrade resolves the Authorization header to a User, runs
// the pre-trade check, and enqueues the resulting order onto the target
// Market.
func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	user, err := s.sessions.Authenticate(r.Header.Get("Authorization"))
	if err != nil {
		respondAppErr(w, err)
		return
	}

	var req CreateTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.TradeRequest == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing trade_request")
		return
	}
	tr := req.TradeRequest

	market, err := s.registry.Market(tr.SymbolSource, tr.SymbolDest)
	if err != nil {
		respondAppErr(w, err)
		return
	}
	side, ok := market.CanonicalSide(tr.SymbolSource, tr.SymbolDest)
	if !ok {
		respondAppErr(w, apperr.New(apperr.KindWrongMarket, "symbols do not match pair"))
		return
	}

	qty := decimal.NewFromFloat(tr.SourceQuantity)
	if !qty.IsPositive() {
		respondError(w, http.StatusBadRequest, "invalid_request", "source_quantity must be positive")
		return
	}

	var price *decimal.Decimal
	kind := core.Limit
	if tr.TradeType == "Market" {
		kind = core.MarketOrder
	} else {
		if tr.Price == nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit order requires a price")
			return
		}
		p := decimal.NewFromFloat(*tr.Price)
		if !p.IsPositive() {
			respondError(w, http.StatusBadRequest, "invalid_request", "price must be positive")
			return
		}
		price = &p
	}

	if err := preTradeCheck(user, market, side, qty, price); err != nil {
		respondAppErr(w, err)
		return
	}

	order := core.NewOrder(user, market.Pair, side, kind, qty, price, time.Now())
	if err := market.TrySendOrder(order); err != nil {
		respondAppErr(w, err)
		return
	}

	<-order.Done

	respondJSON(w, http.StatusOK, tradeResponse(order, tr))
}

// preTradeCheck is an advisory pre-trade check: the user must hold
// wallets for both symbols in the pair, and the source wallet
// must appear to have enough balance. Advisory only — a concurrent
// trade can still make the eventual settle (or rest-time escrow) fail.
// For a sell, the source leg is qty units of the base symbol. For a
// limit buy, the source leg is qty*price units of the quote symbol; a
// market buy has no price to size the check against, so only the
// wallet's existence is checked, not its balance.
func preTradeCheck(user *core.User, market *core.Market, side core.Side, qty decimal.Decimal, price *decimal.Decimal) error {
	sourceSymbol, destSymbol := market.First, market.Second
	if side == core.Buy {
		sourceSymbol, destSymbol = market.Second, market.First
	}

	if _, ok := user.Ledger.Wallet(destSymbol); !ok {
		return apperr.New(apperr.KindWalletMissing, "missing wallet: "+destSymbol)
	}
	sourceWallet, ok := user.Ledger.Wallet(sourceSymbol)
	if !ok {
		return apperr.New(apperr.KindWalletMissing, "missing wallet: "+sourceSymbol)
	}

	if side == core.Sell || price != nil {
		required := qty
		if side == core.Buy {
			required = qty.Mul(*price)
		}
		if !sourceWallet.HasAtLeast(required) {
			return apperr.New(apperr.KindInsufficientFunds, "insufficient balance in "+sourceSymbol)
		}
	}
	return nil
}

func tradeResponse(o *core.Order, tr *TradeRequest) CreateTradeResponse {
	resp := CreateTradeResponse{TradeRequest: tr}
	switch o.Status {
	case core.StatusFilled, core.StatusResting, core.StatusPartialUnfilled:
		resp.Status = "Ok"
		resp.TradeID = &TradeID{TradeID: o.OrderID}
	case core.StatusRejected, core.StatusFailed:
		resp.Status = "Rejected"
		if o.SettleErr != nil {
			resp.Message = o.SettleErr.Error()
		}
	default:
		resp.Status = "Rejected"
	}
	return resp
}
