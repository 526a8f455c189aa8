package api

// Wire message shapes for the HTTP surface.

// CreateUserRequest is the payload for POST /v1/auth/users.
type CreateUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// CreateUserResponse reports success via Status == 1.
type CreateUserResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// LoginUserRequest is the payload for POST /v1/auth/login.
type LoginUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginUserResponse carries the minted session token on User.Token.
type LoginUserResponse struct {
	Status int       `json:"status"`
	User   *UserInfo `json:"user,omitempty"`
}

// UserInfo is the wire projection of a User plus its freshly minted
// session token (only populated from LoginUserResponse).
type UserInfo struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Token     string `json:"token,omitempty"`
}

// TradeRequest is the embedded trade description in CreateTradeRequest.
type TradeRequest struct {
	SymbolSource   string   `json:"symbol_source"`
	SymbolDest     string   `json:"symbol_dest"`
	SourceQuantity float64  `json:"source_quantity"`
	TradeType      string   `json:"trade_type"` // "Market" or "Limit"
	Price          *float64 `json:"price,omitempty"`
}

// CreateTradeRequest is the payload for POST /v1/trade.
type CreateTradeRequest struct {
	TradeRequest *TradeRequest `json:"trade_request"`
}

// CreateTradeResponse reports the outcome of a trade request.
type CreateTradeResponse struct {
	Status       string        `json:"status"` // "Ok", "Rejected", ...
	TradeID      *TradeID      `json:"trade_id,omitempty"`
	TradeRequest *TradeRequest `json:"trade_request,omitempty"`
	Message      string        `json:"message,omitempty"`
}

// TradeID wraps the order id. The engine assigns an id only when it rests
// an order, so an order that is filled or cancelled on arrival reports 0.
type TradeID struct {
	TradeID int64 `json:"trade_id"`
}

// PriceLevel is one (price, remaining_qty) point in a book snapshot.
type PriceLevel struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

// OrderBookSnapshot backs GET /v1/markets/{pair}/book, a read-only
// complement the trade feed and tests use.
type OrderBookSnapshot struct {
	Pair string       `json:"pair"`
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// FillEvent is the JSON frame broadcast to trade feed subscribers on
// every fill.
type FillEvent struct {
	Pair      string `json:"pair"`
	Price     string `json:"price"`
	Qty       string `json:"qty"`
	TakerSide string `json:"taker_side"`
	Timestamp int64  `json:"ts"`
}

// ErrorResponse is the uniform error body for every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
