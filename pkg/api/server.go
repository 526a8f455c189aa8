// Package api is the HTTP transport: routing, CORS, the session auth
// check, and the JSON request/response shapes for the auth and trade
// services.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/moss-street/tradeserver/pkg/apperr"
	"github.com/moss-street/tradeserver/pkg/core"
	"github.com/moss-street/tradeserver/pkg/session"
	"github.com/moss-street/tradeserver/pkg/store"
)

// Server wires the HTTP router to the auth and trade services and the
// trade feed hub.
type Server struct {
	router    *mux.Router
	hub       *Hub
	sessions  *session.Manager
	users     *store.Store
	directory *core.UserDirectory
	registry  *core.Registry
	log       *zap.SugaredLogger
}

func NewServer(sessions *session.Manager, users *store.Store, registry *core.Registry, log *zap.SugaredLogger) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		hub:       NewHub(log),
		sessions:  sessions,
		users:     users,
		directory: core.NewUserDirectory(),
		registry:  registry,
		log:       log,
	}
	s.setupRoutes()
	return s
}

// Hub exposes the trade feed broadcaster so cmd/tradeserver can wire it
// as every registered Market's TradeBroadcaster.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) setupRoutes() {
	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/auth/users", s.handleCreateUser).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", s.handleLoginUser).Methods(http.MethodPost)
	v1.HandleFunc("/trade", s.handleCreateTrade).Methods(http.MethodPost)
	v1.HandleFunc("/markets/{pair}/book", s.handleGetBook).Methods(http.MethodGet)

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Start runs the trade feed hub and serves HTTP on addr. Blocks until
// the listener fails or is closed.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	if s.log != nil {
		s.log.Infow("http server starting", "addr", addr)
	}
	return http.ListenAndServe(addr, c.Handler(s.router))
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	pairStr := vars["pair"]
	first, second, ok := splitPair(pairStr)
	if !ok {
		respondError(w, http.StatusBadRequest, apperr.KindWrongMarket.String(), "pair must be FIRST-SECOND")
		return
	}

	market, err := s.registry.Market(first, second)
	if err != nil {
		respondAppErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, bookSnapshot(market))
}

// splitPair parses a "FIRST-SECOND" path segment into its two symbols.
func splitPair(s string) (first, second string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '-' && i > 0 && i < len(s)-1 {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func bookSnapshot(m *core.Market) OrderBookSnapshot {
	snap := OrderBookSnapshot{Pair: m.Pair.String()}
	for _, o := range m.Book().Bids() {
		snap.Bids = append(snap.Bids, PriceLevel{Price: o.Price.String(), Qty: o.RemainingQty.String()})
	}
	for _, o := range m.Book().Asks() {
		snap.Asks = append(snap.Asks, PriceLevel{Price: o.Price.String(), Qty: o.RemainingQty.String()})
	}
	return snap
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errCode, message string) {
	respondJSON(w, status, ErrorResponse{Error: errCode, Message: message})
}

// respondAppErr maps an apperr.Kind to its wire status code.
func respondAppErr(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindAlreadyExists:
		status = http.StatusConflict
	case apperr.KindNotFound, apperr.KindWalletMissing:
		status = http.StatusNotFound
	case apperr.KindUnauthenticated:
		status = http.StatusUnauthorized
	case apperr.KindInsufficientFunds:
		status = http.StatusPreconditionFailed
	case apperr.KindWrongMarket:
		status = http.StatusBadRequest
	case apperr.KindBackpressure:
		status = http.StatusTooManyRequests
	case apperr.KindPasswordInvalid:
		status = http.StatusBadRequest
	case apperr.KindStoreError, apperr.KindInternal, apperr.KindInvalidUser:
		status = http.StatusInternalServerError
	}
	respondError(w, status, kind.String(), err.Error())
}
