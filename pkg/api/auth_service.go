package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/moss-street/tradeserver/pkg/apperr"
	"github.com/moss-street/tradeserver/pkg/auth"
	"github.com/moss-street/tradeserver/pkg/core"
)

// handleCreateUser hashes the password and inserts the user into the
// store, failing with AlreadyExists on a duplicate email.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	pw, err := auth.NewPassword(req.Password)
	if err != nil {
		respondAppErr(w, apperr.Wrap(apperr.KindPasswordInvalid, err, "hash password"))
		return
	}

	row, err := s.users.CreateUser(req.Email, pw.Hashed(), req.FirstName, req.LastName)
	if err != nil {
		respondAppErr(w, err)
		return
	}

	if s.log != nil {
		s.log.Infow("user created", "user_id", row.ID, "email", row.Email)
	}
	respondJSON(w, http.StatusOK, CreateUserResponse{Status: 1, Message: "created"})
}

// handleLoginUser looks up the user by email, verifies the password, and
// mints a session on success.
func (s *Server) handleLoginUser(w http.ResponseWriter, r *http.Request) {
	var req LoginUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	row, err := s.users.FindUserByEmail(req.Email)
	if err != nil {
		respondAppErr(w, err)
		return
	}

	if !auth.FromHash(row.PasswordHash).Verify(req.Password) {
		respondAppErr(w, apperr.New(apperr.KindUnauthenticated, "password mismatch"))
		return
	}

	user, created := s.directory.GetOrCreate(row.ID, row.Email, row.PasswordHash, row.FirstName, row.LastName)
	if created {
		if err := s.seedLedger(user); err != nil {
			respondAppErr(w, err)
			return
		}
	}

	sess, err := s.sessions.NewSession(user)
	if err != nil {
		respondAppErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, LoginUserResponse{
		Status: 1,
		User: &UserInfo{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Token:     string(sess.Token),
		},
	})
}

// seedLedger populates a freshly cached User's ledger from the store's
// durable opening balances, the one time the store's wallets table is
// ever read back in (login after a fresh process start).
func (s *Server) seedLedger(user *core.User) error {
	rows, err := s.users.LoadWallets(user.ID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		balance, err := decimal.NewFromString(row.Balance)
		if err != nil {
			return apperr.Wrap(apperr.KindStoreError, err, "parse wallet balance")
		}
		user.Ledger.EnsureWallet(row.Symbol, balance)
	}
	return nil
}
