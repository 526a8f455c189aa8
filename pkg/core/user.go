package core

// User is a trading account: an identity plus a ledger of wallets. id is
// assigned by the external store at creation and is immutable thereafter;
// email is unique across users (enforced by the store).
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Ledger       Ledger
}

// NewUser wraps a freshly persisted identity with an empty ledger. Wallets
// are added on demand (e.g. when seeded from the store at login) via
// Ledger.EnsureWallet.
func NewUser(id int64, email, passwordHash, firstName, lastName string) *User {
	return &User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		Ledger:       NewLedger(),
	}
}
