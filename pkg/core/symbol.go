package core

// Symbol is a short opaque currency identifier, e.g. "USD" or "BTC".
// Compared by exact string equality.
type Symbol = string
