package app

import "github.com/google/uuid"

// newGameID returns a random UUIDv4 string.
func newGameID() string {
    return uuid.NewString()
}

// NewPlayerID returns an identifier for a browser seat cookie.
func NewPlayerID() string {
    return uuid.NewString()
}
