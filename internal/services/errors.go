package services

import "errors"

// Sentinel errors returned by the services. Storage failures are wrapped with %w and
// never mapped onto these.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidSender = errors.New("invalid sender")

	ErrInvalidKey     = errors.New("invalid activation key")
	ErrKeyAlreadyUsed = errors.New("activation key already used")
	ErrKeyBotMismatch = errors.New("activation key is bound to another bot")
	ErrKeyCollision   = errors.New("activation key collision")

	ErrQuotaExceeded = errors.New("message limit reached")
	ErrUpstream      = errors.New("completion failed")
	ErrUpstreamLimit = errors.New("completion provider message limit reached")
)
