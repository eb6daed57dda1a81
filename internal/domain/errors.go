package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCatalogUnavailable is returned when the catalog source cannot be read
	ErrCatalogUnavailable = errors.New("catalog source unavailable")

	// ErrAnswerUnavailable is returned when the generative-answer service fails or times out
	ErrAnswerUnavailable = errors.New("answer service unavailable")

	// ErrDeliveryFailed is returned when the messaging transport cannot deliver a message
	ErrDeliveryFailed = errors.New("message delivery failed")

	// ErrSessionNotFound is returned when a requester has no pending session
	ErrSessionNotFound = errors.New("pending session not found")

	// ErrEscalationNotFound is returned when a requester has no open escalation
	ErrEscalationNotFound = errors.New("escalation not found")

	// ErrUnauthorizedOperator is returned when an operator command comes from the wrong identity
	ErrUnauthorizedOperator = errors.New("operator command from unauthorized identity")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)
