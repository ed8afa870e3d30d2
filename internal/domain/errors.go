package domain

import "errors"

var (
	// ErrTenantNotFound aborts the pipeline before any model call.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInvalidPayload marks a request body that cannot be decoded.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrOrderIncomplete is returned by OrderDraft validation when
	// required customer fields or line items are missing.
	ErrOrderIncomplete = errors.New("order draft incomplete")
)
