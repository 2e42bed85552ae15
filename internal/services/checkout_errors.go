package services

import "errors"

var (
	// ErrCheckoutDependenciesMissing indicates required collaborators were not provided.
	ErrCheckoutDependenciesMissing = errors.New("checkout service: missing dependencies")
	// ErrCheckoutCartEmpty indicates the user has no cart or an empty one.
	ErrCheckoutCartEmpty = errors.New("checkout service: cart is empty")
	// ErrCheckoutAmountMismatch indicates the client-supplied amount does not match the recomputed total.
	ErrCheckoutAmountMismatch = errors.New("checkout service: client amount does not match chargeable total")
	// ErrCheckoutInvalidInput signals a malformed command.
	ErrCheckoutInvalidInput = errors.New("checkout service: invalid input")
	// ErrPaymentVerificationFailed indicates the callback signature could not be trusted.
	ErrPaymentVerificationFailed = errors.New("checkout service: payment verification failed")
	// ErrOrderAlreadyProcessed indicates the payment was already finalized into an order.
	ErrOrderAlreadyProcessed = errors.New("checkout service: payment already processed")
)
