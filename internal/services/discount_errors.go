package services

import "errors"

var (
	// ErrDiscountRepositoryMissing indicates the discount repository dependency is absent.
	ErrDiscountRepositoryMissing = errors.New("discount service: repository is not configured")
	// ErrDiscountInvalidCode signals the supplied code is missing or malformed.
	ErrDiscountInvalidCode = errors.New("discount service: invalid discount code")
	// ErrDiscountNotFound indicates no code exists for the provided value.
	ErrDiscountNotFound = errors.New("discount service: discount code not found")
	// ErrDiscountInactive indicates the code exists but is switched off.
	ErrDiscountInactive = errors.New("discount service: discount code inactive")
	// ErrDiscountOutOfWindow indicates the current time falls outside the redemption window.
	ErrDiscountOutOfWindow = errors.New("discount service: discount code outside validity window")
	// ErrDiscountUsageExceeded indicates the usage cap has been reached.
	ErrDiscountUsageExceeded = errors.New("discount service: discount code usage limit reached")
	// ErrDiscountBelowMinimum indicates the cart total does not meet the minimum purchase amount.
	ErrDiscountBelowMinimum = errors.New("discount service: cart total below minimum purchase amount")
	// ErrDiscountCodeExists indicates an admin tried to create a code that already exists.
	ErrDiscountCodeExists = errors.New("discount service: discount code already exists")
)
