package repositories

import "errors"

var (
	// ErrDuplicatePayment indicates an order already exists for the payment id.
	ErrDuplicatePayment = errors.New("order repository: payment already recorded")
	// ErrDiscountExhausted indicates the discount usage cap was reached before the order could commit.
	ErrDiscountExhausted = errors.New("order repository: discount usage exhausted")
)
