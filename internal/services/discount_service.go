package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
	"github.com/Roshan-Lodhi/Shoplane/internal/repositories"
)

// DiscountServiceDeps bundles dependencies required to construct a DiscountService implementation.
type DiscountServiceDeps struct {
	Discounts repositories.DiscountRepository
	Clock     func() time.Time
	IDFactory func() string
}

type discountService struct {
	repo  repositories.DiscountRepository
	clock func() time.Time
	newID func() string
}

var _ DiscountService = (*discountService)(nil)

// NewDiscountService wires a DiscountService backed by the provided repository.
func NewDiscountService(deps DiscountServiceDeps) (DiscountService, error) {
	if deps.Discounts == nil {
		return nil, ErrDiscountRepositoryMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDFactory
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	return &discountService{
		repo:  deps.Discounts,
		clock: func() time.Time { return clock().UTC() },
		newID: newID,
	}, nil
}

// Evaluate walks the eligibility chain in a fixed order so the caller always
// learns the first failing condition: existence, active flag, window, usage
// cap, minimum purchase.
func (s *discountService) Evaluate(ctx context.Context, code string, cartTotal int64) (AppliedDiscount, error) {
	if s == nil || s.repo == nil {
		return AppliedDiscount{}, ErrDiscountRepositoryMissing
	}

	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return AppliedDiscount{}, ErrDiscountInvalidCode
	}
	if cartTotal < 0 {
		return AppliedDiscount{}, ErrDiscountInvalidCode
	}

	discount, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return AppliedDiscount{}, ErrDiscountNotFound
		}
		return AppliedDiscount{}, err
	}

	return evaluateDiscount(discount, cartTotal, s.clock())
}

// evaluateDiscount applies the eligibility chain against a loaded code. It
// is shared with the checkout flow, which resolves the code itself so it can
// carry the document id into the finalize transaction.
func evaluateDiscount(discount domain.DiscountCode, cartTotal int64, now time.Time) (AppliedDiscount, error) {
	if !discount.Active {
		return AppliedDiscount{}, ErrDiscountInactive
	}
	if !discount.ValidFrom.IsZero() && now.Before(discount.ValidFrom) {
		return AppliedDiscount{}, ErrDiscountOutOfWindow
	}
	if !discount.ValidUntil.IsZero() && now.After(discount.ValidUntil) {
		return AppliedDiscount{}, ErrDiscountOutOfWindow
	}
	if discount.MaxUses > 0 && discount.CurrentUses >= discount.MaxUses {
		return AppliedDiscount{}, ErrDiscountUsageExceeded
	}
	if discount.MinPurchaseAmount > 0 && cartTotal < discount.MinPurchaseAmount {
		return AppliedDiscount{}, ErrDiscountBelowMinimum
	}

	return AppliedDiscount{
		Code:   discount.Code,
		Type:   discount.Type,
		Amount: discountAmount(discount, cartTotal),
	}, nil
}

// discountAmount computes the deduction in major units. Percentage values
// round half up; the result never exceeds the cart total.
func discountAmount(discount domain.DiscountCode, cartTotal int64) int64 {
	var amount int64
	switch discount.Type {
	case domain.DiscountTypePercentage:
		amount = (cartTotal*discount.Value + 50) / 100
	case domain.DiscountTypeFixed:
		amount = discount.Value
	default:
		return 0
	}
	if amount > cartTotal {
		amount = cartTotal
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

func (s *discountService) CreateCode(ctx context.Context, cmd UpsertDiscountCommand) (DiscountCode, error) {
	if s == nil || s.repo == nil {
		return DiscountCode{}, ErrDiscountRepositoryMissing
	}
	normalized := strings.ToUpper(strings.TrimSpace(cmd.Code))
	if normalized == "" {
		return DiscountCode{}, ErrDiscountInvalidCode
	}
	if err := validateDiscountCommand(cmd); err != nil {
		return DiscountCode{}, err
	}

	if _, err := s.repo.FindByCode(ctx, normalized); err == nil {
		return DiscountCode{}, ErrDiscountCodeExists
	} else {
		var repoErr repositories.RepositoryError
		if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
			return DiscountCode{}, err
		}
	}

	now := s.clock()
	code := DiscountCode{
		ID:                s.newID(),
		Code:              normalized,
		Type:              cmd.Type,
		Value:             cmd.Value,
		Active:            cmd.Active,
		ValidFrom:         cmd.ValidFrom.UTC(),
		MaxUses:           cmd.MaxUses,
		MinPurchaseAmount: cmd.MinPurchaseAmount,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if code.ValidFrom.IsZero() {
		code.ValidFrom = now
	}
	if !cmd.ValidUntil.IsZero() {
		code.ValidUntil = cmd.ValidUntil.UTC()
	}

	if err := s.repo.Insert(ctx, code); err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsConflict() {
			return DiscountCode{}, ErrDiscountCodeExists
		}
		return DiscountCode{}, err
	}
	return code, nil
}

func (s *discountService) UpdateCode(ctx context.Context, cmd UpsertDiscountCommand) (DiscountCode, error) {
	if s == nil || s.repo == nil {
		return DiscountCode{}, ErrDiscountRepositoryMissing
	}
	id := strings.TrimSpace(cmd.DiscountID)
	if id == "" {
		return DiscountCode{}, ErrDiscountInvalidCode
	}
	if err := validateDiscountCommand(cmd); err != nil {
		return DiscountCode{}, err
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return DiscountCode{}, ErrDiscountNotFound
		}
		return DiscountCode{}, err
	}

	updated := existing
	if normalized := strings.ToUpper(strings.TrimSpace(cmd.Code)); normalized != "" {
		updated.Code = normalized
	}
	updated.Type = cmd.Type
	updated.Value = cmd.Value
	updated.Active = cmd.Active
	if !cmd.ValidFrom.IsZero() {
		updated.ValidFrom = cmd.ValidFrom.UTC()
	}
	updated.ValidUntil = time.Time{}
	if !cmd.ValidUntil.IsZero() {
		updated.ValidUntil = cmd.ValidUntil.UTC()
	}
	updated.MaxUses = cmd.MaxUses
	updated.MinPurchaseAmount = cmd.MinPurchaseAmount
	updated.UpdatedAt = s.clock()

	if err := s.repo.Update(ctx, updated); err != nil {
		return DiscountCode{}, err
	}
	return updated, nil
}

func (s *discountService) DeleteCode(ctx context.Context, discountID string) error {
	if s == nil || s.repo == nil {
		return ErrDiscountRepositoryMissing
	}
	id := strings.TrimSpace(discountID)
	if id == "" {
		return ErrDiscountInvalidCode
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return ErrDiscountNotFound
		}
		return err
	}
	return nil
}

func (s *discountService) GetCode(ctx context.Context, discountID string) (DiscountCode, error) {
	if s == nil || s.repo == nil {
		return DiscountCode{}, ErrDiscountRepositoryMissing
	}
	code, err := s.repo.FindByID(ctx, strings.TrimSpace(discountID))
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return DiscountCode{}, ErrDiscountNotFound
		}
		return DiscountCode{}, err
	}
	return code, nil
}

func (s *discountService) ListCodes(ctx context.Context, filter DiscountListFilter) (domain.CursorPage[DiscountCode], error) {
	if s == nil || s.repo == nil {
		return domain.CursorPage[DiscountCode]{}, ErrDiscountRepositoryMissing
	}
	return s.repo.List(ctx, repositories.DiscountListFilter{
		ActiveOnly: filter.ActiveOnly,
		Pagination: filter.Pagination,
	})
}

func validateDiscountCommand(cmd UpsertDiscountCommand) error {
	switch cmd.Type {
	case domain.DiscountTypePercentage:
		if cmd.Value <= 0 || cmd.Value > 100 {
			return ErrDiscountInvalidCode
		}
	case domain.DiscountTypeFixed:
		if cmd.Value <= 0 {
			return ErrDiscountInvalidCode
		}
	default:
		return ErrDiscountInvalidCode
	}
	if cmd.MaxUses < 0 || cmd.MinPurchaseAmount < 0 {
		return ErrDiscountInvalidCode
	}
	if !cmd.ValidFrom.IsZero() && !cmd.ValidUntil.IsZero() && cmd.ValidUntil.Before(cmd.ValidFrom) {
		return ErrDiscountInvalidCode
	}
	return nil
}
