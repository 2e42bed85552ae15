package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
	pfirestore "github.com/Roshan-Lodhi/Shoplane/internal/platform/firestore"
	"github.com/Roshan-Lodhi/Shoplane/internal/repositories"
)

const discountsCollection = "discountCodes"

type discountDocument struct {
	Code              string     `firestore:"code"`
	Type              string     `firestore:"type"`
	Value             int64      `firestore:"value"`
	Active            bool       `firestore:"active"`
	ValidFrom         time.Time  `firestore:"validFrom"`
	ValidUntil        *time.Time `firestore:"validUntil,omitempty"`
	MaxUses           int64      `firestore:"maxUses"`
	CurrentUses       int64      `firestore:"currentUses"`
	MinPurchaseAmount int64      `firestore:"minPurchaseAmount"`
	CreatedAt         time.Time  `firestore:"createdAt"`
	UpdatedAt         time.Time  `firestore:"updatedAt"`
}

// DiscountRepository implements repositories.DiscountRepository backed by Firestore.
type DiscountRepository struct {
	base     *pfirestore.BaseRepository[discountDocument]
	provider *pfirestore.Provider
}

var _ repositories.DiscountRepository = (*DiscountRepository)(nil)

// NewDiscountRepository constructs a Firestore-backed discount repository.
func NewDiscountRepository(provider *pfirestore.Provider) (*DiscountRepository, error) {
	if provider == nil {
		return nil, errors.New("discount repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[discountDocument](provider, discountsCollection, nil, nil)
	return &DiscountRepository{
		base:     base,
		provider: provider,
	}, nil
}

// Insert creates the discount document. Codes are stored upper-cased so
// lookups stay case-insensitive.
func (r *DiscountRepository) Insert(ctx context.Context, code domain.DiscountCode) error {
	if r == nil || r.base == nil {
		return errors.New("discount repository not initialised")
	}
	id := strings.TrimSpace(code.ID)
	if id == "" {
		return errors.New("discount repository: discount id is required")
	}
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, encodeDiscountDocument(code)); err != nil {
		return pfirestore.WrapError("discountCodes.create", err)
	}
	return nil
}

// Update overwrites the discount document.
func (r *DiscountRepository) Update(ctx context.Context, code domain.DiscountCode) error {
	if r == nil || r.base == nil {
		return errors.New("discount repository not initialised")
	}
	id := strings.TrimSpace(code.ID)
	if id == "" {
		return errors.New("discount repository: discount id is required")
	}
	_, err := r.base.Set(ctx, id, encodeDiscountDocument(code))
	return err
}

// Delete removes the discount document.
func (r *DiscountRepository) Delete(ctx context.Context, discountID string) error {
	if r == nil || r.base == nil {
		return errors.New("discount repository not initialised")
	}
	ref, err := r.base.DocumentRef(ctx, discountID)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("discountCodes.delete", err)
	}
	return nil
}

// FindByID fetches a discount by its document id.
func (r *DiscountRepository) FindByID(ctx context.Context, discountID string) (domain.DiscountCode, error) {
	if r == nil || r.base == nil {
		return domain.DiscountCode{}, errors.New("discount repository not initialised")
	}
	doc, err := r.base.Get(ctx, discountID)
	if err != nil {
		return domain.DiscountCode{}, err
	}
	return decodeDiscountDocument(doc.ID, doc.Data), nil
}

// FindByCode fetches a discount by its customer-facing code. The lookup is
// case-insensitive.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (domain.DiscountCode, error) {
	if r == nil || r.base == nil {
		return domain.DiscountCode{}, errors.New("discount repository not initialised")
	}
	normalised := strings.ToUpper(strings.TrimSpace(code))
	if normalised == "" {
		return domain.DiscountCode{}, errors.New("discount repository: code is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("code", "==", normalised).Limit(1)
	})
	if err != nil {
		return domain.DiscountCode{}, err
	}
	if len(docs) == 0 {
		return domain.DiscountCode{}, pfirestore.WrapError("discountCodes.findByCode", status.Error(codes.NotFound, fmt.Sprintf("discount code %s not found", normalised)))
	}
	return decodeDiscountDocument(docs[0].ID, docs[0].Data), nil
}

// List returns discounts ordered by creation time descending.
func (r *DiscountRepository) List(ctx context.Context, filter repositories.DiscountListFilter) (domain.CursorPage[domain.DiscountCode], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.DiscountCode]{}, errors.New("discount repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.DiscountCode]{}, fmt.Errorf("discount repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.ActiveOnly {
			q = q.Where("active", "==", true)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.DiscountCode]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.DiscountCode, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeDiscountDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.DiscountCode]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

func encodeDiscountDocument(code domain.DiscountCode) discountDocument {
	doc := discountDocument{
		Code:              strings.ToUpper(strings.TrimSpace(code.Code)),
		Type:              string(code.Type),
		Value:             code.Value,
		Active:            code.Active,
		ValidFrom:         code.ValidFrom.UTC(),
		MaxUses:           code.MaxUses,
		CurrentUses:       code.CurrentUses,
		MinPurchaseAmount: code.MinPurchaseAmount,
		CreatedAt:         code.CreatedAt.UTC(),
		UpdatedAt:         code.UpdatedAt.UTC(),
	}
	if !code.ValidUntil.IsZero() {
		until := code.ValidUntil.UTC()
		doc.ValidUntil = &until
	}
	return doc
}

func decodeDiscountDocument(id string, doc discountDocument) domain.DiscountCode {
	code := domain.DiscountCode{
		ID:                id,
		Code:              doc.Code,
		Type:              domain.DiscountType(doc.Type),
		Value:             doc.Value,
		Active:            doc.Active,
		ValidFrom:         doc.ValidFrom,
		MaxUses:           doc.MaxUses,
		CurrentUses:       doc.CurrentUses,
		MinPurchaseAmount: doc.MinPurchaseAmount,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}
	if doc.ValidUntil != nil {
		code.ValidUntil = *doc.ValidUntil
	}
	return code
}
