package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
	"github.com/Roshan-Lodhi/Shoplane/internal/repositories"
)

var (
	// ErrCartInvalidInput indicates missing or malformed cart input.
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrCartProductNotFound indicates the referenced product does not exist.
	ErrCartProductNotFound = errors.New("cart: product not found")
	// ErrCartItemNotFound indicates the cart has no line for the product.
	ErrCartItemNotFound = errors.New("cart: item not found")
	// ErrCartConflict indicates the cart changed between read and write.
	ErrCartConflict = errors.New("cart: concurrent modification")
	// ErrCartDependenciesMissing indicates the service was constructed without required collaborators.
	ErrCartDependenciesMissing = errors.New("cart: missing dependencies")
)

// CartServiceDeps bundles collaborators required to construct a cart service.
type CartServiceDeps struct {
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
	Clock    func() time.Time
	Currency string
}

type cartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	clock    func() time.Time
	currency string
}

var _ CartService = (*cartService)(nil)

// NewCartService assembles the cart aggregate service. Line prices are
// snapshotted from the catalog at add time, not at checkout.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil || deps.Products == nil {
		return nil, ErrCartDependenciesMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "INR"
	}
	return &cartService{
		carts:    deps.Carts,
		products: deps.Products,
		clock:    func() time.Time { return clock().UTC() },
		currency: currency,
	}, nil
}

func (s *cartService) GetCart(ctx context.Context, userID string) (Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Cart{}, ErrCartInvalidInput
	}
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if isRepoNotFound(err) {
			return s.emptyCart(userID), nil
		}
		return Cart{}, err
	}
	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error) {
	userID := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if userID == "" || productID == "" || cmd.Quantity <= 0 {
		return Cart{}, ErrCartInvalidInput
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, ErrCartProductNotFound
		}
		return Cart{}, err
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return Cart{}, err
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity += cmd.Quantity
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  cmd.Quantity,
			ImageURL:  product.ImageURL,
		})
	}

	return s.save(ctx, cart)
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemCommand) (Cart, error) {
	userID := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if userID == "" || productID == "" || cmd.Quantity < 0 {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return Cart{}, err
	}

	idx := -1
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Cart{}, ErrCartItemNotFound
	}

	if cmd.Quantity == 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		cart.Items[idx].Quantity = cmd.Quantity
	}

	return s.save(ctx, cart)
}

func (s *cartService) RemoveItem(ctx context.Context, userID string, productID string) (Cart, error) {
	return s.UpdateItemQuantity(ctx, UpdateCartItemCommand{
		UserID:    userID,
		ProductID: productID,
		Quantity:  0,
	})
}

func (s *cartService) ClearCart(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrCartInvalidInput
	}
	if err := s.carts.Delete(ctx, userID); err != nil && !isRepoNotFound(err) {
		return err
	}
	return nil
}

// save persists the mutated cart. UpdatedAt is left at the revision the cart
// was loaded with so the repository can detect a concurrent writer.
func (s *cartService) save(ctx context.Context, cart Cart) (Cart, error) {
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = s.clock()
	}
	saved, err := s.carts.Save(ctx, cart)
	if err != nil {
		if isRepoConflict(err) {
			return Cart{}, ErrCartConflict
		}
		return Cart{}, err
	}
	return saved, nil
}

func (s *cartService) emptyCart(userID string) Cart {
	return Cart{
		ID:       userID,
		UserID:   userID,
		Currency: s.currency,
	}
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isRepoConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
