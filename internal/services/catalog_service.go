package services

import (
	"context"
	"errors"
	"strings"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
	"github.com/Roshan-Lodhi/Shoplane/internal/repositories"
)

var (
	// ErrCatalogInvalidInput indicates missing or malformed catalog input.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogProductNotFound indicates the product does not exist.
	ErrCatalogProductNotFound = errors.New("catalog: product not found")
	// ErrCatalogDependenciesMissing indicates the service was constructed without required collaborators.
	ErrCatalogDependenciesMissing = errors.New("catalog: missing dependencies")
)

// CatalogServiceDeps bundles collaborators required to construct a catalog service.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
}

type catalogService struct {
	products repositories.ProductRepository
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService assembles the read-only storefront catalog service.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, ErrCatalogDependenciesMissing
	}
	return &catalogService{products: deps.Products}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, ErrCatalogInvalidInput
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return Product{}, ErrCatalogProductNotFound
		}
		return Product{}, err
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter CatalogListFilter) (domain.CursorPage[Product], error) {
	return s.products.List(ctx, repositories.ProductListFilter{
		Category:   strings.TrimSpace(filter.Category),
		Search:     strings.TrimSpace(filter.Search),
		Pagination: filter.Pagination,
	})
}
