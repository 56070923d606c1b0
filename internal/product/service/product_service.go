package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gildedwren/storefront/internal/product/domain"
	"github.com/gildedwren/storefront/internal/product/repository"
)

// InvalidProductError reports which create fields were missing or malformed.
type InvalidProductError struct {
	Fields map[string]string
}

func (e *InvalidProductError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid product: %s", strings.Join(names, ", "))
}

type ProductService struct {
	repo repository.RepoInterface
}

func NewProductService(repo repository.RepoInterface) *ProductService {
	return &ProductService{repo: repo}
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts filters by category and/or featured flag; empty category and
// featured=false return the full catalog.
func (s *ProductService) ListProducts(ctx context.Context, category string, featured bool) ([]*domain.Product, error) {
	switch {
	case featured:
		return s.repo.GetFeaturedProducts(ctx)
	case category != "":
		return s.repo.GetProductsByCategory(ctx, category)
	default:
		return s.repo.GetAllProducts(ctx)
	}
}

func (s *ProductService) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	fields := make(map[string]string)
	if strings.TrimSpace(product.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(product.Category) == "" {
		fields["category"] = "category is required"
	}
	if product.Price < 0 {
		fields["price"] = "price must not be negative"
	}
	if len(fields) > 0 {
		return nil, &InvalidProductError{Fields: fields}
	}

	created := *product
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now().UTC()
	if err := s.repo.CreateProduct(ctx, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.DeleteProduct(ctx, id)
}
