package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/apperr"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/store"
)

var (
	ErrProductNotFound  = fmt.Errorf("product %w", apperr.ErrNotFound)
	ErrProductExists    = fmt.Errorf("product %w", apperr.ErrConflict)
	ErrCategoryNotFound = fmt.Errorf("category %w", apperr.ErrNotFound)
	ErrCategoryExists   = fmt.Errorf("category %w", apperr.ErrConflict)
)

const (
	MinRating = 1
	MaxRating = 5
)

type Service interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	AddProduct(ctx context.Context, p Product) (*Product, error)
	UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*Product, error)
	RemoveProduct(ctx context.Context, id string) error
	ReplaceProducts(ctx context.Context, products []Product) error
	RateProduct(ctx context.Context, productID, userID string, rating int) (*Product, error)
	ProductRating(ctx context.Context, productID string) (*RatingSummary, error)

	ListCategories(ctx context.Context) ([]Category, error)
	AddCategory(ctx context.Context, c Category) (*Category, error)
	UpdateCategory(ctx context.Context, id string, patch CategoryPatch) (*Category, error)
	RemoveCategory(ctx context.Context, id string) (reassigned int, err error)
	ReplaceCategories(ctx context.Context, categories []Category) error
}

type service struct {
	store      *store.Store
	products   *store.Repository[Product]
	categories *store.Repository[Category]
}

func NewService(s *store.Store) Service {
	return &service{
		store:      s,
		products:   store.NewRepository[Product](s, store.Products, ErrProductNotFound, ErrProductExists),
		categories: store.NewRepository[Category](s, store.Categories, ErrCategoryNotFound, ErrCategoryExists),
	}
}

func (s *service) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to list products: %w", err)
	}
	return products, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.products.Get(ctx, id)
}

func (s *service) AddProduct(ctx context.Context, p Product) (*Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if p.Category == "" {
		p.Category = OtherCategoryID
	}
	if p.Ratings == nil {
		p.Ratings = []Rating{}
	}

	if err := s.products.Add(ctx, p); err != nil {
		log.Warn().Err(err).Str("product_id", p.ID).Msg("catalog: failed to add product")
		return nil, err
	}

	log.Info().Str("product_id", p.ID).Str("category", p.Category).Msg("catalog: product added")
	return &p, nil
}

func validateProduct(p Product) error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return apperr.Invalid("id", "is required")
	case strings.TrimSpace(p.Name) == "":
		return apperr.Invalid("name", "is required")
	case p.Price < 0:
		return apperr.Invalid("price", "cannot be negative")
	}
	return nil
}

func (s *service) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*Product, error) {
	if patch.Price != nil && *patch.Price < 0 {
		return nil, apperr.Invalid("price", "cannot be negative")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperr.Invalid("name", "cannot be empty")
	}

	updated, err := s.products.Update(ctx, id, func(p *Product) error {
		patch.Apply(p)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("product_id", id).Msg("catalog: failed to update product")
		return nil, err
	}
	return updated, nil
}

func (s *service) RemoveProduct(ctx context.Context, id string) error {
	if err := s.products.Remove(ctx, id); err != nil {
		return fmt.Errorf("catalog: failed to remove product: %w", err)
	}
	log.Info().Str("product_id", id).Msg("catalog: product removed")
	return nil
}

func (s *service) ReplaceProducts(ctx context.Context, products []Product) error {
	seen := make(map[string]bool, len(products))
	for i := range products {
		if products[i].ID == "" {
			return apperr.Invalid(fmt.Sprintf("[%d].id", i), "is required")
		}
		if seen[products[i].ID] {
			return apperr.Invalid(fmt.Sprintf("[%d].id", i), fmt.Sprintf("duplicate id %q", products[i].ID))
		}
		seen[products[i].ID] = true
		if products[i].Ratings == nil {
			products[i].Ratings = []Rating{}
		}
	}

	if err := s.products.ReplaceAll(ctx, products); err != nil {
		return fmt.Errorf("catalog: failed to replace products: %w", err)
	}
	return nil
}

// RateProduct records userID's rating, replacing any earlier rating by the
// same user in place.
func (s *service) RateProduct(ctx context.Context, productID, userID string, rating int) (*Product, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Invalid("userId", "is required")
	}
	if rating < MinRating || rating > MaxRating {
		return nil, apperr.Invalid("rating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating))
	}

	updated, err := s.products.Update(ctx, productID, func(p *Product) error {
		i := slices.IndexFunc(p.Ratings, func(r Rating) bool { return r.UserID == userID })
		if i >= 0 {
			p.Ratings[i].Rating = Score(rating)
			return nil
		}
		p.Ratings = append(p.Ratings, Rating{UserID: userID, Rating: Score(rating)})
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("product_id", productID).Str("user_id", userID).Msg("catalog: failed to rate product")
		return nil, err
	}

	log.Info().Str("product_id", productID).Str("user_id", userID).Int("rating", rating).Msg("catalog: product rated")
	return updated, nil
}

func (s *service) ProductRating(ctx context.Context, productID string) (*RatingSummary, error) {
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	summary := Summarize(p.Ratings)
	return &summary, nil
}

func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *service) AddCategory(ctx context.Context, c Category) (*Category, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, apperr.Invalid("name", "is required")
	}
	if c.ID == "" {
		c.ID = Slug(c.Name)
	}

	if err := s.categories.Add(ctx, c); err != nil {
		log.Warn().Err(err).Str("category_id", c.ID).Msg("catalog: failed to add category")
		return nil, err
	}

	log.Info().Str("category_id", c.ID).Msg("catalog: category added")
	return &c, nil
}

func (s *service) UpdateCategory(ctx context.Context, id string, patch CategoryPatch) (*Category, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperr.Invalid("name", "cannot be empty")
	}

	updated, err := s.categories.Update(ctx, id, func(c *Category) error {
		patch.Apply(c)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("category_id", id).Msg("catalog: failed to update category")
		return nil, err
	}
	return updated, nil
}

// RemoveCategory deletes the category and moves its products to
// OtherCategoryID. Both collections stay locked until the products are
// written, so no other writer can interleave with the cascade.
func (s *service) RemoveCategory(ctx context.Context, id string) (int, error) {
	reassigned := 0

	err := s.store.WithLock([]store.Collection{store.Categories, store.Products}, func() error {
		categories, err := store.Load[Category](ctx, s.store, store.Categories)
		if err != nil {
			return err
		}
		categories = slices.DeleteFunc(categories, func(c Category) bool { return c.ID == id })
		if err := store.SaveAll(ctx, s.store, store.Categories, categories); err != nil {
			return err
		}

		products, err := store.Load[Product](ctx, s.store, store.Products)
		if err != nil {
			return err
		}
		for i := range products {
			if products[i].Category == id && id != OtherCategoryID {
				products[i].Category = OtherCategoryID
				reassigned++
			}
		}
		if reassigned == 0 {
			return nil
		}
		return store.SaveAll(ctx, s.store, store.Products, products)
	})
	if err != nil {
		log.Error().Err(err).Str("category_id", id).Msg("catalog: failed to remove category")
		return 0, fmt.Errorf("catalog: failed to remove category: %w", err)
	}

	log.Info().Str("category_id", id).Int("reassigned", reassigned).Msg("catalog: category removed")
	return reassigned, nil
}

func (s *service) ReplaceCategories(ctx context.Context, categories []Category) error {
	for i := range categories {
		if categories[i].ID == "" {
			categories[i].ID = Slug(categories[i].Name)
		}
		if categories[i].ID == "" {
			return apperr.Invalid(fmt.Sprintf("[%d].name", i), "is required")
		}
	}

	if err := s.categories.ReplaceAll(ctx, categories); err != nil {
		return fmt.Errorf("catalog: failed to replace categories: %w", err)
	}
	return nil
}
