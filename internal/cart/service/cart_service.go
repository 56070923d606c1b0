package service

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gildedwren/storefront/internal/cart/cache"
	"github.com/gildedwren/storefront/internal/cart/domain"
	"github.com/gildedwren/storefront/internal/cart/repository"
)

// CartService is the single mutation entry point for the cart aggregate.
// Every write loads the cart, applies the reducer, and stores the result, so
// the duplicate-line and derived-total invariants hold on every path.
type CartService struct {
	repo  repository.CartRepository
	cache cache.CartCache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache) *CartService {
	return &CartService{
		repo:  repo,
		cache: cache,
	}
}

func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v \n", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, sessionID)
		if errGet != nil && errors.Is(errGet, repository.ErrCartNotFound) { // not found cart return empty cart
			return &domain.Cart{
				SessionID: sessionID,
				Items:     nil,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), sessionID, cart)
			if errSet != nil {
				log.Printf("cache set error: %v \n", errSet)
			}
		}()

		return cart, nil // cart was not in cache, return it from repo
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

func (s *CartService) AddItem(ctx context.Context, sessionID string, item domain.LineItem) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(cart *domain.Cart) {
		cart.AddItem(item)
	})
}

func (s *CartService) SetQuantity(ctx context.Context, sessionID, productID string, quantity int64) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(cart *domain.Cart) {
		cart.SetQuantity(productID, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(cart *domain.Cart) {
		cart.RemoveItem(productID)
	})
}

func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	err := s.repo.DeleteCart(ctx, sessionID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		log.Printf("repo delete cart error: %v \n", err)
		return err
	}

	s.invalidateCache(sessionID)
	return nil
}

// maxMutateRetries bounds the re-read loop when concurrent writers race on
// the same session.
const maxMutateRetries = 5

func (s *CartService) mutate(ctx context.Context, sessionID string, apply func(*domain.Cart)) (*domain.Cart, error) {
	for attempt := 0; attempt < maxMutateRetries; attempt++ {
		cart, err := s.repo.GetCart(ctx, sessionID)
		if errors.Is(err, repository.ErrCartNotFound) {
			cart = &domain.Cart{SessionID: sessionID}
		} else if err != nil {
			log.Printf("repo get cart error: %v \n", err)
			return nil, err
		}

		apply(cart)

		errUpsert := s.repo.UpsertCart(ctx, cart)
		if errors.Is(errUpsert, repository.ErrVersionConflict) {
			// Another request stored the cart first; re-read and re-apply so
			// both writes land.
			continue
		}
		if errUpsert != nil {
			log.Printf("repo upsert cart error: %v \n", errUpsert)
			return nil, errUpsert
		}

		s.invalidateCache(sessionID)
		return cart, nil
	}

	return nil, repository.ErrVersionConflict
}

func (s *CartService) invalidateCache(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	errInvalidate := s.cache.Delete(ctx, sessionID)
	if errInvalidate != nil {
		log.Printf("cache invalidate error: %v \n", errInvalidate)
	}
}
