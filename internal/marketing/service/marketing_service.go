package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gildedwren/storefront/internal/marketing/repository"
)

var (
	ErrEmailRequired  = errors.New("email is required")
	ErrInvalidEmail   = errors.New("email is not valid")
	ErrMissingFields  = errors.New("name, email and message are required")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
)

const maxContactMessage = 5000

type MarketingService struct {
	repo repository.RepoInterface
}

func NewMarketingService(repo repository.RepoInterface) *MarketingService {
	return &MarketingService{repo: repo}
}

// Subscribe stores a newsletter signup. Re-subscribing an address is not an
// error for the caller.
func (s *MarketingService) Subscribe(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrEmailRequired
	}
	if !looksLikeEmail(email) {
		return ErrInvalidEmail
	}

	err := s.repo.SubscribeEmail(ctx, email)
	if errors.Is(err, repository.ErrAlreadySubscribed) {
		return nil
	}
	return err
}

func (s *MarketingService) SubmitContact(ctx context.Context, name, email, message string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	message = strings.TrimSpace(message)
	if name == "" || email == "" || message == "" {
		return ErrMissingFields
	}
	if !looksLikeEmail(email) {
		return ErrInvalidEmail
	}
	if len(message) > maxContactMessage {
		return ErrMessageTooLong
	}

	return s.repo.SaveContactMessage(ctx, &repository.ContactMessage{
		Name:    name,
		Email:   email,
		Message: message,
	})
}

func looksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	if at <= 0 {
		return false
	}
	rest := s[at+1:]
	return strings.Contains(rest, ".") && !strings.HasPrefix(rest, ".") && !strings.HasSuffix(rest, ".")
}
