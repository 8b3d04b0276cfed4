// Package settings owns the storefront configuration document: outbound
// email credentials and public store metadata. Last write wins.
package settings

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/store"
)

type EmailConfig struct {
	Email       string `json:"email"`
	AppPassword string `json:"appPassword"`
}

// Configured reports whether outbound mail can be attempted.
func (c EmailConfig) Configured() bool {
	return c.Email != "" && c.AppPassword != ""
}

type SocialMedia struct {
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type StoreConfig struct {
	Address     string      `json:"address,omitempty"`
	Ads         []string    `json:"ads,omitempty"`
	SocialMedia SocialMedia `json:"socialMedia"`
}

type Document struct {
	EmailConfig EmailConfig `json:"emailConfig"`
	StoreConfig StoreConfig `json:"storeConfig"`
}

type Service interface {
	Get(ctx context.Context) (*Document, error)
	Replace(ctx context.Context, doc Document) error
	StoreAddress(ctx context.Context) (string, error)
	EmailCredentials(ctx context.Context) (EmailConfig, error)
}

type service struct {
	store *store.Store
}

func NewService(s *store.Store) Service {
	return &service{store: s}
}

// Get returns the stored document, or the empty default if none was saved.
func (s *service) Get(ctx context.Context) (*Document, error) {
	doc, ok, err := store.LoadDocument[Document](ctx, s.store, store.Config)
	if err != nil {
		return nil, fmt.Errorf("settings: failed to load config: %w", err)
	}
	if !ok {
		return &Document{}, nil
	}
	return &doc, nil
}

func (s *service) Replace(ctx context.Context, doc Document) error {
	err := s.store.WithLock([]store.Collection{store.Config}, func() error {
		return store.SaveDocument(ctx, s.store, store.Config, doc)
	})
	if err != nil {
		return fmt.Errorf("settings: failed to save config: %w", err)
	}

	log.Info().Bool("email_configured", doc.EmailConfig.Configured()).Msg("settings: config replaced")
	return nil
}

func (s *service) StoreAddress(ctx context.Context) (string, error) {
	doc, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	return doc.StoreConfig.Address, nil
}

func (s *service) EmailCredentials(ctx context.Context) (EmailConfig, error) {
	doc, err := s.Get(ctx)
	if err != nil {
		return EmailConfig{}, err
	}
	return doc.EmailConfig, nil
}
