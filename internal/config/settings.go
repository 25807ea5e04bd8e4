package config

import (
	"context"
	"sync/atomic"

	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
)

// SettingsStore hands out the resolved payment configuration. Each call
// returns a copy, so a checkout keeps the snapshot it started with even if
// the store is reloaded mid-flight.
type SettingsStore struct {
	current atomic.Pointer[domain.PaymentConfiguration]
}

func NewSettingsStore(cfg PaymentConfig) (*SettingsStore, error) {
	s := &SettingsStore{}
	if err := s.Reload(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload swaps in a new configuration. The old one stays active when cfg is invalid.
func (s *SettingsStore) Reload(cfg PaymentConfig) error {
	resolved, err := domain.NewPaymentConfiguration(cfg.Settings())
	if err != nil {
		return err
	}
	s.current.Store(&resolved)
	return nil
}

func (s *SettingsStore) Current(context.Context) (domain.PaymentConfiguration, error) {
	return *s.current.Load(), nil
}

// Settings converts the loaded section into the domain's settings shape.
func (c PaymentConfig) Settings() domain.PaymentSettings {
	return domain.PaymentSettings{
		Mode:               domain.Mode(c.Mode),
		Sandbox:            domain.KeyPair{SecretKey: c.Sandbox.SecretKey, PublishableKey: c.Sandbox.PublishableKey},
		Live:               domain.KeyPair{SecretKey: c.Live.SecretKey, PublishableKey: c.Live.PublishableKey},
		AuthorizeOnly:      c.AuthorizeOnly,
		SettlementCurrency: c.SettlementCurrency,
		AcceptedBrands:     c.AcceptedBrands,
		CustomerMode:       c.CustomerMode,
		GuestCheckout:      c.GuestCheckout,
		StoreName:          c.StoreName,
		ReturnURLTemplate:  c.ReturnURLTemplate,
		CaptureStatuses:    c.CaptureStatuses,
	}
}
