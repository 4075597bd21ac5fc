// Package template persists the message template and its optional attachment
// in the key-value store.
package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hal9000y/gmail-sender/internal/envelope"
	"github.com/hal9000y/gmail-sender/internal/kvstore"
)

// ErrNotConfigured indicates no template has been saved yet.
var ErrNotConfigured = errors.New("no template configured")

const templateKey = "template.config"

// Config is the stored template: subject, body and at most one attachment.
type Config struct {
	Subject    string               `json:"subject"`
	Body       string               `json:"body"`
	Attachment *envelope.Attachment `json:"attachment,omitempty"`
}

// Store reads and writes the template document.
type Store struct {
	kv kvstore.Store
}

// NewStore creates a Store over the given key-value backend.
func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

// Load returns the stored template, or ErrNotConfigured when absent.
func (s *Store) Load(ctx context.Context) (*Config, error) {
	raw, ok, err := s.kv.Get(ctx, templateKey)
	if err != nil {
		return nil, fmt.Errorf("kv.Get failed: %w", err)
	}
	if !ok {
		return nil, ErrNotConfigured
	}

	cfg := &Config{}
	if err := json.Unmarshal([]byte(raw), cfg); err != nil {
		return nil, fmt.Errorf("json.Unmarshal failed: %w", err)
	}

	return cfg, nil
}

// Save stores the template, replacing any previous one.
func (s *Store) Save(ctx context.Context, cfg *Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("json.Marshal failed: %w", err)
	}

	if err := s.kv.Set(ctx, templateKey, string(raw)); err != nil {
		return fmt.Errorf("kv.Set failed: %w", err)
	}

	return nil
}

// Clear removes the stored template.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Remove(ctx, templateKey); err != nil {
		return fmt.Errorf("kv.Remove failed: %w", err)
	}

	return nil
}
