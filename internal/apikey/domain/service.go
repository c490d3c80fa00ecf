package domain

import (
	"context"
	"errors"
	"time"
)

// Scopes a key may carry. Reporting endpoints require the manage scope;
// a key without it is rejected, not downgraded.
const (
	ScopeReportsManage = "reports:manage"
	ScopeHooksWrite    = "hooks:write"
)

type Service interface {
	// Resolve authenticates a raw bearer credential and returns the key
	// it belongs to. Inactive, expired or unknown keys return
	// ErrInvalidKey.
	Resolve(ctx context.Context, raw string) (*APIKey, error)

	List(ctx context.Context) ([]Response, error)
	Create(ctx context.Context, req CreateRequest) (*SecretResponse, error)
	Revoke(ctx context.Context, keyID string) error
}

type CreateRequest struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

type Response struct {
	KeyID      string     `json:"key_id"`
	Name       string     `json:"name"`
	Scopes     []string   `json:"scopes"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

type SecretResponse struct {
	KeyID  string `json:"key_id"`
	APIKey string `json:"api_key"`
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidKeyID = errors.New("invalid_key_id")
	ErrInvalidKey   = errors.New("invalid_key")
	ErrNotFound     = errors.New("not_found")
)
