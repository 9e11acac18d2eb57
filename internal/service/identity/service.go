// Package identity resolves source records to unified customers by
// normalized email. Resolution is find-or-create: it never writes
// business fields, only the identity spine.
package identity

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/customer-intel/internal/domain"
)

// Repository is the persistence surface the resolver needs.
type Repository interface {
	// FindByEmail returns the customer for a normalized email, nil when
	// absent, or ErrAmbiguousIdentity when more than one row matches.
	FindByEmail(ctx context.Context, email string) (*domain.Customer, error)
	Create(ctx context.Context, c *domain.Customer) error
}

// Resolver maps emails onto unified customer rows.
type Resolver struct {
	repo Repository
}

// NewResolver creates a resolver backed by the given repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Normalize canonicalizes an email for identity comparison: trimmed and
// lowercased. An empty result means the record has no identity.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Valid reports whether the email parses as an addressable identity.
func Valid(email string) bool {
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

// Resolve finds the customer owning the email, creating an empty one
// when none exists. The created flag tells sync passes apart from
// updates for their counters.
func (r *Resolver) Resolve(ctx context.Context, email string) (c *domain.Customer, created bool, err error) {
	norm := Normalize(email)
	if norm == "" || !Valid(norm) {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidIdentity, email)
	}

	c, err = r.repo.FindByEmail(ctx, norm)
	if err != nil {
		return nil, false, err
	}
	if c != nil {
		return c, false, nil
	}

	now := time.Now().UTC()
	c = &domain.Customer{
		ID:        uuid.NewString(),
		Email:     norm,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.repo.Create(ctx, c); err != nil {
		return nil, false, fmt.Errorf("create customer for %s: %w", norm, err)
	}
	return c, true, nil
}
