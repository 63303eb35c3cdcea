package waitlist

import (
	"context"

	"github.com/archetype/origin-gateway/internal/domain"
)

// Repository defines the data access contract for believers.
// Implementations must be safe for concurrent use.
type Repository interface {
	// FindByEmail returns the believer with the given normalized email.
	// Returns ErrNotFound if none exists.
	FindByEmail(ctx context.Context, email string) (*domain.Believer, error)

	// Insert persists a new believer. The store assigns QueuePosition (and
	// ID when empty); the caller never supplies either. Returns ErrDuplicate
	// when the email unique constraint is violated.
	Insert(ctx context.Context, b *domain.Believer) (*domain.Believer, error)

	// Count returns the total number of believers.
	Count(ctx context.Context) (int64, error)

	// Stats returns aggregate counts plus the recentLimit most-recent
	// believers, newest first.
	Stats(ctx context.Context, recentLimit int) (*domain.WaitlistStats, error)

	// UpdateStatus changes only the review status of the given believer.
	// Returns ErrNotFound if the id doesn't exist.
	UpdateStatus(ctx context.Context, id string, status domain.BelieverStatus) error
}

// Notifier dispatches admission side effects. Implementations are
// fire-and-forget: they must not block the caller and must swallow delivery
// failures (logging them), because admission is already durable by the time
// a notification is dispatched.
type Notifier interface {
	// SendConfirmation tells the registrant their queue position.
	SendConfirmation(email string, position int64)

	// NotifyOperator sends a short summary to the operator address.
	NotifyOperator(subject, message string)
}
