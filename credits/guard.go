// Package credits meters protected operations. Callers check the balance
// before the operation runs and deduct one credit only after it succeeds.
package credits

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/models"
)

type ProfileStore interface {
	// GetProfile returns (nil, nil) when the user has no profile.
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	DeductCredit(ctx context.Context, userID string) (int, error)
}

type Observer interface {
	CreditDeducted(ctx context.Context)
}

type Guard struct {
	store    ProfileStore
	logger   logrus.FieldLogger
	observer Observer
}

type Option func(*Guard)

func WithLogger(l logrus.FieldLogger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(g *Guard) {
		g.observer = o
	}
}

func NewGuard(store ProfileStore, opts ...Option) *Guard {
	g := &Guard{store: store, logger: logrus.StandardLogger()}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Check fails with a 404 AppError when the user has no profile and a 403
// AppError when the balance is not positive.
func (g *Guard) Check(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "credits.Check"

	profile, err := g.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to load user profile")
	}
	if profile == nil {
		g.logger.WithField("user_id", userID).Error("User profile not found")
		return nil, errors.NotFound(op, nil, "User profile not found")
	}
	if profile.Credits <= 0 {
		g.logger.WithFields(logrus.Fields{"user_id": userID, "credits": profile.Credits}).
			Warn("Insufficient credits")
		return nil, errors.Forbidden(op, nil, "Insufficient credits")
	}
	return profile, nil
}

// Deduct takes one credit. Failures are logged and returned; the operation
// the credit paid for has already happened.
func (g *Guard) Deduct(ctx context.Context, userID string) (int, error) {
	balance, err := g.store.DeductCredit(context.WithoutCancel(ctx), userID)
	if err != nil {
		g.logger.WithError(err).WithField("user_id", userID).Error("Failed to deduct credit")
		return 0, err
	}
	if g.observer != nil {
		g.observer.CreditDeducted(ctx)
	}
	g.logger.WithFields(logrus.Fields{"user_id": userID, "balance": balance}).Info("Deducted credit")
	return balance, nil
}
