package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookhive/internal/util"
	"bookhive/pkg/domain"
)

// freePageLimit is the number of pages any account may read without paying.
const freePageLimit = 10

// GetSubscription returns the user's subscription, lazily creating the Free
// default for accounts that never had one.
func (a *App) GetSubscription(userID string) (domain.Subscription, error) {
	sub, ok, err := a.store.GetSubscriptionByUser(userID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if ok {
		return sub, nil
	}
	sub = domain.Subscription{
		ID:        util.NewID(),
		UserID:    userID,
		Status:    domain.StatusFree,
		StartDate: a.now(),
		IsActive:  true,
	}
	if err := a.store.UpsertSubscription(sub); err != nil {
		return domain.Subscription{}, err
	}
	return sub, nil
}

// SubscriptionInput carries explicit create/update fields for a subscription.
type SubscriptionInput struct {
	Status   *string    `json:"status"`
	PlanType *string    `json:"planType"`
	EndDate  *time.Time `json:"endDate"`
	IsActive *bool      `json:"isActive"`
}

// UpdateSubscription applies an explicit subscription change. The payment
// webhook is the usual Premium writer; this covers manual adjustment.
func (a *App) UpdateSubscription(userID string, in SubscriptionInput) (domain.Subscription, error) {
	sub, err := a.GetSubscription(userID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if in.Status != nil {
		status := domain.SubscriptionStatus(*in.Status)
		if status != domain.StatusFree && status != domain.StatusPremium {
			return domain.Subscription{}, fmt.Errorf("%w: unknown status %q", ErrValidation, *in.Status)
		}
		sub.Status = status
	}
	if in.PlanType != nil {
		plan := domain.PlanType(*in.PlanType)
		if *in.PlanType != "" && plan != domain.PlanMonthly && plan != domain.PlanYearly {
			return domain.Subscription{}, fmt.Errorf("%w: unknown plan %q", ErrValidation, *in.PlanType)
		}
		sub.PlanType = plan
	}
	if in.EndDate != nil {
		sub.EndDate = in.EndDate
	}
	if in.IsActive != nil {
		sub.IsActive = *in.IsActive
	}
	if err := a.store.UpsertSubscription(sub); err != nil {
		return domain.Subscription{}, err
	}
	return sub, nil
}

// CancelSubscription reverts the user to the Free tier.
func (a *App) CancelSubscription(userID string) (domain.Subscription, error) {
	if _, err := a.store.DeleteSubscriptionByUser(userID); err != nil {
		return domain.Subscription{}, err
	}
	return a.GetSubscription(userID)
}

// ListPurchases returns the user's purchased books.
func (a *App) ListPurchases(userID string) ([]domain.PurchasedBook, error) {
	return a.store.ListPurchasesByUser(userID)
}

// HasPurchased reports whether the user bought a specific book.
func (a *App) HasPurchased(userID, bookID string) (bool, error) {
	return a.store.HasPurchase(userID, bookID)
}

// BookContent grants access to a book file when the requested page span is
// within the free allowance or the user holds an entitlement. The returned
// URL is a short-lived presigned link.
func (a *App) BookContent(ctx context.Context, user domain.User, bookID string, pages int) (string, error) {
	book, ok, err := a.store.GetBook(bookID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: book", ErrNotFound)
	}
	if strings.TrimSpace(book.FileKey) == "" {
		return "", fmt.Errorf("%w: book file", ErrNotFound)
	}
	if pages < 0 {
		return "", fmt.Errorf("%w: pages must not be negative", ErrValidation)
	}
	if pages > freePageLimit {
		allowed, err := a.hasFullAccess(user.ID, bookID)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", fmt.Errorf("%w: payment required for more than %d pages", ErrAccessDenied, freePageLimit)
		}
	}
	url, err := a.objects.PresignGet(ctx, book.FileKey, a.presignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign book file: %w", err)
	}
	return url, nil
}

func (a *App) hasFullAccess(userID, bookID string) (bool, error) {
	sub, ok, err := a.store.GetSubscriptionByUser(userID)
	if err != nil {
		return false, err
	}
	if ok && sub.ActivePremium(a.now()) {
		return true, nil
	}
	return a.store.HasPurchase(userID, bookID)
}
