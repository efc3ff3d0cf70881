package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookhive/internal/util"
	"bookhive/pkg/domain"
	"bookhive/pkg/payment"
	"bookhive/pkg/store"
)

const (
	monthlyAmountCents int64 = 5000
	yearlyAmountCents  int64 = 50000
)

// PaymentInput describes what the user wants to pay for: a subscription plan
// or a single book.
type PaymentInput struct {
	UserID           string
	SubscriptionType string
	BookID           string
	AmountCents      int64
}

// InitiatePayment runs the gateway round trip and returns the hosted payment
// page URL. Entitlements the user already holds short-circuit with a
// conflict before any gateway call.
func (a *App) InitiatePayment(ctx context.Context, in PaymentInput) (string, error) {
	user, ok, err := a.store.GetUserByID(strings.TrimSpace(in.UserID))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: user", ErrNotFound)
	}

	var product string
	var amountCents int64
	switch {
	case in.SubscriptionType != "":
		plan := domain.PlanType(in.SubscriptionType)
		switch plan {
		case domain.PlanMonthly:
			amountCents = monthlyAmountCents
		case domain.PlanYearly:
			amountCents = yearlyAmountCents
		default:
			return "", fmt.Errorf("%w: unknown subscription type %q", ErrValidation, in.SubscriptionType)
		}
		sub, found, err := a.store.GetSubscriptionByUser(user.ID)
		if err != nil {
			return "", err
		}
		if found && sub.ActivePremium(a.now()) {
			return "", fmt.Errorf("%w: subscription already active", ErrConflict)
		}
		product = string(plan)
	case in.BookID != "":
		if in.AmountCents <= 0 {
			return "", fmt.Errorf("%w: amount required", ErrValidation)
		}
		if _, found, err := a.store.GetBook(in.BookID); err != nil {
			return "", err
		} else if !found {
			return "", fmt.Errorf("%w: book", ErrNotFound)
		}
		owned, err := a.store.HasPurchase(user.ID, in.BookID)
		if err != nil {
			return "", err
		}
		if owned {
			return "", fmt.Errorf("%w: book already purchased", ErrConflict)
		}
		product = in.BookID
		amountCents = in.AmountCents
	default:
		return "", fmt.Errorf("%w: subscriptionType or bookId required", ErrValidation)
	}

	merchantOrderID := fmt.Sprintf("%s-%s", user.ID, product)
	extra := map[string]string{"userId": user.ID}
	if in.SubscriptionType != "" {
		extra["planType"] = product
	} else {
		extra["bookId"] = product
	}

	authToken, err := a.gateway.AuthToken(ctx)
	if err != nil {
		return "", upstream(err)
	}
	orderID, err := a.gateway.CreateOrder(ctx, authToken, merchantOrderID, amountCents)
	if err != nil {
		return "", upstream(err)
	}
	key, err := a.gateway.PaymentKey(ctx, authToken, orderID, amountCents, billingFor(user), extra)
	if err != nil {
		return "", upstream(err)
	}
	return a.gateway.IframeURL(key), nil
}

// billingFor splits the display name into the first/last fields the gateway
// requires, padding with "User" when only one part exists.
func billingFor(user domain.User) payment.BillingProfile {
	first, last, found := strings.Cut(strings.TrimSpace(user.Name), " ")
	if !found || strings.TrimSpace(last) == "" {
		last = "User"
	}
	if first == "" {
		first = "User"
	}
	return payment.BillingProfile{
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		Email:     user.Email,
	}
}

func upstream(err error) error {
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}

// Notification is the gateway's transaction callback payload, reduced to the
// fields reconciliation needs.
type Notification struct {
	Type string `json:"type"`
	Obj  struct {
		ID      int64 `json:"id"`
		Success bool  `json:"success"`
		Order   struct {
			MerchantOrderID string `json:"merchant_order_id"`
		} `json:"order"`
	} `json:"obj"`
}

// HandleGatewayNotification reconciles a gateway callback into a
// subscription or purchase grant. Only successful TRANSACTION events grant
// anything; every other delivery is rejected without state change.
// Redelivery of a processed transaction returns ErrDuplicateTransaction
// without a second grant; the storage unique indexes are the authoritative
// guard.
func (a *App) HandleGatewayNotification(n Notification) error {
	if n.Type != "TRANSACTION" {
		return fmt.Errorf("%w: unsupported callback type %q", ErrValidation, n.Type)
	}
	if !n.Obj.Success {
		return fmt.Errorf("%w: transaction %d unsuccessful", ErrValidation, n.Obj.ID)
	}
	userID, product, found := strings.Cut(n.Obj.Order.MerchantOrderID, "-")
	if !found || userID == "" || product == "" {
		return fmt.Errorf("%w: malformed merchant order id %q", ErrValidation, n.Obj.Order.MerchantOrderID)
	}

	switch domain.PlanType(product) {
	case domain.PlanMonthly, domain.PlanYearly:
		return a.grantSubscription(userID, domain.PlanType(product))
	default:
		return a.grantPurchase(userID, product, fmt.Sprintf("%d", n.Obj.ID))
	}
}

func (a *App) grantSubscription(userID string, plan domain.PlanType) error {
	now := a.now()
	var end time.Time
	if plan == domain.PlanMonthly {
		end = now.AddDate(0, 1, 0)
	} else {
		end = now.AddDate(1, 0, 0)
	}
	sub := domain.Subscription{
		ID:        util.NewID(),
		UserID:    userID,
		Status:    domain.StatusPremium,
		PlanType:  plan,
		StartDate: now,
		EndDate:   &end,
		IsActive:  true,
	}
	return a.store.UpsertSubscription(sub)
}

func (a *App) grantPurchase(userID, bookID, transactionID string) error {
	seen, err := a.store.HasTransaction(transactionID)
	if err != nil {
		return err
	}
	if seen {
		return ErrDuplicateTransaction
	}
	owned, err := a.store.HasPurchase(userID, bookID)
	if err != nil {
		return err
	}
	if owned {
		return ErrDuplicateTransaction
	}
	purchase := domain.PurchasedBook{
		ID:            util.NewID(),
		UserID:        userID,
		BookID:        bookID,
		TransactionID: transactionID,
		PurchaseDate:  a.now(),
	}
	if err := a.store.CreatePurchase(purchase); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return ErrDuplicateTransaction
		}
		return err
	}
	return nil
}
