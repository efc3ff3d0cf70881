package domain

import "time"

// UserRole controls access to admin-gated operations.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// SubscriptionStatus is the entitlement tier of an account.
type SubscriptionStatus string

const (
	StatusFree    SubscriptionStatus = "Free"
	StatusPremium SubscriptionStatus = "Premium"
)

// PlanType is the billing period of a premium subscription.
type PlanType string

const (
	PlanMonthly PlanType = "monthly"
	PlanYearly  PlanType = "yearly"
)

// Shelf is a user's reading status for a book.
type Shelf string

const (
	ShelfRead             Shelf = "Read"
	ShelfCurrentlyReading Shelf = "Currently Reading"
	ShelfWantToRead       Shelf = "Want To Read"
)

// ValidShelf reports whether s is one of the three known shelves.
func ValidShelf(s Shelf) bool {
	switch s {
	case ShelfRead, ShelfCurrentlyReading, ShelfWantToRead:
		return true
	default:
		return false
	}
}

// User is a verified, permanent account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	AvatarURL    string    `json:"avatar,omitempty"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PendingRegistration stages a would-be user until email ownership is proven.
// Never exposed to clients.
type PendingRegistration struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	AvatarURL    string
	CreatedAt    time.Time
}

// Subscription is the per-user entitlement record. One per user.
type Subscription struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userId"`
	Status    SubscriptionStatus `json:"status"`
	PlanType  PlanType           `json:"planType,omitempty"`
	StartDate time.Time          `json:"startDate"`
	EndDate   *time.Time         `json:"endDate,omitempty"`
	IsActive  bool               `json:"isActive"`
}

// ActivePremium reports whether the subscription currently grants paid access.
func (s Subscription) ActivePremium(now time.Time) bool {
	if s.Status != StatusPremium || !s.IsActive {
		return false
	}
	return s.EndDate == nil || now.Before(*s.EndDate)
}

// PurchasedBook records a completed per-book payment. TransactionID is the
// gateway transaction and doubles as the idempotency key.
type PurchasedBook struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	BookID        string    `json:"bookId"`
	TransactionID string    `json:"transactionId"`
	PurchaseDate  time.Time `json:"purchaseDate"`
}

// Book is a catalog entry. AverageRating and RatingCount are cached
// projections of the ratings collection, recomputed on every rating change.
type Book struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	AuthorID      string    `json:"authorId,omitempty"`
	AuthorName    string    `json:"authorName"`
	CategoryID    string    `json:"categoryId,omitempty"`
	CategoryName  string    `json:"categoryName"`
	Description   string    `json:"description,omitempty"`
	AverageRating float64   `json:"averageRating"`
	RatingCount   int64     `json:"ratingCount"`
	CoverURL      string    `json:"coverImage,omitempty"`
	FileKey       string    `json:"-"`
	PageCount     int       `json:"pageCount,omitempty"`
	Clicked       int64     `json:"clicked"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Author is an admin-managed catalog entity with a unique name.
type Author struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio,omitempty"`
	CoverURL  string    `json:"coverImage,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Category is an admin-managed catalog entity with a unique name.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CoverURL    string    `json:"coverImage,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Rating is one user's 1-5 score for a book. One per (book,user).
type Rating struct {
	ID     string `json:"id"`
	BookID string `json:"bookId"`
	UserID string `json:"userId"`
	Value  int    `json:"rating"`
}

// Review is free-form text a user attaches to a book.
type Review struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"date"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ShelfEntry places a book on one of a user's shelves. One per (user,book).
type ShelfEntry struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	BookID string `json:"bookId"`
	Shelf  Shelf  `json:"shelve"`
}
