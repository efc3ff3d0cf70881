package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null"`
	AvatarURL    string
	Verified     bool
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type PendingRegistrationModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"index;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null"`
	AvatarURL    string
	CreatedAt    time.Time `gorm:"not null"`
}

type BookModel struct {
	ID            string `gorm:"primaryKey"`
	Name          string `gorm:"index;not null"`
	AuthorID      string `gorm:"index"`
	AuthorName    string
	CategoryID    string `gorm:"index"`
	CategoryName  string
	Description   string `gorm:"type:text"`
	AverageRating float64
	RatingCount   int64
	CoverURL      string
	FileKey       string
	PageCount     int
	Clicked       int64
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

type AuthorModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;not null"`
	Bio       string `gorm:"type:text"`
	CoverURL  string
	CreatedAt time.Time `gorm:"not null"`
}

type CategoryModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	CoverURL    string
	CreatedAt   time.Time `gorm:"not null"`
}

type RatingModel struct {
	ID     string `gorm:"primaryKey"`
	BookID string `gorm:"uniqueIndex:idx_ratings_book_user;not null"`
	UserID string `gorm:"uniqueIndex:idx_ratings_book_user;not null"`
	Value  int    `gorm:"not null"`
}

type ReviewModel struct {
	ID        string `gorm:"primaryKey"`
	BookID    string `gorm:"index;not null"`
	UserID    string `gorm:"index;not null"`
	Text      string `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

type ShelfEntryModel struct {
	ID     string `gorm:"primaryKey"`
	UserID string `gorm:"uniqueIndex:idx_shelves_user_book;not null"`
	BookID string `gorm:"uniqueIndex:idx_shelves_user_book;not null"`
	Shelf  string `gorm:"not null"`
}

type SubscriptionModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"uniqueIndex;not null"`
	Status    string `gorm:"not null"`
	PlanType  string
	StartDate time.Time
	EndDate   *time.Time
	IsActive  bool
}

type PurchasedBookModel struct {
	ID            string `gorm:"primaryKey"`
	UserID        string `gorm:"uniqueIndex:idx_purchases_user_book;not null"`
	BookID        string `gorm:"uniqueIndex:idx_purchases_user_book;not null"`
	TransactionID string `gorm:"uniqueIndex;not null"`
	PurchaseDate  time.Time `gorm:"not null"`
}
