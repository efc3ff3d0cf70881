package store

import (
	"errors"

	"bookhive/pkg/domain"
)

// ErrDuplicate is returned when a write violates a uniqueness constraint.
// The constraints (user email, subscription user, purchase transaction id and
// (user,book) pair, rating and shelf (user,book) pairs, author/category name)
// are the authoritative guard against concurrent duplicate writes.
var ErrDuplicate = errors.New("duplicate record")

// ErrNotFound is returned by operations that require an existing record.
var ErrNotFound = errors.New("record not found")

// Store defines persistence operations over the library's collections.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	ListUsers(search string, offset, limit int) ([]domain.User, int64, error)
	DeleteUser(id string) error

	// pending registrations (registration flow only, never exposed)
	SavePending(domain.PendingRegistration) error
	GetPendingByID(id string) (domain.PendingRegistration, bool, error)
	DeletePendingByEmail(email string) error
	// PromotePending creates the permanent verified user and deletes the
	// pending record in one transaction.
	PromotePending(id string) (domain.User, error)

	// books
	SaveBook(domain.Book) error
	GetBook(id string) (domain.Book, bool, error)
	GetBookByName(name string) (domain.Book, bool, error)
	ListBooks(search string, offset, limit int) ([]domain.Book, int64, error)
	DeleteBook(id string) error
	DeleteBooksByAuthor(authorID string) error
	DeleteBooksByCategory(categoryID string) error
	SetBookFile(id, fileKey string, pageCount int) error
	SetBookCover(id, coverURL string) error
	IncrementBookClicks(id string) error
	// RecomputeBookRating refreshes the book's cached rating projection from
	// the ratings collection and returns the new values.
	RecomputeBookRating(bookID string) (float64, int64, error)

	// authors
	SaveAuthor(domain.Author) error
	GetAuthor(id string) (domain.Author, bool, error)
	GetAuthorByName(name string) (domain.Author, bool, error)
	ListAuthors(search string, offset, limit int) ([]domain.Author, int64, error)
	DeleteAuthor(id string) error

	// categories
	SaveCategory(domain.Category) error
	GetCategory(id string) (domain.Category, bool, error)
	GetCategoryByName(name string) (domain.Category, bool, error)
	ListCategories(search string, offset, limit int) ([]domain.Category, int64, error)
	DeleteCategory(id string) error

	// ratings
	UpsertRating(domain.Rating) error
	GetRating(bookID, userID string) (domain.Rating, bool, error)
	DeleteRating(bookID, userID string) (bool, error)

	// reviews
	SaveReview(domain.Review) error
	GetReview(id string) (domain.Review, bool, error)
	ListReviewsByBook(bookID string) ([]domain.Review, error)
	DeleteReview(id string) error

	// shelves
	SaveShelfEntry(domain.ShelfEntry) error
	GetShelfEntry(userID, bookID string) (domain.ShelfEntry, bool, error)
	UpdateShelfEntry(userID, bookID string, shelf domain.Shelf) (bool, error)
	ListShelf(userID string, shelf domain.Shelf) ([]domain.ShelfEntry, error)
	ListShelvesForUser(userID string) ([]domain.ShelfEntry, error)
	DeleteShelfEntry(userID, bookID string) (bool, error)

	// subscriptions
	GetSubscriptionByUser(userID string) (domain.Subscription, bool, error)
	UpsertSubscription(domain.Subscription) error
	DeleteSubscriptionByUser(userID string) (bool, error)

	// purchases
	HasPurchase(userID, bookID string) (bool, error)
	HasTransaction(transactionID string) (bool, error)
	CreatePurchase(domain.PurchasedBook) error
	ListPurchasesByUser(userID string) ([]domain.PurchasedBook, error)
}
