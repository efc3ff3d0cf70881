package app

import (
	"errors"
	"fmt"
	"strings"

	"bookhive/internal/util"
	"bookhive/pkg/domain"
	"bookhive/pkg/store"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// ListQuery is the common pagination + name-search shape of catalog listings.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

func (q ListQuery) normalize() (offset, limit, page int) {
	page = q.Page
	if page < 1 {
		page = defaultPage
	}
	limit = q.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	return (page - 1) * limit, limit, page
}

// ListPage is the uniform paginated response envelope.
type ListPage[T any] struct {
	Total       int64 `json:"total"`
	TotalPages  int64 `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	Items       []T   `json:"items"`
}

func newListPage[T any](items []T, total int64, page, limit int) ListPage[T] {
	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	if items == nil {
		items = []T{}
	}
	return ListPage[T]{Total: total, TotalPages: totalPages, CurrentPage: page, Items: items}
}

// books

// BookInput carries create/update fields for a book. Nil pointers on update
// leave the stored value untouched.
type BookInput struct {
	Name        *string `json:"name"`
	AuthorID    *string `json:"authorId"`
	Category    *string `json:"categoryId"`
	Description *string `json:"description"`
	CoverURL    *string `json:"coverImage"`
}

// CreateBook adds a catalog entry, resolving author/category names.
func (a *App) CreateBook(in BookInput) (domain.Book, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return domain.Book{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	now := a.now()
	book := domain.Book{
		ID:        util.NewID(),
		Name:      strings.TrimSpace(*in.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Description != nil {
		book.Description = *in.Description
	}
	if in.CoverURL != nil {
		book.CoverURL = *in.CoverURL
	}
	if in.AuthorID != nil && *in.AuthorID != "" {
		author, ok, err := a.store.GetAuthor(*in.AuthorID)
		if err != nil {
			return domain.Book{}, err
		}
		if !ok {
			return domain.Book{}, fmt.Errorf("%w: author", ErrNotFound)
		}
		book.AuthorID = author.ID
		book.AuthorName = author.Name
	}
	if in.Category != nil && *in.Category != "" {
		category, ok, err := a.store.GetCategory(*in.Category)
		if err != nil {
			return domain.Book{}, err
		}
		if !ok {
			return domain.Book{}, fmt.Errorf("%w: category", ErrNotFound)
		}
		book.CategoryID = category.ID
		book.CategoryName = category.Name
	}
	if err := a.store.SaveBook(book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// UpdateBook merges the provided fields into an existing book.
func (a *App) UpdateBook(id string, in BookInput) (domain.Book, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, fmt.Errorf("%w: book", ErrNotFound)
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return domain.Book{}, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		book.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		book.Description = *in.Description
	}
	if in.CoverURL != nil {
		book.CoverURL = *in.CoverURL
	}
	if in.AuthorID != nil {
		if *in.AuthorID == "" {
			book.AuthorID = ""
			book.AuthorName = ""
		} else {
			author, found, err := a.store.GetAuthor(*in.AuthorID)
			if err != nil {
				return domain.Book{}, err
			}
			if !found {
				return domain.Book{}, fmt.Errorf("%w: author", ErrNotFound)
			}
			book.AuthorID = author.ID
			book.AuthorName = author.Name
		}
	}
	if in.Category != nil {
		if *in.Category == "" {
			book.CategoryID = ""
			book.CategoryName = ""
		} else {
			category, found, err := a.store.GetCategory(*in.Category)
			if err != nil {
				return domain.Book{}, err
			}
			if !found {
				return domain.Book{}, fmt.Errorf("%w: category", ErrNotFound)
			}
			book.CategoryID = category.ID
			book.CategoryName = category.Name
		}
	}
	book.UpdatedAt = a.now()
	if err := a.store.SaveBook(book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// GetBook retrieves a book and counts the view.
func (a *App) GetBook(id string) (domain.Book, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, fmt.Errorf("%w: book", ErrNotFound)
	}
	if err := a.store.IncrementBookClicks(id); err == nil {
		book.Clicked++
	}
	return book, nil
}

// GetBookByName retrieves a book by its exact name.
func (a *App) GetBookByName(name string) (domain.Book, error) {
	book, ok, err := a.store.GetBookByName(name)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, fmt.Errorf("%w: book", ErrNotFound)
	}
	return book, nil
}

// ListBooks returns a page of the catalog.
func (a *App) ListBooks(q ListQuery) (ListPage[domain.Book], error) {
	offset, limit, page := q.normalize()
	items, total, err := a.store.ListBooks(q.Search, offset, limit)
	if err != nil {
		return ListPage[domain.Book]{}, err
	}
	return newListPage(items, total, page, limit), nil
}

// DeleteBook removes a book and its dependent records.
func (a *App) DeleteBook(id string) error {
	_, ok, err := a.store.GetBook(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: book", ErrNotFound)
	}
	return a.store.DeleteBook(id)
}

// authors

// AuthorInput carries create/update fields for an author.
type AuthorInput struct {
	Name     *string `json:"name"`
	Bio      *string `json:"bio"`
	CoverURL *string `json:"coverImage"`
}

// CreateAuthor adds an author; names are unique.
func (a *App) CreateAuthor(in AuthorInput) (domain.Author, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return domain.Author{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	author := domain.Author{
		ID:        util.NewID(),
		Name:      strings.TrimSpace(*in.Name),
		CreatedAt: a.now(),
	}
	if in.Bio != nil {
		author.Bio = *in.Bio
	}
	if in.CoverURL != nil {
		author.CoverURL = *in.CoverURL
	}
	if err := a.store.SaveAuthor(author); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Author{}, fmt.Errorf("%w: author name already exists", ErrConflict)
		}
		return domain.Author{}, err
	}
	return author, nil
}

// UpdateAuthor merges the provided fields into an existing author.
func (a *App) UpdateAuthor(id string, in AuthorInput) (domain.Author, error) {
	author, ok, err := a.store.GetAuthor(id)
	if err != nil {
		return domain.Author{}, err
	}
	if !ok {
		return domain.Author{}, fmt.Errorf("%w: author", ErrNotFound)
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return domain.Author{}, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		author.Name = strings.TrimSpace(*in.Name)
	}
	if in.Bio != nil {
		author.Bio = *in.Bio
	}
	if in.CoverURL != nil {
		author.CoverURL = *in.CoverURL
	}
	if err := a.store.SaveAuthor(author); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Author{}, fmt.Errorf("%w: author name already exists", ErrConflict)
		}
		return domain.Author{}, err
	}
	return author, nil
}

// GetAuthor retrieves an author by ID.
func (a *App) GetAuthor(id string) (domain.Author, error) {
	author, ok, err := a.store.GetAuthor(id)
	if err != nil {
		return domain.Author{}, err
	}
	if !ok {
		return domain.Author{}, fmt.Errorf("%w: author", ErrNotFound)
	}
	return author, nil
}

// GetAuthorByName retrieves an author by exact name.
func (a *App) GetAuthorByName(name string) (domain.Author, error) {
	author, ok, err := a.store.GetAuthorByName(name)
	if err != nil {
		return domain.Author{}, err
	}
	if !ok {
		return domain.Author{}, fmt.Errorf("%w: author", ErrNotFound)
	}
	return author, nil
}

// ListAuthors returns a page of authors.
func (a *App) ListAuthors(q ListQuery) (ListPage[domain.Author], error) {
	offset, limit, page := q.normalize()
	items, total, err := a.store.ListAuthors(q.Search, offset, limit)
	if err != nil {
		return ListPage[domain.Author]{}, err
	}
	return newListPage(items, total, page, limit), nil
}

// DeleteAuthor removes an author and cascades to their books.
func (a *App) DeleteAuthor(id string) error {
	_, ok, err := a.store.GetAuthor(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: author", ErrNotFound)
	}
	if err := a.store.DeleteBooksByAuthor(id); err != nil {
		return err
	}
	return a.store.DeleteAuthor(id)
}

// categories

// CategoryInput carries create/update fields for a category.
type CategoryInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	CoverURL    *string `json:"coverImage"`
}

// CreateCategory adds a category; names are unique.
func (a *App) CreateCategory(in CategoryInput) (domain.Category, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return domain.Category{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	category := domain.Category{
		ID:        util.NewID(),
		Name:      strings.TrimSpace(*in.Name),
		CreatedAt: a.now(),
	}
	if in.Description != nil {
		category.Description = *in.Description
	}
	if in.CoverURL != nil {
		category.CoverURL = *in.CoverURL
	}
	if err := a.store.SaveCategory(category); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Category{}, fmt.Errorf("%w: category name already exists", ErrConflict)
		}
		return domain.Category{}, err
	}
	return category, nil
}

// UpdateCategory merges the provided fields into an existing category.
func (a *App) UpdateCategory(id string, in CategoryInput) (domain.Category, error) {
	category, ok, err := a.store.GetCategory(id)
	if err != nil {
		return domain.Category{}, err
	}
	if !ok {
		return domain.Category{}, fmt.Errorf("%w: category", ErrNotFound)
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return domain.Category{}, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		category.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		category.Description = *in.Description
	}
	if in.CoverURL != nil {
		category.CoverURL = *in.CoverURL
	}
	if err := a.store.SaveCategory(category); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Category{}, fmt.Errorf("%w: category name already exists", ErrConflict)
		}
		return domain.Category{}, err
	}
	return category, nil
}

// GetCategory retrieves a category by ID.
func (a *App) GetCategory(id string) (domain.Category, error) {
	category, ok, err := a.store.GetCategory(id)
	if err != nil {
		return domain.Category{}, err
	}
	if !ok {
		return domain.Category{}, fmt.Errorf("%w: category", ErrNotFound)
	}
	return category, nil
}

// GetCategoryByName retrieves a category by exact name.
func (a *App) GetCategoryByName(name string) (domain.Category, error) {
	category, ok, err := a.store.GetCategoryByName(name)
	if err != nil {
		return domain.Category{}, err
	}
	if !ok {
		return domain.Category{}, fmt.Errorf("%w: category", ErrNotFound)
	}
	return category, nil
}

// ListCategories returns a page of categories.
func (a *App) ListCategories(q ListQuery) (ListPage[domain.Category], error) {
	offset, limit, page := q.normalize()
	items, total, err := a.store.ListCategories(q.Search, offset, limit)
	if err != nil {
		return ListPage[domain.Category]{}, err
	}
	return newListPage(items, total, page, limit), nil
}

// DeleteCategory removes a category and cascades to its books.
func (a *App) DeleteCategory(id string) error {
	_, ok, err := a.store.GetCategory(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: category", ErrNotFound)
	}
	if err := a.store.DeleteBooksByCategory(id); err != nil {
		return err
	}
	return a.store.DeleteCategory(id)
}

// ratings

// RateBook records the user's 1-5 rating for a book and refreshes the book's
// cached average.
func (a *App) RateBook(userID, bookID string, value int) (domain.Book, error) {
	if value < 1 || value > 5 {
		return domain.Book{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	if _, ok, err := a.store.GetBook(bookID); err != nil {
		return domain.Book{}, err
	} else if !ok {
		return domain.Book{}, fmt.Errorf("%w: book", ErrNotFound)
	}
	rating := domain.Rating{
		ID:     util.NewID(),
		BookID: bookID,
		UserID: userID,
		Value:  value,
	}
	if err := a.store.UpsertRating(rating); err != nil {
		return domain.Book{}, err
	}
	return a.refreshBookRating(bookID)
}

// DeleteRating removes the user's rating and refreshes the cached average.
func (a *App) DeleteRating(userID, bookID string) (domain.Book, error) {
	existed, err := a.store.DeleteRating(bookID, userID)
	if err != nil {
		return domain.Book{}, err
	}
	if !existed {
		return domain.Book{}, fmt.Errorf("%w: rating", ErrNotFound)
	}
	return a.refreshBookRating(bookID)
}

func (a *App) refreshBookRating(bookID string) (domain.Book, error) {
	if _, _, err := a.store.RecomputeBookRating(bookID); err != nil {
		return domain.Book{}, err
	}
	book, ok, err := a.store.GetBook(bookID)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, fmt.Errorf("%w: book", ErrNotFound)
	}
	return book, nil
}

// GetRating returns the user's rating for a book.
func (a *App) GetRating(userID, bookID string) (domain.Rating, error) {
	rating, ok, err := a.store.GetRating(bookID, userID)
	if err != nil {
		return domain.Rating{}, err
	}
	if !ok {
		return domain.Rating{}, fmt.Errorf("%w: rating", ErrNotFound)
	}
	return rating, nil
}

// BookAverage is the cached rating projection of a book.
type BookAverage struct {
	BookID        string  `json:"bookId"`
	AverageRating float64 `json:"averageRating"`
	RatingCount   int64   `json:"ratingCount"`
}

// GetBookAverage returns the cached average rating of a book.
func (a *App) GetBookAverage(bookID string) (BookAverage, error) {
	book, ok, err := a.store.GetBook(bookID)
	if err != nil {
		return BookAverage{}, err
	}
	if !ok {
		return BookAverage{}, fmt.Errorf("%w: book", ErrNotFound)
	}
	return BookAverage{BookID: book.ID, AverageRating: book.AverageRating, RatingCount: book.RatingCount}, nil
}

// reviews

// CreateReview attaches review text to a book.
func (a *App) CreateReview(userID, bookID, text string) (domain.Review, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Review{}, fmt.Errorf("%w: text required", ErrValidation)
	}
	if _, ok, err := a.store.GetBook(bookID); err != nil {
		return domain.Review{}, err
	} else if !ok {
		return domain.Review{}, fmt.Errorf("%w: book", ErrNotFound)
	}
	now := a.now()
	review := domain.Review{
		ID:        util.NewID(),
		BookID:    bookID,
		UserID:    userID,
		Text:      strings.TrimSpace(text),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.SaveReview(review); err != nil {
		return domain.Review{}, err
	}
	return review, nil
}

// UpdateReview replaces the review text. Only the review's owner or an admin
// may update it.
func (a *App) UpdateReview(actor domain.User, reviewID, text string) (domain.Review, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Review{}, fmt.Errorf("%w: text required", ErrValidation)
	}
	review, ok, err := a.store.GetReview(reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	if !ok {
		return domain.Review{}, fmt.Errorf("%w: review", ErrNotFound)
	}
	if review.UserID != actor.ID && actor.Role != domain.RoleAdmin {
		return domain.Review{}, fmt.Errorf("%w: not the review owner", ErrAccessDenied)
	}
	review.Text = strings.TrimSpace(text)
	review.UpdatedAt = a.now()
	if err := a.store.SaveReview(review); err != nil {
		return domain.Review{}, err
	}
	return review, nil
}

// DeleteReview removes a review. Only the review's owner or an admin may
// delete it.
func (a *App) DeleteReview(actor domain.User, reviewID string) error {
	review, ok, err := a.store.GetReview(reviewID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: review", ErrNotFound)
	}
	if review.UserID != actor.ID && actor.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: not the review owner", ErrAccessDenied)
	}
	return a.store.DeleteReview(reviewID)
}

// ListReviews returns all reviews for a book.
func (a *App) ListReviews(bookID string) ([]domain.Review, error) {
	if _, ok, err := a.store.GetBook(bookID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: book", ErrNotFound)
	}
	return a.store.ListReviewsByBook(bookID)
}

// shelves

// AddToShelf places a book on one of the user's shelves.
func (a *App) AddToShelf(userID, bookID string, shelf domain.Shelf) (domain.ShelfEntry, error) {
	if !domain.ValidShelf(shelf) {
		return domain.ShelfEntry{}, fmt.Errorf("%w: unknown shelf %q", ErrValidation, shelf)
	}
	if _, ok, err := a.store.GetBook(bookID); err != nil {
		return domain.ShelfEntry{}, err
	} else if !ok {
		return domain.ShelfEntry{}, fmt.Errorf("%w: book", ErrNotFound)
	}
	entry := domain.ShelfEntry{
		ID:     util.NewID(),
		UserID: userID,
		BookID: bookID,
		Shelf:  shelf,
	}
	if err := a.store.SaveShelfEntry(entry); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.ShelfEntry{}, fmt.Errorf("%w: book already shelved", ErrConflict)
		}
		return domain.ShelfEntry{}, err
	}
	return entry, nil
}

// MoveShelf moves a shelved book to another shelf.
func (a *App) MoveShelf(userID, bookID string, shelf domain.Shelf) (domain.ShelfEntry, error) {
	if !domain.ValidShelf(shelf) {
		return domain.ShelfEntry{}, fmt.Errorf("%w: unknown shelf %q", ErrValidation, shelf)
	}
	moved, err := a.store.UpdateShelfEntry(userID, bookID, shelf)
	if err != nil {
		return domain.ShelfEntry{}, err
	}
	if !moved {
		return domain.ShelfEntry{}, fmt.Errorf("%w: shelf entry", ErrNotFound)
	}
	entry, _, err := a.store.GetShelfEntry(userID, bookID)
	if err != nil {
		return domain.ShelfEntry{}, err
	}
	return entry, nil
}

// ListShelf returns the user's entries on a single shelf.
func (a *App) ListShelf(userID string, shelf domain.Shelf) ([]domain.ShelfEntry, error) {
	if !domain.ValidShelf(shelf) {
		return nil, fmt.Errorf("%w: unknown shelf %q", ErrValidation, shelf)
	}
	return a.store.ListShelf(userID, shelf)
}

// ListShelves returns all the user's shelf entries.
func (a *App) ListShelves(userID string) ([]domain.ShelfEntry, error) {
	return a.store.ListShelvesForUser(userID)
}

// RemoveFromShelf deletes the user's shelf entry for a book.
func (a *App) RemoveFromShelf(userID, bookID string) error {
	existed, err := a.store.DeleteShelfEntry(userID, bookID)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("%w: shelf entry", ErrNotFound)
	}
	return nil
}
