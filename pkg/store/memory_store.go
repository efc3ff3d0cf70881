package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"bookhive/pkg/domain"
)

// MemoryStore is an in-process Store used by tests. It enforces the same
// uniqueness constraints as the database-backed store.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	pending       map[string]domain.PendingRegistration
	books         map[string]domain.Book
	authors       map[string]domain.Author
	categories    map[string]domain.Category
	ratings       map[string]domain.Rating       // key bookID+"/"+userID
	reviews       map[string]domain.Review
	shelves       map[string]domain.ShelfEntry   // key userID+"/"+bookID
	subscriptions map[string]domain.Subscription // key userID
	purchases     map[string]domain.PurchasedBook
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]domain.User),
		pending:       make(map[string]domain.PendingRegistration),
		books:         make(map[string]domain.Book),
		authors:       make(map[string]domain.Author),
		categories:    make(map[string]domain.Category),
		ratings:       make(map[string]domain.Rating),
		reviews:       make(map[string]domain.Review),
		shelves:       make(map[string]domain.ShelfEntry),
		subscriptions: make(map[string]domain.Subscription),
		purchases:     make(map[string]domain.PurchasedBook),
	}
}

func pairKey(a, b string) string { return a + "/" + b }

func matches(name, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(search))
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// users

func (s *MemoryStore) SaveUser(u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, other := range s.users {
		if id != u.ID && other.Email == u.Email {
			return ErrDuplicate
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) HasUserEmail(email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (s *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) ListUsers(search string, offset, limit int) ([]domain.User, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.User
	for _, u := range s.users {
		if matches(u.Name, search) {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return page(all, offset, limit), int64(len(all)), nil
}

func (s *MemoryStore) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

// pending registrations

func (s *MemoryStore) SavePending(p domain.PendingRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p.ID] = p
	return nil
}

func (s *MemoryStore) GetPendingByID(id string) (domain.PendingRegistration, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pending[id]
	return p, ok, nil
}

func (s *MemoryStore) DeletePendingByEmail(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pending {
		if p.Email == email {
			delete(s.pending, id)
		}
	}
	return nil
}

func (s *MemoryStore) PromotePending(id string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	for _, other := range s.users {
		if other.Email == p.Email {
			return domain.User{}, ErrDuplicate
		}
	}
	now := time.Now().UTC()
	u := domain.User{
		ID:           p.ID,
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
		AvatarURL:    p.AvatarURL,
		Verified:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	delete(s.pending, id)
	return u, nil
}

// books

func (s *MemoryStore) SaveBook(b domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.books[b.ID]; ok {
		// preserve derived fields not carried by the caller
		b.AverageRating = prev.AverageRating
		b.RatingCount = prev.RatingCount
		b.FileKey = prev.FileKey
		b.PageCount = prev.PageCount
		b.Clicked = prev.Clicked
	}
	s.books[b.ID] = b
	return nil
}

func (s *MemoryStore) GetBook(id string) (domain.Book, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	return b, ok, nil
}

func (s *MemoryStore) GetBookByName(name string) (domain.Book, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.books {
		if b.Name == name {
			return b, true, nil
		}
	}
	return domain.Book{}, false, nil
}

func (s *MemoryStore) ListBooks(search string, offset, limit int) ([]domain.Book, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.Book
	for _, b := range s.books {
		if matches(b.Name, search) {
			all = append(all, b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return page(all, offset, limit), int64(len(all)), nil
}

func (s *MemoryStore) DeleteBook(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteBookLocked(id)
	return nil
}

func (s *MemoryStore) deleteBookLocked(id string) {
	delete(s.books, id)
	for k, r := range s.ratings {
		if r.BookID == id {
			delete(s.ratings, k)
		}
	}
	for k, r := range s.reviews {
		if r.BookID == id {
			delete(s.reviews, k)
		}
	}
	for k, e := range s.shelves {
		if e.BookID == id {
			delete(s.shelves, k)
		}
	}
}

func (s *MemoryStore) DeleteBooksByAuthor(authorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.books {
		if b.AuthorID == authorID {
			s.deleteBookLocked(id)
		}
	}
	return nil
}

func (s *MemoryStore) DeleteBooksByCategory(categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.books {
		if b.CategoryID == categoryID {
			s.deleteBookLocked(id)
		}
	}
	return nil
}

func (s *MemoryStore) SetBookFile(id, fileKey string, pageCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return ErrNotFound
	}
	b.FileKey = fileKey
	b.PageCount = pageCount
	b.UpdatedAt = time.Now().UTC()
	s.books[id] = b
	return nil
}

func (s *MemoryStore) SetBookCover(id, coverURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return ErrNotFound
	}
	b.CoverURL = coverURL
	b.UpdatedAt = time.Now().UTC()
	s.books[id] = b
	return nil
}

func (s *MemoryStore) IncrementBookClicks(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return ErrNotFound
	}
	b.Clicked++
	s.books[id] = b
	return nil
}

func (s *MemoryStore) RecomputeBookRating(bookID string) (float64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum, count int64
	for _, r := range s.ratings {
		if r.BookID == bookID {
			sum += int64(r.Value)
			count++
		}
	}
	var avg float64
	if count > 0 {
		avg = float64(sum) / float64(count)
	}
	if b, ok := s.books[bookID]; ok {
		b.AverageRating = avg
		b.RatingCount = count
		b.UpdatedAt = time.Now().UTC()
		s.books[bookID] = b
	}
	return avg, count, nil
}

// authors

func (s *MemoryStore) SaveAuthor(a domain.Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, other := range s.authors {
		if id != a.ID && other.Name == a.Name {
			return ErrDuplicate
		}
	}
	s.authors[a.ID] = a
	return nil
}

func (s *MemoryStore) GetAuthor(id string) (domain.Author, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.authors[id]
	return a, ok, nil
}

func (s *MemoryStore) GetAuthorByName(name string) (domain.Author, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.authors {
		if a.Name == name {
			return a, true, nil
		}
	}
	return domain.Author{}, false, nil
}

func (s *MemoryStore) ListAuthors(search string, offset, limit int) ([]domain.Author, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.Author
	for _, a := range s.authors {
		if matches(a.Name, search) {
			all = append(all, a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return page(all, offset, limit), int64(len(all)), nil
}

func (s *MemoryStore) DeleteAuthor(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.authors, id)
	return nil
}

// categories

func (s *MemoryStore) SaveCategory(c domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, other := range s.categories {
		if id != c.ID && other.Name == c.Name {
			return ErrDuplicate
		}
	}
	s.categories[c.ID] = c
	return nil
}

func (s *MemoryStore) GetCategory(id string) (domain.Category, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	return c, ok, nil
}

func (s *MemoryStore) GetCategoryByName(name string) (domain.Category, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.Name == name {
			return c, true, nil
		}
	}
	return domain.Category{}, false, nil
}

func (s *MemoryStore) ListCategories(search string, offset, limit int) ([]domain.Category, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.Category
	for _, c := range s.categories {
		if matches(c.Name, search) {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return page(all, offset, limit), int64(len(all)), nil
}

func (s *MemoryStore) DeleteCategory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.categories, id)
	return nil
}

// ratings

func (s *MemoryStore) UpsertRating(r domain.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(r.BookID, r.UserID)
	if prev, ok := s.ratings[key]; ok {
		r.ID = prev.ID
	}
	s.ratings[key] = r
	return nil
}

func (s *MemoryStore) GetRating(bookID, userID string) (domain.Rating, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.ratings[pairKey(bookID, userID)]
	return r, ok, nil
}

func (s *MemoryStore) DeleteRating(bookID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(bookID, userID)
	if _, ok := s.ratings[key]; !ok {
		return false, nil
	}
	delete(s.ratings, key)
	return true, nil
}

// reviews

func (s *MemoryStore) SaveReview(r domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[r.ID] = r
	return nil
}

func (s *MemoryStore) GetReview(id string) (domain.Review, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	return r, ok, nil
}

func (s *MemoryStore) ListReviewsByBook(bookID string) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.Review
	for _, r := range s.reviews {
		if r.BookID == bookID {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all, nil
}

func (s *MemoryStore) DeleteReview(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reviews, id)
	return nil
}

// shelves

func (s *MemoryStore) SaveShelfEntry(e domain.ShelfEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(e.UserID, e.BookID)
	if _, ok := s.shelves[key]; ok {
		return ErrDuplicate
	}
	s.shelves[key] = e
	return nil
}

func (s *MemoryStore) GetShelfEntry(userID, bookID string) (domain.ShelfEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.shelves[pairKey(userID, bookID)]
	return e, ok, nil
}

func (s *MemoryStore) UpdateShelfEntry(userID, bookID string, shelf domain.Shelf) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(userID, bookID)
	e, ok := s.shelves[key]
	if !ok {
		return false, nil
	}
	e.Shelf = shelf
	s.shelves[key] = e
	return true, nil
}

func (s *MemoryStore) ListShelf(userID string, shelf domain.Shelf) ([]domain.ShelfEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.ShelfEntry
	for _, e := range s.shelves {
		if e.UserID == userID && e.Shelf == shelf {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (s *MemoryStore) ListShelvesForUser(userID string) ([]domain.ShelfEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.ShelfEntry
	for _, e := range s.shelves {
		if e.UserID == userID {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (s *MemoryStore) DeleteShelfEntry(userID, bookID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(userID, bookID)
	if _, ok := s.shelves[key]; !ok {
		return false, nil
	}
	delete(s.shelves, key)
	return true, nil
}

// subscriptions

func (s *MemoryStore) GetSubscriptionByUser(userID string) (domain.Subscription, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscriptions[userID]
	return sub, ok, nil
}

func (s *MemoryStore) UpsertSubscription(sub domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.subscriptions[sub.UserID]; ok {
		sub.ID = prev.ID
	}
	s.subscriptions[sub.UserID] = sub
	return nil
}

func (s *MemoryStore) DeleteSubscriptionByUser(userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscriptions[userID]; !ok {
		return false, nil
	}
	delete(s.subscriptions, userID)
	return true, nil
}

// purchases

func (s *MemoryStore) HasPurchase(userID, bookID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.purchases {
		if p.UserID == userID && p.BookID == bookID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) HasTransaction(transactionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.purchases {
		if p.TransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreatePurchase(p domain.PurchasedBook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.purchases {
		if other.TransactionID == p.TransactionID {
			return ErrDuplicate
		}
		if other.UserID == p.UserID && other.BookID == p.BookID {
			return ErrDuplicate
		}
	}
	s.purchases[p.ID] = p
	return nil
}

func (s *MemoryStore) ListPurchasesByUser(userID string) ([]domain.PurchasedBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.PurchasedBook
	for _, p := range s.purchases {
		if p.UserID == userID {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PurchaseDate.After(all[j].PurchaseDate) })
	return all, nil
}
