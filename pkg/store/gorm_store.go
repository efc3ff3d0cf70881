package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"bookhive/pkg/domain"
)

const migrateLockID int64 = 52105210

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore opens the DB and runs auto-migrations under an advisory lock
// so that concurrent instances do not race on schema changes.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&UserModel{},
			&PendingRegistrationModel{},
			&BookModel{},
			&AuthorModel{},
			&CategoryModel{},
			&RatingModel{},
			&ReviewModel{},
			&ShelfEntryModel{},
			&SubscriptionModel{},
			&PurchasedBookModel{},
		)
	}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// users

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "password_hash", "role", "avatar_url", "verified", "updated_at"}),
	}).Create(&model).Error
	return translateErr(err)
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns a page of users with optional name search.
func (s *GormStore) ListUsers(search string, offset, limit int) ([]domain.User, int64, error) {
	var models []UserModel
	var total int64
	tx := s.db.Model(&UserModel{})
	if search != "" {
		tx = tx.Where("name ILIKE ?", "%"+search+"%")
	}
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := tx.Order("created_at ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, total, nil
}

// DeleteUser removes a user record.
func (s *GormStore) DeleteUser(id string) error {
	return s.db.Delete(&UserModel{}, "id = ?", id).Error
}

// pending registrations

// SavePending stores a staged registration.
func (s *GormStore) SavePending(p domain.PendingRegistration) error {
	model := pendingToModel(p)
	return translateErr(s.db.Create(&model).Error)
}

// GetPendingByID returns a staged registration.
func (s *GormStore) GetPendingByID(id string) (domain.PendingRegistration, bool, error) {
	var model PendingRegistrationModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PendingRegistration{}, false, nil
		}
		return domain.PendingRegistration{}, false, err
	}
	return pendingFromModel(model), true, nil
}

// DeletePendingByEmail removes any staged registrations for the email.
func (s *GormStore) DeletePendingByEmail(email string) error {
	return s.db.Delete(&PendingRegistrationModel{}, "email = ?", email).Error
}

// PromotePending creates the permanent verified user and removes the staged
// record in a single transaction.
func (s *GormStore) PromotePending(id string) (domain.User, error) {
	var user domain.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var pending PendingRegistrationModel
		if err := tx.First(&pending, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		now := time.Now().UTC()
		model := UserModel{
			ID:           pending.ID,
			Name:         pending.Name,
			Email:        pending.Email,
			PasswordHash: pending.PasswordHash,
			Role:         pending.Role,
			AvatarURL:    pending.AvatarURL,
			Verified:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&model).Error; err != nil {
			return translateErr(err)
		}
		if err := tx.Delete(&PendingRegistrationModel{}, "id = ?", id).Error; err != nil {
			return err
		}
		user = userFromModel(model)
		return nil
	})
	return user, err
}

// books

// SaveBook stores or updates a book.
func (s *GormStore) SaveBook(b domain.Book) error {
	model := bookToModel(b)
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "author_id", "author_name", "category_id", "category_name",
			"description", "cover_url", "updated_at",
		}),
	}).Create(&model).Error
	return translateErr(err)
}

// GetBook retrieves a book.
func (s *GormStore) GetBook(id string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// GetBookByName retrieves a book by exact name.
func (s *GormStore) GetBookByName(name string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.Where("name = ?", name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ListBooks returns a page of books with optional name search.
func (s *GormStore) ListBooks(search string, offset, limit int) ([]domain.Book, int64, error) {
	var models []BookModel
	var total int64
	tx := s.db.Model(&BookModel{})
	if search != "" {
		tx = tx.Where("name ILIKE ?", "%"+search+"%")
	}
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := tx.Order("created_at ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, total, nil
}

// DeleteBook removes a book and its dependent ratings, reviews, and shelves.
func (s *GormStore) DeleteBook(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&RatingModel{}, "book_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ReviewModel{}, "book_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ShelfEntryModel{}, "book_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&BookModel{}, "id = ?", id).Error
	})
}

// DeleteBooksByAuthor removes all books referencing the author.
func (s *GormStore) DeleteBooksByAuthor(authorID string) error {
	return s.deleteBooksWhere("author_id = ?", authorID)
}

// DeleteBooksByCategory removes all books referencing the category.
func (s *GormStore) DeleteBooksByCategory(categoryID string) error {
	return s.deleteBooksWhere("category_id = ?", categoryID)
}

func (s *GormStore) deleteBooksWhere(cond string, arg any) error {
	var ids []string
	if err := s.db.Model(&BookModel{}).Where(cond, arg).Pluck("id", &ids).Error; err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.DeleteBook(id); err != nil {
			return err
		}
	}
	return nil
}

// SetBookFile records the stored file key and page count.
func (s *GormStore) SetBookFile(id, fileKey string, pageCount int) error {
	return s.db.Model(&BookModel{}).Where("id = ?", id).Updates(map[string]any{
		"file_key":   fileKey,
		"page_count": pageCount,
		"updated_at": time.Now().UTC(),
	}).Error
}

// SetBookCover records the cover image URL.
func (s *GormStore) SetBookCover(id, coverURL string) error {
	return s.db.Model(&BookModel{}).Where("id = ?", id).Updates(map[string]any{
		"cover_url":  coverURL,
		"updated_at": time.Now().UTC(),
	}).Error
}

// IncrementBookClicks bumps the click counter.
func (s *GormStore) IncrementBookClicks(id string) error {
	return s.db.Model(&BookModel{}).Where("id = ?", id).
		UpdateColumn("clicked", gorm.Expr("clicked + 1")).Error
}

// RecomputeBookRating refreshes the cached average/count from the ratings
// collection inside one transaction.
func (s *GormStore) RecomputeBookRating(bookID string) (float64, int64, error) {
	var avg float64
	var count int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		row := tx.Model(&RatingModel{}).
			Select("COALESCE(AVG(value), 0), COUNT(*)").
			Where("book_id = ?", bookID).Row()
		if err := row.Scan(&avg, &count); err != nil {
			return err
		}
		if count == 0 {
			avg = 0
		}
		return tx.Model(&BookModel{}).Where("id = ?", bookID).Updates(map[string]any{
			"average_rating": avg,
			"rating_count":   count,
			"updated_at":     time.Now().UTC(),
		}).Error
	})
	return avg, count, err
}

// authors

// SaveAuthor stores or updates an author.
func (s *GormStore) SaveAuthor(a domain.Author) error {
	model := authorToModel(a)
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "bio", "cover_url"}),
	}).Create(&model).Error
	return translateErr(err)
}

// GetAuthor retrieves an author by ID.
func (s *GormStore) GetAuthor(id string) (domain.Author, bool, error) {
	var model AuthorModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Author{}, false, nil
		}
		return domain.Author{}, false, err
	}
	return authorFromModel(model), true, nil
}

// GetAuthorByName retrieves an author by exact name.
func (s *GormStore) GetAuthorByName(name string) (domain.Author, bool, error) {
	var model AuthorModel
	if err := s.db.Where("name = ?", name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Author{}, false, nil
		}
		return domain.Author{}, false, err
	}
	return authorFromModel(model), true, nil
}

// ListAuthors returns a page of authors with optional name search.
func (s *GormStore) ListAuthors(search string, offset, limit int) ([]domain.Author, int64, error) {
	var models []AuthorModel
	var total int64
	tx := s.db.Model(&AuthorModel{})
	if search != "" {
		tx = tx.Where("name ILIKE ?", "%"+search+"%")
	}
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := tx.Order("created_at ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	res := make([]domain.Author, 0, len(models))
	for _, m := range models {
		res = append(res, authorFromModel(m))
	}
	return res, total, nil
}

// DeleteAuthor removes an author record.
func (s *GormStore) DeleteAuthor(id string) error {
	return s.db.Delete(&AuthorModel{}, "id = ?", id).Error
}

// categories

// SaveCategory stores or updates a category.
func (s *GormStore) SaveCategory(c domain.Category) error {
	model := categoryToModel(c)
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "cover_url"}),
	}).Create(&model).Error
	return translateErr(err)
}

// GetCategory retrieves a category by ID.
func (s *GormStore) GetCategory(id string) (domain.Category, bool, error) {
	var model CategoryModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Category{}, false, nil
		}
		return domain.Category{}, false, err
	}
	return categoryFromModel(model), true, nil
}

// GetCategoryByName retrieves a category by exact name.
func (s *GormStore) GetCategoryByName(name string) (domain.Category, bool, error) {
	var model CategoryModel
	if err := s.db.Where("name = ?", name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Category{}, false, nil
		}
		return domain.Category{}, false, err
	}
	return categoryFromModel(model), true, nil
}

// ListCategories returns a page of categories with optional name search.
func (s *GormStore) ListCategories(search string, offset, limit int) ([]domain.Category, int64, error) {
	var models []CategoryModel
	var total int64
	tx := s.db.Model(&CategoryModel{})
	if search != "" {
		tx = tx.Where("name ILIKE ?", "%"+search+"%")
	}
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := tx.Order("created_at ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	res := make([]domain.Category, 0, len(models))
	for _, m := range models {
		res = append(res, categoryFromModel(m))
	}
	return res, total, nil
}

// DeleteCategory removes a category record.
func (s *GormStore) DeleteCategory(id string) error {
	return s.db.Delete(&CategoryModel{}, "id = ?", id).Error
}

// ratings

// UpsertRating stores the user's rating, replacing a previous value.
func (s *GormStore) UpsertRating(r domain.Rating) error {
	model := RatingModel{ID: r.ID, BookID: r.BookID, UserID: r.UserID, Value: r.Value}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "book_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&model).Error
	return translateErr(err)
}

// GetRating returns the user's rating for a book.
func (s *GormStore) GetRating(bookID, userID string) (domain.Rating, bool, error) {
	var model RatingModel
	if err := s.db.Where("book_id = ? AND user_id = ?", bookID, userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Rating{}, false, nil
		}
		return domain.Rating{}, false, err
	}
	return domain.Rating{ID: model.ID, BookID: model.BookID, UserID: model.UserID, Value: model.Value}, true, nil
}

// DeleteRating removes the user's rating; reports whether one existed.
func (s *GormStore) DeleteRating(bookID, userID string) (bool, error) {
	res := s.db.Delete(&RatingModel{}, "book_id = ? AND user_id = ?", bookID, userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// reviews

// SaveReview stores or updates a review.
func (s *GormStore) SaveReview(r domain.Review) error {
	model := reviewToModel(r)
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "updated_at"}),
	}).Create(&model).Error
	return translateErr(err)
}

// GetReview retrieves a review by ID.
func (s *GormStore) GetReview(id string) (domain.Review, bool, error) {
	var model ReviewModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Review{}, false, nil
		}
		return domain.Review{}, false, err
	}
	return reviewFromModel(model), true, nil
}

// ListReviewsByBook returns all reviews for a book, oldest first.
func (s *GormStore) ListReviewsByBook(bookID string) ([]domain.Review, error) {
	var models []ReviewModel
	if err := s.db.Where("book_id = ?", bookID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Review, 0, len(models))
	for _, m := range models {
		res = append(res, reviewFromModel(m))
	}
	return res, nil
}

// DeleteReview removes a review record.
func (s *GormStore) DeleteReview(id string) error {
	return s.db.Delete(&ReviewModel{}, "id = ?", id).Error
}

// shelves

// SaveShelfEntry inserts a shelf entry; ErrDuplicate when the (user,book)
// pair already has one.
func (s *GormStore) SaveShelfEntry(e domain.ShelfEntry) error {
	model := ShelfEntryModel{ID: e.ID, UserID: e.UserID, BookID: e.BookID, Shelf: string(e.Shelf)}
	return translateErr(s.db.Create(&model).Error)
}

// GetShelfEntry returns the shelf entry for a (user,book) pair.
func (s *GormStore) GetShelfEntry(userID, bookID string) (domain.ShelfEntry, bool, error) {
	var model ShelfEntryModel
	if err := s.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ShelfEntry{}, false, nil
		}
		return domain.ShelfEntry{}, false, err
	}
	return shelfFromModel(model), true, nil
}

// UpdateShelfEntry moves an existing entry; reports whether one existed.
func (s *GormStore) UpdateShelfEntry(userID, bookID string, shelf domain.Shelf) (bool, error) {
	res := s.db.Model(&ShelfEntryModel{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Update("shelf", string(shelf))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListShelf returns the user's entries on one shelf.
func (s *GormStore) ListShelf(userID string, shelf domain.Shelf) ([]domain.ShelfEntry, error) {
	var models []ShelfEntryModel
	if err := s.db.Where("user_id = ? AND shelf = ?", userID, string(shelf)).Find(&models).Error; err != nil {
		return nil, err
	}
	return shelvesFromModels(models), nil
}

// ListShelvesForUser returns all the user's shelf entries.
func (s *GormStore) ListShelvesForUser(userID string) ([]domain.ShelfEntry, error) {
	var models []ShelfEntryModel
	if err := s.db.Where("user_id = ?", userID).Find(&models).Error; err != nil {
		return nil, err
	}
	return shelvesFromModels(models), nil
}

// DeleteShelfEntry removes an entry; reports whether one existed.
func (s *GormStore) DeleteShelfEntry(userID, bookID string) (bool, error) {
	res := s.db.Delete(&ShelfEntryModel{}, "user_id = ? AND book_id = ?", userID, bookID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// subscriptions

// GetSubscriptionByUser returns the user's subscription.
func (s *GormStore) GetSubscriptionByUser(userID string) (domain.Subscription, bool, error) {
	var model SubscriptionModel
	if err := s.db.Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Subscription{}, false, nil
		}
		return domain.Subscription{}, false, err
	}
	return subscriptionFromModel(model), true, nil
}

// UpsertSubscription writes the subscription keyed by user.
func (s *GormStore) UpsertSubscription(sub domain.Subscription) error {
	model := subscriptionToModel(sub)
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "plan_type", "start_date", "end_date", "is_active"}),
	}).Create(&model).Error
	return translateErr(err)
}

// DeleteSubscriptionByUser removes the subscription; reports existence.
func (s *GormStore) DeleteSubscriptionByUser(userID string) (bool, error) {
	res := s.db.Delete(&SubscriptionModel{}, "user_id = ?", userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// purchases

// HasPurchase checks whether the user already bought the book.
func (s *GormStore) HasPurchase(userID, bookID string) (bool, error) {
	var count int64
	if err := s.db.Model(&PurchasedBookModel{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasTransaction checks whether a gateway transaction was already recorded.
func (s *GormStore) HasTransaction(transactionID string) (bool, error) {
	var count int64
	if err := s.db.Model(&PurchasedBookModel{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreatePurchase inserts a purchase; ErrDuplicate when the transaction id or
// (user,book) pair was already recorded.
func (s *GormStore) CreatePurchase(p domain.PurchasedBook) error {
	model := PurchasedBookModel{
		ID:            p.ID,
		UserID:        p.UserID,
		BookID:        p.BookID,
		TransactionID: p.TransactionID,
		PurchaseDate:  p.PurchaseDate,
	}
	return translateErr(s.db.Create(&model).Error)
}

// ListPurchasesByUser returns the user's purchases, newest first.
func (s *GormStore) ListPurchasesByUser(userID string) ([]domain.PurchasedBook, error) {
	var models []PurchasedBookModel
	if err := s.db.Where("user_id = ?", userID).Order("purchase_date DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.PurchasedBook, 0, len(models))
	for _, m := range models {
		res = append(res, domain.PurchasedBook{
			ID:            m.ID,
			UserID:        m.UserID,
			BookID:        m.BookID,
			TransactionID: m.TransactionID,
			PurchaseDate:  m.PurchaseDate,
		})
	}
	return res, nil
}

// model conversions

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		AvatarURL:    u.AvatarURL,
		Verified:     u.Verified,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	role := domain.UserRole(m.Role)
	if role == "" {
		role = domain.RoleUser
	}
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         role,
		AvatarURL:    m.AvatarURL,
		Verified:     m.Verified,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func pendingToModel(p domain.PendingRegistration) PendingRegistrationModel {
	return PendingRegistrationModel{
		ID:           p.ID,
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         string(p.Role),
		AvatarURL:    p.AvatarURL,
		CreatedAt:    p.CreatedAt,
	}
}

func pendingFromModel(m PendingRegistrationModel) domain.PendingRegistration {
	return domain.PendingRegistration{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		AvatarURL:    m.AvatarURL,
		CreatedAt:    m.CreatedAt,
	}
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ID:            b.ID,
		Name:          b.Name,
		AuthorID:      b.AuthorID,
		AuthorName:    b.AuthorName,
		CategoryID:    b.CategoryID,
		CategoryName:  b.CategoryName,
		Description:   b.Description,
		AverageRating: b.AverageRating,
		RatingCount:   b.RatingCount,
		CoverURL:      b.CoverURL,
		FileKey:       b.FileKey,
		PageCount:     b.PageCount,
		Clicked:       b.Clicked,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:            m.ID,
		Name:          m.Name,
		AuthorID:      m.AuthorID,
		AuthorName:    m.AuthorName,
		CategoryID:    m.CategoryID,
		CategoryName:  m.CategoryName,
		Description:   m.Description,
		AverageRating: m.AverageRating,
		RatingCount:   m.RatingCount,
		CoverURL:      m.CoverURL,
		FileKey:       m.FileKey,
		PageCount:     m.PageCount,
		Clicked:       m.Clicked,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func authorToModel(a domain.Author) AuthorModel {
	return AuthorModel{ID: a.ID, Name: a.Name, Bio: a.Bio, CoverURL: a.CoverURL, CreatedAt: a.CreatedAt}
}

func authorFromModel(m AuthorModel) domain.Author {
	return domain.Author{ID: m.ID, Name: m.Name, Bio: m.Bio, CoverURL: m.CoverURL, CreatedAt: m.CreatedAt}
}

func categoryToModel(c domain.Category) CategoryModel {
	return CategoryModel{ID: c.ID, Name: c.Name, Description: c.Description, CoverURL: c.CoverURL, CreatedAt: c.CreatedAt}
}

func categoryFromModel(m CategoryModel) domain.Category {
	return domain.Category{ID: m.ID, Name: m.Name, Description: m.Description, CoverURL: m.CoverURL, CreatedAt: m.CreatedAt}
}

func reviewToModel(r domain.Review) ReviewModel {
	return ReviewModel{ID: r.ID, BookID: r.BookID, UserID: r.UserID, Text: r.Text, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func reviewFromModel(m ReviewModel) domain.Review {
	return domain.Review{ID: m.ID, BookID: m.BookID, UserID: m.UserID, Text: m.Text, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func shelfFromModel(m ShelfEntryModel) domain.ShelfEntry {
	return domain.ShelfEntry{ID: m.ID, UserID: m.UserID, BookID: m.BookID, Shelf: domain.Shelf(m.Shelf)}
}

func shelvesFromModels(models []ShelfEntryModel) []domain.ShelfEntry {
	res := make([]domain.ShelfEntry, 0, len(models))
	for _, m := range models {
		res = append(res, shelfFromModel(m))
	}
	return res
}

func subscriptionToModel(s domain.Subscription) SubscriptionModel {
	return SubscriptionModel{
		ID:        s.ID,
		UserID:    s.UserID,
		Status:    string(s.Status),
		PlanType:  string(s.PlanType),
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
		IsActive:  s.IsActive,
	}
}

func subscriptionFromModel(m SubscriptionModel) domain.Subscription {
	status := domain.SubscriptionStatus(m.Status)
	if status == "" {
		status = domain.StatusFree
	}
	return domain.Subscription{
		ID:        m.ID,
		UserID:    m.UserID,
		Status:    status,
		PlanType:  domain.PlanType(m.PlanType),
		StartDate: m.StartDate,
		EndDate:   m.EndDate,
		IsActive:  m.IsActive,
	}
}
