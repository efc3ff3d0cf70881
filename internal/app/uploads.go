package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"bookhive/internal/util"
	"bookhive/pkg/domain"
)

const maxUploadBytes = 50 << 20

func contentTypeFor(filename string) string {
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}

func buildObjectKey(prefix, id, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%s%s", prefix, id, ext)
}

// UploadAvatar stores a profile image and returns its object key.
func (a *App) UploadAvatar(ctx context.Context, filename string, r io.Reader, size int64) (string, error) {
	if size <= 0 || size > maxUploadBytes {
		return "", fmt.Errorf("%w: invalid file size", ErrValidation)
	}
	key := buildObjectKey("avatars", util.NewID(), filename)
	if err := a.objects.Put(ctx, key, r, size, contentTypeFor(filename)); err != nil {
		return "", fmt.Errorf("store avatar: %w", err)
	}
	return key, nil
}

// UploadBookCover stores a cover image and records its public URL on the book.
func (a *App) UploadBookCover(ctx context.Context, bookID, filename string, r io.Reader, size int64) (domain.Book, error) {
	if size <= 0 || size > maxUploadBytes {
		return domain.Book{}, fmt.Errorf("%w: invalid file size", ErrValidation)
	}
	if _, ok, err := a.store.GetBook(bookID); err != nil {
		return domain.Book{}, err
	} else if !ok {
		return domain.Book{}, fmt.Errorf("%w: book", ErrNotFound)
	}
	key := buildObjectKey("covers", bookID, filename)
	if err := a.objects.Put(ctx, key, r, size, contentTypeFor(filename)); err != nil {
		return domain.Book{}, fmt.Errorf("store cover: %w", err)
	}
	if err := a.store.SetBookCover(bookID, a.objects.PublicURL(key)); err != nil {
		return domain.Book{}, err
	}
	book, _, err := a.store.GetBook(bookID)
	return book, err
}

// UploadBookFile stores the readable book file, counts its pages, and
// records both on the book. Only PDF files are accepted; the page count
// backs the reading allowance.
func (a *App) UploadBookFile(ctx context.Context, bookID, filename string, r io.Reader, size int64) (domain.Book, error) {
	if size <= 0 || size > maxUploadBytes {
		return domain.Book{}, fmt.Errorf("%w: invalid file size", ErrValidation)
	}
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return domain.Book{}, fmt.Errorf("%w: only PDF files are accepted", ErrValidation)
	}
	if _, ok, err := a.store.GetBook(bookID); err != nil {
		return domain.Book{}, err
	} else if !ok {
		return domain.Book{}, fmt.Errorf("%w: book", ErrNotFound)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxUploadBytes))
	if err != nil {
		return domain.Book{}, fmt.Errorf("read upload: %w", err)
	}
	pageCount, err := countPDFPages(data)
	if err != nil {
		return domain.Book{}, fmt.Errorf("%w: unreadable PDF: %v", ErrValidation, err)
	}
	key := buildObjectKey("books", bookID, filename)
	if err := a.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/pdf"); err != nil {
		return domain.Book{}, fmt.Errorf("store book file: %w", err)
	}
	if err := a.store.SetBookFile(bookID, key, pageCount); err != nil {
		_ = a.objects.Delete(ctx, key)
		return domain.Book{}, err
	}
	book, _, err := a.store.GetBook(bookID)
	return book, err
}

func countPDFPages(data []byte) (int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}
