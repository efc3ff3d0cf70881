package server

import (
	"net/http"
	"net/url"
	"strings"

	"bookhive/internal/app"
	"bookhive/pkg/domain"
)

// books

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, err := s.app.ListBooks(listQuery(r))
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodPost:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			var in app.BookInput
			if err := decodeJSON(r, &in); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			book, err := s.app.CreateBook(in)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, book)
		}).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /api/books/{id}, /api/books/name/{name}, /api/books/{id}/content,
// /api/books/{id}/cover, /api/books/{id}/file
func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/api/books/")
	if len(parts) == 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if parts[0] == "name" && len(parts) == 2 {
		s.handleBookByName(w, r, parts[1])
		return
	}
	id := parts[0]
	if len(parts) == 2 {
		switch parts[1] {
		case "content":
			s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
				s.handleBookContent(w, r, user, id)
			}).ServeHTTP(w, r)
		case "cover":
			s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
				s.handleBookUpload(w, r, id, "cover")
			}).ServeHTTP(w, r)
		case "file":
			s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
				s.handleBookUpload(w, r, id, "file")
			}).ServeHTTP(w, r)
		default:
			writeError(w, http.StatusNotFound, "not found")
		}
		return
	}
	switch r.Method {
	case http.MethodGet:
		book, err := s.app.GetBook(id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	case http.MethodPut, http.MethodPatch:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			var in app.BookInput
			if err := decodeJSON(r, &in); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			book, err := s.app.UpdateBook(id, in)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, book)
		}).ServeHTTP(w, r)
	case http.MethodDelete:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			if err := s.app.DeleteBook(id); err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		}).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleBookByName(w http.ResponseWriter, r *http.Request, rawName string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	name, err := url.PathUnescape(rawName)
	if err != nil {
		name = rawName
	}
	book, err := s.app.GetBookByName(name)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleBookContent(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	pages := 0
	if v := r.URL.Query().Get("pages"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid pages parameter")
			return
		}
		pages = n
	}
	fileURL, err := s.app.BookContent(r.Context(), user, id, pages)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": fileURL})
}

func (s *Server) handleBookUpload(w http.ResponseWriter, r *http.Request, id, kind string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()
	var book domain.Book
	if kind == "cover" {
		book, err = s.app.UploadBookCover(r.Context(), id, header.Filename, file, header.Size)
	} else {
		book, err = s.app.UploadBookFile(r.Context(), id, header.Filename, file, header.Size)
	}
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// authors

func (s *Server) handleAuthors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, err := s.app.ListAuthors(listQuery(r))
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodPost:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			var in app.AuthorInput
			if err := decodeJSON(r, &in); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			author, err := s.app.CreateAuthor(in)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, author)
		}).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAuthorByID(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/api/authors/")
	if len(parts) == 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if parts[0] == "name" && len(parts) == 2 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		name, err := url.PathUnescape(parts[1])
		if err != nil {
			name = parts[1]
		}
		author, err := s.app.GetAuthorByName(name)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, author)
		return
	}
	id := parts[0]
	switch r.Method {
	case http.MethodGet:
		author, err := s.app.GetAuthor(id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, author)
	case http.MethodPut, http.MethodPatch:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			var in app.AuthorInput
			if err := decodeJSON(r, &in); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			author, err := s.app.UpdateAuthor(id, in)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, author)
		}).ServeHTTP(w, r)
	case http.MethodDelete:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			if err := s.app.DeleteAuthor(id); err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		}).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

// categories

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, err := s.app.ListCategories(listQuery(r))
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodPost:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			var in app.CategoryInput
			if err := decodeJSON(r, &in); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			category, err := s.app.CreateCategory(in)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, category)
		}).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/api/categories/")
	if len(parts) == 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if parts[0] == "name" && len(parts) == 2 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		name, err := url.PathUnescape(parts[1])
		if err != nil {
			name = parts[1]
		}
		category, err := s.app.GetCategoryByName(name)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, category)
		return
	}
	id := parts[0]
	switch r.Method {
	case http.MethodGet:
		category, err := s.app.GetCategory(id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, category)
	case http.MethodPut, http.MethodPatch:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			var in app.CategoryInput
			if err := decodeJSON(r, &in); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			category, err := s.app.UpdateCategory(id, in)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, category)
		}).ServeHTTP(w, r)
	case http.MethodDelete:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			if err := s.app.DeleteCategory(id); err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		}).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

// ratings

func (s *Server) handleRatings(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body struct {
		BookID string `json:"bookId"`
		Rating int    `json:"rating"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	book, err := s.app.RateBook(user.ID, body.BookID, body.Rating)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// /api/ratings/average/{bookId} is open; /api/ratings/{bookId} get/delete is
// the caller's own rating.
func (s *Server) handleRatingByPath(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/api/ratings/")
	if len(parts) == 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if parts[0] == "average" && len(parts) == 2 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		avg, err := s.app.GetBookAverage(parts[1])
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, avg)
		return
	}
	bookID := parts[0]
	s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		switch r.Method {
		case http.MethodGet:
			rating, err := s.app.GetRating(user.ID, bookID)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, rating)
		case http.MethodDelete:
			book, err := s.app.DeleteRating(user.ID, bookID)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, book)
		default:
			methodNotAllowed(w)
		}
	}).ServeHTTP(w, r)
}

// reviews

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body struct {
		BookID string `json:"bookId"`
		Text   string `json:"text"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	review, err := s.app.CreateReview(user.ID, body.BookID, body.Text)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// /api/reviews/book/{bookId} lists; /api/reviews/{id} updates or deletes.
func (s *Server) handleReviewByPath(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/api/reviews/")
	if len(parts) == 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if parts[0] == "book" && len(parts) == 2 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		reviews, err := s.app.ListReviews(parts[1])
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reviews)
		return
	}
	reviewID := parts[0]
	s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		switch r.Method {
		case http.MethodPut, http.MethodPatch:
			var body struct {
				Text string `json:"text"`
			}
			if err := decodeJSON(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			review, err := s.app.UpdateReview(user, reviewID, body.Text)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, review)
		case http.MethodDelete:
			if err := s.app.DeleteReview(user, reviewID); err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		default:
			methodNotAllowed(w)
		}
	}).ServeHTTP(w, r)
}

// shelves

func (s *Server) handleShelves(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		if shelf := strings.TrimSpace(r.URL.Query().Get("shelf")); shelf != "" {
			entries, err := s.app.ListShelf(user.ID, domain.Shelf(shelf))
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, entries)
			return
		}
		entries, err := s.app.ListShelves(user.ID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	case http.MethodPost:
		var body struct {
			BookID string `json:"bookId"`
			Shelf  string `json:"shelve"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		entry, err := s.app.AddToShelf(user.ID, body.BookID, domain.Shelf(body.Shelf))
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	case http.MethodPut, http.MethodPatch:
		var body struct {
			BookID string `json:"bookId"`
			Shelf  string `json:"shelve"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		entry, err := s.app.MoveShelf(user.ID, body.BookID, domain.Shelf(body.Shelf))
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	default:
		methodNotAllowed(w)
	}
}

// /api/shelves/{bookId} removes the caller's entry for that book.
func (s *Server) handleShelfByBook(w http.ResponseWriter, r *http.Request, user domain.User) {
	parts := pathTail(r.URL.Path, "/api/shelves/")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.RemoveFromShelf(user.ID, parts[0]); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
