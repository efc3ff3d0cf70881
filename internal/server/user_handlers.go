package server

import (
	"net/http"

	"bookhive/internal/app"
	"bookhive/pkg/domain"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page, err := s.app.ListUsers(listQuery(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// /api/users/{id}
func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request, actor domain.User) {
	parts := pathTail(r.URL.Path, "/api/users/")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id := parts[0]
	switch r.Method {
	case http.MethodGet:
		user, err := s.app.GetUser(id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut, http.MethodPatch:
		var in app.UserInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		user, err := s.app.UpdateUser(actor, id, in)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if actor.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		if err := s.app.DeleteUser(id); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

// handleSubscription serves the caller's own subscription.
func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		sub, err := s.app.GetSubscription(user.ID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		var in app.SubscriptionInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		sub, err := s.app.UpdateSubscription(user.ID, in)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	case http.MethodDelete:
		sub, err := s.app.CancelSubscription(user.ID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	purchases, err := s.app.ListPurchases(user.ID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if purchases == nil {
		purchases = []domain.PurchasedBook{}
	}
	writeJSON(w, http.StatusOK, purchases)
}

// /api/purchase-book/{bookId}
func (s *Server) handleHasPurchased(w http.ResponseWriter, r *http.Request, user domain.User) {
	parts := pathTail(r.URL.Path, "/api/purchase-book/")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	owned, err := s.app.HasPurchased(user.ID, parts[0])
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"purchased": owned})
}
