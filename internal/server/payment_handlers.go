package server

import (
	"net/http"

	"bookhive/internal/app"
	"bookhive/pkg/domain"
)

func (s *Server) handleInitiatePayment(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body struct {
		SubscriptionType string `json:"subscriptionType"`
		BookID           string `json:"bookId"`
		AmountCents      int64  `json:"amountCents"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	url, err := s.app.InitiatePayment(r.Context(), app.PaymentInput{
		UserID:           user.ID,
		SubscriptionType: body.SubscriptionType,
		BookID:           body.BookID,
		AmountCents:      body.AmountCents,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"iframeURL": url})
}

// handlePaymentNotification receives the gateway's server-to-server
// callback. It is unauthenticated; the merchant order id is the only
// correlation. Non-transaction and unsuccessful deliveries are rejected,
// and replays answer with a duplicate error and no grant.
func (s *Server) handlePaymentNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var n app.Notification
	if err := decodeJSON(r, &n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.app.HandleGatewayNotification(n); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
