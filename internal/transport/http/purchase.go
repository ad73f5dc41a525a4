package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/app"
	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

// TicketPurchaser is the minimal interface needed to purchase tickets.
type TicketPurchaser interface {
	Purchase(ctx context.Context, in app.PurchaseInput) ([]domain.Ticket, error)
}

// HandlePurchase sells tickets for one event:
// POST /events/{id}/tickets/purchase.
func HandlePurchase(svc TicketPurchaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, domain.ErrUnauthenticated.Error())
			return
		}

		var req purchaseRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if err := req.validate(); err != nil {
			respondError(w, err)
			return
		}

		tickets, err := svc.Purchase(r.Context(), app.PurchaseInput{
			EventID:        mux.Vars(r)["id"],
			TimeSlotID:     req.TimeSlotID,
			UserID:         identity.UserID,
			Quantity:       req.Quantity,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			respondError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, purchaseResponse{Tickets: ticketViews(tickets)})
	}
}

type purchaseRequest struct {
	TimeSlotID     string `json:"timeSlotId"`
	Quantity       int    `json:"quantity"`
	IdempotencyKey string `json:"idempotencyKey"`
}

func (r purchaseRequest) validate() error {
	if r.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if r.IdempotencyKey == "" {
		return domain.ErrIdempotencyKeyRequired
	}
	return nil
}

type purchaseResponse struct {
	Tickets []ticketView `json:"tickets"`
}

type ticketView struct {
	ID            string    `json:"id"`
	EventID       string    `json:"eventId"`
	TimeSlotID    string    `json:"timeSlotId,omitempty"`
	UserID        string    `json:"userId"`
	Status        string    `json:"status"`
	PurchasePrice float64   `json:"purchasePrice"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newTicketView(t domain.Ticket) ticketView {
	return ticketView{
		ID:            t.ID,
		EventID:       t.EventID,
		TimeSlotID:    t.TimeSlotID,
		UserID:        t.UserID,
		Status:        string(t.Status),
		PurchasePrice: t.PurchasePrice,
		CreatedAt:     t.CreatedAt,
	}
}

func ticketViews(tickets []domain.Ticket) []ticketView {
	out := make([]ticketView, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, newTicketView(t))
	}
	return out
}
