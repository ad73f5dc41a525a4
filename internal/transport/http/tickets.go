package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

// TicketReader serves the ticket read side.
type TicketReader interface {
	Ticket(ctx context.Context, ticketID, byUserID string, role domain.Role) (domain.Ticket, error)
	TicketsByUser(ctx context.Context, userID string) ([]domain.Ticket, error)
}

// TicketCanceller cancels a ticket and restores capacity.
type TicketCanceller interface {
	Cancel(ctx context.Context, ticketID, byUserID string, role domain.Role) (domain.Ticket, error)
}

// TicketChecker marks a ticket as used at the door.
type TicketChecker interface {
	CheckIn(ctx context.Context, ticketID string, role domain.Role) (domain.Ticket, error)
}

// HandleListTickets returns the caller's tickets: GET /tickets.
func HandleListTickets(svc TicketReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, domain.ErrUnauthenticated.Error())
			return
		}
		tickets, err := svc.TicketsByUser(r.Context(), identity.UserID)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, purchaseResponse{Tickets: ticketViews(tickets)})
	}
}

// HandleGetTicket returns one ticket: GET /tickets/{id}.
func HandleGetTicket(svc TicketReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, domain.ErrUnauthenticated.Error())
			return
		}
		ticket, err := svc.Ticket(r.Context(), mux.Vars(r)["id"], identity.UserID, identity.Role)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newTicketView(ticket))
	}
}

// HandleCancelTicket cancels a ticket: POST /tickets/{id}/cancel.
func HandleCancelTicket(svc TicketCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, domain.ErrUnauthenticated.Error())
			return
		}
		ticket, err := svc.Cancel(r.Context(), mux.Vars(r)["id"], identity.UserID, identity.Role)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newTicketView(ticket))
	}
}

// HandleCheckInTicket marks attendance: POST /tickets/{id}/checkin.
func HandleCheckInTicket(svc TicketChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, domain.ErrUnauthenticated.Error())
			return
		}
		ticket, err := svc.CheckIn(r.Context(), mux.Vars(r)["id"], identity.Role)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newTicketView(ticket))
	}
}
