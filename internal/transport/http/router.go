package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/auth"
)

// Services groups everything the router mounts.
type Services struct {
	Events interface {
		EventLister
		EventReader
		EventCreator
		EventUpdater
	}
	Availability AvailabilityReader
	Ledger interface {
		TicketPurchaser
		TicketReader
		TicketCanceller
		TicketChecker
	}
}

// NewRouter builds the full HTTP handler: routes under /api/v1 plus
// health, wrapped in auth, CORS and request logging.
func NewRouter(svcs Services, authenticator auth.Authenticator, corsOrigins []string, logger logrus.FieldLogger) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Handle("/events", HandleListEvents(svcs.Events)).Methods(http.MethodGet)
	api.Handle("/events", RequireElevated(HandleCreateEvent(svcs.Events))).Methods(http.MethodPost)
	api.Handle("/events/{id}", HandleGetEvent(svcs.Events)).Methods(http.MethodGet)
	api.Handle("/events/{id}", RequireElevated(HandleUpdateEvent(svcs.Events))).Methods(http.MethodPut)
	api.Handle("/events/{id}/availability", HandleAvailability(svcs.Availability)).Methods(http.MethodGet)
	api.Handle("/events/{id}/tickets/purchase", RequireUser(HandlePurchase(svcs.Ledger))).Methods(http.MethodPost)
	api.Handle("/tickets", RequireUser(HandleListTickets(svcs.Ledger))).Methods(http.MethodGet)
	api.Handle("/tickets/{id}", RequireUser(HandleGetTicket(svcs.Ledger))).Methods(http.MethodGet)
	api.Handle("/tickets/{id}/cancel", RequireUser(HandleCancelTicket(svcs.Ledger))).Methods(http.MethodPost)
	api.Handle("/tickets/{id}/checkin", RequireElevated(HandleCheckInTicket(svcs.Ledger))).Methods(http.MethodPost)

	r.NotFoundHandler = NotFoundHandler()

	var handler http.Handler = r
	handler = Authenticate(authenticator, handler)
	handler = CORS(corsOrigins, handler)
	handler = RequestLogger(logger, handler)
	return handler
}
