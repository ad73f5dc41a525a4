package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/app"
)

// AvailabilityReader snapshots live capacity.
type AvailabilityReader interface {
	Availability(ctx context.Context, eventID, slotID string) (app.Availability, error)
}

// HandleAvailability serves GET /events/{id}/availability, optionally
// narrowed to one slot with ?timeSlotId=.
func HandleAvailability(svc AvailabilityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		availability, err := svc.Availability(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("timeSlotId"))
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, availabilityResponse{
			EventSpots: availability.EventSpots,
			SlotSpots:  availability.SlotSpots,
		})
	}
}

type availabilityResponse struct {
	EventSpots int  `json:"eventSpots"`
	SlotSpots  *int `json:"slotSpots,omitempty"`
}
