package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/app"
	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

// EventLister serves the public event listing.
type EventLister interface {
	ListEvents(ctx context.Context, filter app.EventFilter) (app.EventPage, error)
}

// EventReader returns one event with its time slots.
type EventReader interface {
	GetEvent(ctx context.Context, eventID string) (app.EventDetail, error)
}

// EventCreator creates an event with its time slots.
type EventCreator interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (app.EventDetail, error)
}

// EventUpdater patches an existing event.
type EventUpdater interface {
	UpdateEvent(ctx context.Context, eventID string, in app.UpdateEventInput) (domain.Event, error)
}

// HandleListEvents serves GET /events with paging and filters.
func HandleListEvents(svc EventLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseEventFilter(r)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, codeValidationFailed, err.Error())
			return
		}

		page, err := svc.ListEvents(r.Context(), filter)
		if err != nil {
			respondError(w, err)
			return
		}

		events := make([]eventView, 0, len(page.Events))
		for _, e := range page.Events {
			events = append(events, newEventView(e))
		}
		pages := 0
		if page.Limit > 0 {
			pages = (page.Total + page.Limit - 1) / page.Limit
		}
		writeJSON(w, http.StatusOK, listEventsResponse{
			Events: events,
			Pagination: paginationView{
				Total: page.Total,
				Page:  page.Page,
				Limit: page.Limit,
				Pages: pages,
			},
		})
	}
}

func parseEventFilter(r *http.Request) (app.EventFilter, error) {
	q := r.URL.Query()
	var filter app.EventFilter
	var err error

	if raw := q.Get("page"); raw != "" {
		if filter.Page, err = strconv.Atoi(raw); err != nil || filter.Page < 1 {
			return app.EventFilter{}, errInvalidQueryParam("page")
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if filter.Limit, err = strconv.Atoi(raw); err != nil || filter.Limit < 1 {
			return app.EventFilter{}, errInvalidQueryParam("limit")
		}
	}
	filter.Status = q.Get("status")
	if filter.Status != "" && !domain.ValidEventStatus(filter.Status) {
		return app.EventFilter{}, errInvalidQueryParam("status")
	}
	filter.ArtistID = q.Get("artistId")
	if raw := q.Get("startDate"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return app.EventFilter{}, errInvalidQueryParam("startDate")
		}
		filter.From = &t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return app.EventFilter{}, errInvalidQueryParam("endDate")
		}
		filter.To = &t
	}
	return filter, nil
}

type queryParamError string

func errInvalidQueryParam(name string) error {
	return queryParamError(name)
}

func (e queryParamError) Error() string {
	return "invalid query parameter: " + string(e)
}

// HandleGetEvent serves GET /events/{id}.
func HandleGetEvent(svc EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.GetEvent(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newEventDetailView(detail))
	}
}

// HandleCreateEvent serves POST /events (elevated roles only; the guard
// is applied in the router).
func HandleCreateEvent(svc EventCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createEventRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		slots := make([]app.CreateTimeSlotInput, 0, len(req.TimeSlots))
		for _, s := range req.TimeSlots {
			slots = append(slots, app.CreateTimeSlotInput{
				StartsAt: s.StartTime,
				EndsAt:   s.EndTime,
				Capacity: s.Capacity,
			})
		}

		detail, err := svc.CreateEvent(r.Context(), app.CreateEventInput{
			Title:       req.Title,
			Description: req.Description,
			StartsAt:    req.StartDate,
			EndsAt:      req.EndDate,
			Location:    req.Location,
			ArtistID:    req.ArtistID,
			Capacity:    req.Capacity,
			Price:       req.Price,
			IsVirtual:   req.IsVirtual,
			Slots:       slots,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newEventDetailView(detail))
	}
}

// HandleUpdateEvent serves PUT /events/{id}.
func HandleUpdateEvent(svc EventUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateEventRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		event, err := svc.UpdateEvent(r.Context(), mux.Vars(r)["id"], app.UpdateEventInput{
			Title:       req.Title,
			Description: req.Description,
			Location:    req.Location,
			Status:      req.Status,
			Price:       req.Price,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newEventView(event))
	}
}

type createEventRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	StartDate   time.Time             `json:"startDate"`
	EndDate     time.Time             `json:"endDate"`
	Location    string                `json:"location"`
	ArtistID    string                `json:"artistId"`
	Capacity    int                   `json:"capacity"`
	Price       float64               `json:"price"`
	IsVirtual   bool                  `json:"isVirtual"`
	TimeSlots   []createTimeSlotEntry `json:"timeSlots"`
}

type createTimeSlotEntry struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Capacity  int       `json:"capacity"`
}

type updateEventRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Location    *string  `json:"location"`
	Status      *string  `json:"status"`
	Price       *float64 `json:"price"`
}

type listEventsResponse struct {
	Events     []eventView    `json:"events"`
	Pagination paginationView `json:"pagination"`
}

type paginationView struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

type eventView struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	Location       string    `json:"location"`
	Status         string    `json:"status"`
	ArtistID       string    `json:"artistId"`
	Capacity       int       `json:"capacity"`
	AvailableSpots int       `json:"availableSpots"`
	Price          float64   `json:"price"`
	IsVirtual      bool      `json:"isVirtual"`
}

type eventDetailView struct {
	eventView
	TimeSlots []timeSlotView `json:"timeSlots"`
}

type timeSlotView struct {
	ID             string    `json:"id"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
	Capacity       int       `json:"capacity"`
	AvailableSpots int       `json:"availableSpots"`
}

func newEventView(e domain.Event) eventView {
	return eventView{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		StartDate:      e.StartsAt,
		EndDate:        e.EndsAt,
		Location:       e.Location,
		Status:         string(e.Status),
		ArtistID:       e.ArtistID,
		Capacity:       e.Capacity,
		AvailableSpots: e.AvailableSpots,
		Price:          e.Price,
		IsVirtual:      e.IsVirtual,
	}
}

func newEventDetailView(detail app.EventDetail) eventDetailView {
	slots := make([]timeSlotView, 0, len(detail.Slots))
	for _, s := range detail.Slots {
		slots = append(slots, timeSlotView{
			ID:             s.ID,
			StartTime:      s.StartsAt,
			EndTime:        s.EndsAt,
			Capacity:       s.Capacity,
			AvailableSpots: s.AvailableSpots,
		})
	}
	return eventDetailView{
		eventView: newEventView(detail.Event),
		TimeSlots: slots,
	}
}
