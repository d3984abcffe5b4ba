package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/evently/evently/internal/domain"
	"github.com/evently/evently/internal/export"
	redisrepo "github.com/evently/evently/internal/repository/redis"
	"github.com/evently/evently/internal/service"
	"github.com/evently/evently/internal/service/admin"
	"github.com/evently/evently/internal/service/checkin"
	"github.com/evently/evently/internal/service/query"
	"github.com/evently/evently/internal/service/reservation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), MetricsMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public API
	r.GET("/events", handleListEvents(svcs))
	r.GET("/events/:id", handleGetEvent(svcs))
	r.GET("/events/:id/availability", handleGetAvailability(svcs))

	r.POST("/bookings", handleCreateBooking(svcs, idem))
	r.GET("/bookings/:id", handleGetBooking(svcs))
	r.POST("/bookings/:id/cancel", handleCancelBooking(svcs))

	r.POST("/checkin", handleCheckin(svcs))

	r.GET("/users/:id/bookings", handleUserBookings(svcs))

	// Admin API
	// TODO: add operator auth middleware once the identity service lands
	adm := r.Group("/admin")
	{
		adm.POST("/categories", handleCreateCategory(svcs))
		adm.GET("/categories", handleListCategories(svcs))

		adm.POST("/venues", handleCreateVenue(svcs))
		adm.GET("/venues", handleListVenues(svcs))

		adm.POST("/events", handleCreateEvent(svcs))
		adm.PUT("/events/:id", handleUpdateEvent(svcs))
		adm.POST("/events/:id/cancel", handleCancelEvent(svcs))

		adm.GET("/events/:id/bookings", handleEventBookings(svcs))
		adm.GET("/events/:id/bookings.csv", handleExportBookings(svcs))
		adm.GET("/events/:id/checkins", handleCheckinStats(svcs))

		adm.GET("/dashboard", handleDashboard(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List active events
// @Param    category_id  query  string  false  "Category ID (uuid)"
// @Param    status       query  string  false  "upcoming | ongoing | completed | cancelled"
// @Param    limit        query  int     false  "page size"
// @Param    offset       query  int     false  "offset"
// @Success  200  {array}  EventResponse
// @Router   /events [get]
func handleListEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var categoryID *uuid.UUID
		if raw := c.Query("category_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				badRequest(c, "invalid category_id")
				return
			}
			categoryID = &id
		}

		status := domain.EventStatus(c.Query("status"))
		switch status {
		case "", domain.EventUpcoming, domain.EventOngoing,
			domain.EventCompleted, domain.EventCancelled:
		default:
			badRequest(c, "invalid status")
			return
		}

		limit := parseIntDefault(c.Query("limit"), 0)
		offset := parseIntDefault(c.Query("offset"), 0)

		events, err := svcs.Query.ListEvents(c.Request.Context(), categoryID, status, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, eventViews(events), "public, max-age=30", true)
	}
}

// @Summary  Get event
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  200  {object}  EventResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id} [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Query.GetEvent(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, eventView(e), "public, max-age=60", true)
	}
}

// @Summary  Get availability counters
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  200  {object}  domain.EventCounts
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		cnt, err := svcs.Query.Availability(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, cnt, "public, max-age=5", true)
	}
}

// @Summary  Create booking (idempotent)
// @Param    req body  CreateBookingRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.Booking
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "capacity exceeded / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			badRequest(c, "invalid user_id")
			return
		}
		eventID, err := uuid.Parse(req.EventID)
		if err != nil {
			badRequest(c, "invalid event_id")
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(eventID, idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		rlKey := "ip:" + c.ClientIP()

		b, err := svcs.Reservation.CreateBooking(
			c.Request.Context(),
			userID,
			eventID,
			req.Quantity,
			rlKey,
		)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" && idem != nil {
			payload, _ := json.Marshal(b)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(payload))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, b)
	}
}

// @Summary  Get booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} domain.Booking
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Query.GetBooking(c.Request.Context(), bookingID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Cancel booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} domain.Booking
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "already cancelled"
// @Router   /bookings/{id}/cancel [post]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Reservation.CancelBooking(c.Request.Context(), bookingID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Check in a booking reference
// @Param    req body  CheckinRequest true "payload"
// @Success  200 {object} CheckinResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "already checked in"
// @Router   /checkin [post]
func handleCheckin(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckinRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		operatorID, err := uuid.Parse(req.OperatorID)
		if err != nil {
			badRequest(c, "invalid operator_id")
			return
		}

		res, err := svcs.Checkin.CheckIn(
			c.Request.Context(),
			strings.TrimSpace(req.BookingReference),
			operatorID,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, CheckinResponse{
			BookingReference: res.Booking.Reference,
			EventID:          res.EventID.String(),
			UserID:           res.Booking.UserID.String(),
			Quantity:         res.Booking.Quantity,
			CheckedAt:        res.CheckedAt,
		})
	}
}

// @Summary  List a user's bookings
// @Param    id      path   string  true   "User ID (uuid)"
// @Param    limit   query  int     false  "page size"
// @Param    offset  query  int     false  "offset"
// @Success  200 {array} domain.Booking
// @Router   /users/{id}/bookings [get]
func handleUserBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		limit := parseIntDefault(c.Query("limit"), 0)
		offset := parseIntDefault(c.Query("offset"), 0)

		bookings, err := svcs.Query.UserBookings(c.Request.Context(), userID, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, bookings)
	}
}

// @Summary  Create category
// @Param    req body  CreateCategoryRequest true "payload"
// @Success  201 {object} domain.Category
// @Failure  409 {object} ErrorResponse
// @Router   /admin/categories [post]
func handleCreateCategory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		cat, err := svcs.Admin.CreateCategory(c.Request.Context(), req.Name, req.Description)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, cat)
	}
}

// @Summary  List categories
// @Success  200 {array} domain.Category
// @Router   /admin/categories [get]
func handleListCategories(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := svcs.Admin.ListCategories(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

// @Summary  Create venue
// @Param    req body  CreateVenueRequest true "payload"
// @Success  201 {object} domain.Venue
// @Router   /admin/venues [post]
func handleCreateVenue(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateVenueRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		v, err := svcs.Admin.CreateVenue(
			c.Request.Context(),
			req.Name,
			req.Address,
			req.City,
			req.Capacity,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, v)
	}
}

// @Summary  List venues
// @Success  200 {array} domain.Venue
// @Router   /admin/venues [get]
func handleListVenues(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		venues, err := svcs.Admin.ListVenues(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, venues)
	}
}

// @Summary  Create event
// @Param    req body  EventRequest true "payload"
// @Success  201 {object} EventResponse
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse "category or venue missing"
// @Router   /admin/events [post]
func handleCreateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindEventInput(c)
		if !ok {
			return
		}
		e, err := svcs.Admin.CreateEvent(c.Request.Context(), in)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, eventView(e))
	}
}

// @Summary  Update event
// @Param    id  path  string  true  "Event ID (uuid)"
// @Param    req body  EventRequest true "payload"
// @Success  200 {object} EventResponse
// @Failure  404 {object} ErrorResponse
// @Router   /admin/events/{id} [put]
func handleUpdateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		in, ok := bindEventInput(c)
		if !ok {
			return
		}
		e, err := svcs.Admin.UpdateEvent(c.Request.Context(), eventID, in)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, eventView(e))
	}
}

// @Summary  Cancel event
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Router   /admin/events/{id}/cancel [post]
func handleCancelEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		if err := svcs.Admin.CancelEvent(c.Request.Context(), eventID); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List event bookings
// @Param    id      path   string  true   "Event ID (uuid)"
// @Param    limit   query  int     false  "page size"
// @Param    offset  query  int     false  "offset"
// @Success  200 {array} domain.Booking
// @Router   /admin/events/{id}/bookings [get]
func handleEventBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		limit := parseIntDefault(c.Query("limit"), 0)
		offset := parseIntDefault(c.Query("offset"), 0)

		bookings, err := svcs.Query.EventBookings(c.Request.Context(), eventID, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, bookings)
	}
}

// @Summary  Export event bookings as CSV
// @Param    id  path  string  true  "Event ID (uuid)"
// @Produce  text/csv
// @Success  200
// @Router   /admin/events/{id}/bookings.csv [get]
func handleExportBookings(svcs *service.Services) gin.HandlerFunc {
	const pageSize = 500

	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var all []domain.Booking
		for offset := 0; ; offset += pageSize {
			page, err := svcs.Query.EventBookings(c.Request.Context(), eventID, pageSize, offset)
			if err != nil {
				respondErr(c, err)
				return
			}
			all = append(all, page...)
			if len(page) < pageSize {
				break
			}
		}

		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="bookings-`+eventID.String()+`.csv"`)
		c.Status(http.StatusOK)

		if err := export.WriteBookingsCSV(c.Writer, all); err != nil {
			_ = c.Error(err)
		}
	}
}

// @Summary  Check-in statistics for an event
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  200 {object} domain.CheckinStats
// @Failure  404 {object} ErrorResponse
// @Router   /admin/events/{id}/checkins [get]
func handleCheckinStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		stats, err := svcs.Checkin.Stats(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// @Summary  Operator dashboard aggregates
// @Success  200 {object} domain.DashboardStats
// @Router   /admin/dashboard [get]
func handleDashboard(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svcs.Query.Dashboard(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// --- Helpers ---

func bindEventInput(c *gin.Context) (admin.EventInput, bool) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return admin.EventInput{}, false
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		badRequest(c, "invalid category_id")
		return admin.EventInput{}, false
	}
	venueID, err := uuid.Parse(req.VenueID)
	if err != nil {
		badRequest(c, "invalid venue_id")
		return admin.EventInput{}, false
	}
	starts, err := parseRFC3339(req.StartsAt)
	if err != nil {
		badRequest(c, "invalid starts_at (RFC3339)")
		return admin.EventInput{}, false
	}
	ends, err := parseRFC3339(req.EndsAt)
	if err != nil {
		badRequest(c, "invalid ends_at (RFC3339)")
		return admin.EventInput{}, false
	}

	return admin.EventInput{
		Title:         req.Title,
		Description:   req.Description,
		CategoryID:    categoryID,
		VenueID:       venueID,
		StartsAt:      starts,
		EndsAt:        ends,
		TotalCapacity: req.TotalCapacity,
		PriceCents:    req.PriceCents,
	}, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// admin service
	case errors.Is(err, admin.ErrCategoryConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "category already exists"})
	case errors.Is(err, admin.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "category not found"})
	case errors.Is(err, admin.ErrVenueNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "venue not found"})
	case errors.Is(err, admin.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	case errors.Is(err, admin.ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	// query service
	case errors.Is(err, query.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	case errors.Is(err, query.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	// reservation service
	case errors.Is(err, reservation.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	case errors.Is(err, reservation.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	case errors.Is(err, reservation.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid quantity"})
	case errors.Is(err, reservation.ErrCapacityExceeded):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "not enough remaining capacity"})
	case errors.Is(err, reservation.ErrAlreadyCancelled):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "booking already cancelled"})
	case errors.Is(err, reservation.ErrRateLimited):
		c.Header("Retry-After", "60")
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
	// checkin service
	case errors.Is(err, checkin.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	case errors.Is(err, checkin.ErrAlreadyCheckedIn):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "booking already checked in"})
	case errors.Is(err, checkin.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
