package web

import (
	"net/http"
	"strconv"

	"transwise/internal/core"
)

// apiCreateBooking handles POST /api/companies/{code}/bookings.
// The company in the path wins over any company_code in the body.
func (h *Handler) apiCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req core.CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyCode = companyCode(r)

	result, err := h.svc.CreateBooking(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// apiListBookings handles GET /api/companies/{code}/bookings?branch=&fy=&limit=.
func (h *Handler) apiListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.BookingFilter{
		CompanyCode:   companyCode(r),
		BranchCode:    q.Get("branch"),
		FinancialYear: q.Get("fy"),
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, r, "limit must be a non-negative integer", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}

	result, err := h.svc.ListBookings(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetBooking handles GET /api/companies/{code}/bookings/lookup?number=.
// LR numbers contain slashes, so they travel in the query string.
func (h *Handler) apiGetBooking(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetBooking(r.Context(), companyCode(r), r.URL.Query().Get("number"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiBookingSchema handles GET /api/schemas/booking.
func (h *Handler) apiBookingSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.BookingSchema())
}
