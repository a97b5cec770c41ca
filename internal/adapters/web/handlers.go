package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"transwise/internal/app"
	"transwise/internal/auth"
)

// Options configures NewHandler.
type Options struct {
	AllowedOrigins string
	MaxBodyBytes   int64
	// Tokens validates bearer tokens. Nil disables authentication.
	Tokens *auth.JWTService
	Logger *zap.Logger
}

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
	tokens *auth.JWTService
	logger *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	h := &Handler{
		svc:    svc,
		tokens: opts.Tokens,
		logger: logger.Named("http"),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(h.logger))
	r.Use(Recoverer(h.logger))
	r.Use(CORS(opts.AllowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		if h.tokens != nil {
			r.Use(h.RequireAuth)
		}
		r.Use(RequestBodyLimit(opts.MaxBodyBytes))

		r.Get("/api/auth/me", h.me)

		r.Get("/api/financial-year", h.apiFinancialYear)
		r.Get("/api/schemas/booking", h.apiBookingSchema)

		r.Route("/api/companies/{code}", func(r chi.Router) {
			r.Use(RequireCompany)

			// ── LR numbering ─────────────────────────────────────────────────
			r.Post("/branches/{branch}/lr-numbers", h.apiAllocateLRNumber)
			r.Get("/branches/{branch}/sequences/{fy}", h.apiCurrentSerial)
			r.Get("/lr-numbers/unique", h.apiCheckLRNumber)
			r.Get("/sequences", h.apiListCounters)
			r.Get("/sequences/audit", h.apiAuditCounters)

			// ── Bookings ─────────────────────────────────────────────────────
			r.Post("/bookings", h.apiCreateBooking)
			r.Get("/bookings", h.apiListBookings)
			r.Get("/bookings/lookup", h.apiGetBooking)
		})
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// companyCode extracts the {code} URL parameter.
func companyCode(r *http.Request) string {
	return chi.URLParam(r, "code")
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors. An empty body
// leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
