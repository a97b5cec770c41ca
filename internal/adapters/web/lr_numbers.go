package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"transwise/internal/app"
	"transwise/internal/core"
)

// apiFinancialYear handles GET /api/financial-year?date=YYYY-MM-DD.
func (h *Handler) apiFinancialYear(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ResolveFinancialYear(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiAllocateLRNumber handles POST /api/companies/{code}/branches/{branch}/lr-numbers.
// The body is optional; without a financial_year the current one is used.
func (h *Handler) apiAllocateLRNumber(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FinancialYear string `json:"financial_year"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.AllocateLRNumber(r.Context(), app.AllocateRequest{
		CompanyCode:   companyCode(r),
		BranchCode:    chi.URLParam(r, "branch"),
		FinancialYear: body.FinancialYear,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// apiCurrentSerial handles GET /api/companies/{code}/branches/{branch}/sequences/{fy}.
func (h *Handler) apiCurrentSerial(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetCurrentSerial(r.Context(), core.ScopeKey{
		CompanyCode:   companyCode(r),
		BranchCode:    chi.URLParam(r, "branch"),
		FinancialYear: chi.URLParam(r, "fy"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCheckLRNumber handles GET /api/companies/{code}/lr-numbers/unique?number=.
func (h *Handler) apiCheckLRNumber(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.CheckLRNumber(r.Context(), companyCode(r), r.URL.Query().Get("number"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiListCounters handles GET /api/companies/{code}/sequences.
func (h *Handler) apiListCounters(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCounters(r.Context(), companyCode(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiAuditCounters handles GET /api/companies/{code}/sequences/audit.
func (h *Handler) apiAuditCounters(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.AuditCounters(r.Context(), companyCode(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
