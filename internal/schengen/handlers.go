package schengen

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handlers exposes the engine over HTTP.
type Handlers struct {
	engine *Engine
	now    func() time.Time
}

func NewHandlers(e *Engine) *Handlers {
	return &Handlers{engine: e, now: time.Now}
}

// GetCompliance serves GET /drivers/{id}/schengen.
func (h *Handlers) GetCompliance(w http.ResponseWriter, r *http.Request) {
	driverID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid driver id", http.StatusBadRequest)
		return
	}

	res, err := h.engine.Compute(r.Context(), driverID, h.now())
	if err != nil {
		if errors.Is(err, ErrDriverNotFound) {
			http.Error(w, "Driver not found", http.StatusNotFound)
			return
		}
		log.Printf("[schengen] compute %s: %v", driverID, err)
		http.Error(w, "Failed to compute Schengen days: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// OverrideRequest is the body of POST /drivers/{id}/schengen-override. A
// null or missing remainingDays clears the override. asOf accepts a date or
// an RFC 3339 timestamp and defaults to today.
type OverrideRequest struct {
	RemainingDays *float64 `json:"remainingDays"`
	AsOf          string   `json:"asOf,omitempty"`
}

// ParseAsOf resolves the asOf field to a civil day in loc; "" yields nil.
func ParseAsOf(raw string, loc *time.Location) (*CivilDate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if d, err := ParseCivilDate(raw); err == nil {
		return &d, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid asOf %q", raw)
	}
	d := DayKey(t, loc)
	return &d, nil
}

// PostOverride serves POST /drivers/{id}/schengen-override.
func (h *Handlers) PostOverride(w http.ResponseWriter, r *http.Request) {
	driverID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid driver id", http.StatusBadRequest)
		return
	}

	var body OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if body.RemainingDays == nil {
		if err := h.engine.ClearOverride(ctx, driverID); err != nil {
			h.overrideError(w, driverID, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "cleared": true})
		return
	}

	days := *body.RemainingDays
	if math.IsNaN(days) || days < 0 || days > MaxStayDays {
		http.Error(w, ErrInvalidOverride.Error(), http.StatusBadRequest)
		return
	}
	asOf, err := ParseAsOf(body.AsOf, h.engine.Location())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	o, err := h.engine.SetOverride(ctx, driverID, int(math.Round(days)), asOf, h.now())
	if err != nil {
		h.overrideError(w, driverID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "override": o})
}

func (h *Handlers) overrideError(w http.ResponseWriter, driverID uuid.UUID, err error) {
	switch {
	case errors.Is(err, ErrInvalidOverride), errors.Is(err, ErrOverrideInFuture):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrDriverNotFound):
		http.Error(w, "Driver not found", http.StatusNotFound)
	default:
		log.Printf("[schengen] override %s: %v", driverID, err)
		http.Error(w, "Failed to save override: "+err.Error(), http.StatusInternalServerError)
	}
}

// AggregateAll serves POST /schengen/aggregate.
func (h *Handlers) AggregateAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.AggregateAll(r.Context(), h.now())
	if err != nil {
		log.Printf("[schengen] aggregate all: %v", err)
		http.Error(w, "Aggregation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AggregateRequest is the optional body of POST /schengen/aggregate/{driverId}.
// Missing bounds default to the trailing window ending now. Every civil day
// the range touches is rewritten from all of that day's positions, so a
// mid-day from still replaces the whole first day.
type AggregateRequest struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

// AggregateDriver serves POST /schengen/aggregate/{driverId}.
func (h *Handlers) AggregateDriver(w http.ResponseWriter, r *http.Request) {
	driverID, err := uuid.Parse(chi.URLParam(r, "driverId"))
	if err != nil {
		http.Error(w, "Invalid driver id", http.StatusBadRequest)
		return
	}

	var body AggregateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	now := h.now()
	fromDay, _ := h.engine.Window(now)
	from, to := DayStart(fromDay, h.engine.Location()), now
	if body.From != nil {
		from = *body.From
	}
	if body.To != nil {
		to = *body.To
	}

	res, err := h.engine.Aggregate(r.Context(), driverID, from, to)
	if err != nil {
		if errors.Is(err, ErrInvalidRange) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("[schengen] aggregate %s: %v", driverID, err)
		http.Error(w, "Aggregation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Summary serves GET /schengen/summary.
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.engine.Summary(r.Context(), h.now())
	if err != nil {
		log.Printf("[schengen] summary: %v", err)
		http.Error(w, "Failed to build summary: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"warningThresholdDays": h.engine.warnDays,
		"count":                len(rows),
		"drivers":              rows,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[schengen] encode response: %v", err)
	}
}
