package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"finbase/internal/core"
	"finbase/internal/listkit"
)

type ctxKey string

const kindKey ctxKey = "kind"

// kindCtx resolves and validates the {kind} URL segment once for the whole
// subtree.
func (s *Server) kindCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := core.Kind(chi.URLParam(r, "kind"))
		if !kind.Valid() {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown record kind %q", kind))
			return
		}
		ctx := context.WithValue(r.Context(), kindKey, kind)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func kindFrom(r *http.Request) core.Kind {
	kind, _ := r.Context().Value(kindKey).(core.Kind)
	return kind
}

type recordPayload struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Category  string `json:"category,omitempty"`
	Frequency string `json:"frequency"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Quantity  string `json:"quantity,omitempty"`
	UnitPrice string `json:"unit_price,omitempty"`
	Valuation string `json:"valuation,omitempty"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toPayload(r core.Record) recordPayload {
	p := recordPayload{
		ID:        r.ID,
		Kind:      string(r.Kind),
		Name:      r.Name,
		Amount:    r.Amount.String(),
		Currency:  r.Currency,
		Category:  r.Category,
		Frequency: string(r.Frequency),
		StartDate: r.StartDate.String(),
		EndDate:   r.EndDate.String(),
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if r.Asset != nil {
		p.Quantity = r.Asset.Quantity.String()
		p.UnitPrice = r.Asset.UnitPrice.String()
		p.Valuation = r.Asset.Valuation().String()
	}
	return p
}

// recordRequest is the write shape shared by create and patch. Amounts and
// asset figures travel as decimal strings so clients never round floats.
type recordRequest struct {
	Name      *string `json:"name"`
	Amount    *string `json:"amount"`
	Currency  *string `json:"currency"`
	Category  *string `json:"category"`
	Frequency *string `json:"frequency"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Quantity  *string `json:"quantity"`
	UnitPrice *string `json:"unit_price"`
	IsActive  *bool   `json:"is_active"`
}

func (req recordRequest) toPatch() (core.RecordPatch, error) {
	var p core.RecordPatch
	p.Name = req.Name
	p.Currency = req.Currency
	p.Category = req.Category
	p.IsActive = req.IsActive

	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			return core.RecordPatch{}, fmt.Errorf("amount: %w", err)
		}
		p.Amount = &core.Money{Cents: cents}
	}
	if req.Frequency != nil {
		f := core.Frequency(*req.Frequency)
		p.Frequency = &f
	}
	if req.StartDate != nil {
		d, err := core.ParseDate(*req.StartDate)
		if err != nil {
			return core.RecordPatch{}, fmt.Errorf("start_date: %w", err)
		}
		p.StartDate = &d
	}
	if req.EndDate != nil {
		d, err := core.ParseDate(*req.EndDate)
		if err != nil {
			return core.RecordPatch{}, fmt.Errorf("end_date: %w", err)
		}
		p.EndDate = &d
	}
	if req.Quantity != nil || req.UnitPrice != nil {
		if req.Quantity == nil || req.UnitPrice == nil {
			return core.RecordPatch{}, errors.New("quantity and unit_price must be set together")
		}
		pos, err := core.ParsePosition(*req.Quantity, *req.UnitPrice)
		if err != nil {
			return core.RecordPatch{}, err
		}
		p.Asset = &pos
	}
	return p, nil
}

func (req recordRequest) toRecord(kind core.Kind) (core.Record, error) {
	patch, err := req.toPatch()
	if err != nil {
		return core.Record{}, err
	}
	rec := patch.Apply(core.Record{Kind: kind, Frequency: core.OneTime, Currency: "EUR"})
	return rec, nil
}

// listParams carries the client's view shaping: free-text search, category,
// month window and sort order. active selects the partition (default true).
type listParams struct {
	query    string
	category string
	month    string
	sort     listkit.SortSpec
	active   bool
}

func parseListParams(r *http.Request) listParams {
	q := r.URL.Query()
	spec := listkit.DefaultSort()
	if v := q.Get("sort"); v != "" {
		spec.Field = listkit.ParseField(v)
	}
	spec.Desc = strings.EqualFold(q.Get("dir"), "desc")
	return listParams{
		query:    q.Get("q"),
		category: q.Get("category"),
		month:    q.Get("month"),
		sort:     spec,
		active:   q.Get("active") != "false",
	}
}

func shapeList(records []core.Record, p listParams) []core.Record {
	records = listkit.Filter(records, p.query, p.category,
		func(r core.Record) string { return r.Name },
		func(r core.Record) string { return r.Category })

	records = listkit.FilterMonth(records, p.month, listkit.MonthAccessors[core.Record]{
		OneTime: func(r core.Record) bool { return r.Frequency == core.OneTime },
		Date:    func(r core.Record) time.Time { return r.StartDate.Time },
		Start:   func(r core.Record) time.Time { return r.StartDate.Time },
		End:     func(r core.Record) time.Time { return r.EndDate.Time },
	})

	return listkit.Sort(records, p.sort, listkit.Accessors[core.Record]{
		Name:   func(r core.Record) string { return r.Name },
		Amount: func(r core.Record) int64 { return r.Amount.Cents },
		Date:   func(r core.Record) time.Time { return r.StartDate.Time },
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)
	p := parseListParams(r)

	cacheKey := fmt.Sprintf("%s:%t", kind, p.active)
	records, hit := s.listCache.Get(cacheKey)
	if hit {
		listCacheHits.Inc()
	} else {
		listCacheMisses.Inc()
		var err error
		records, err = s.svc.List(r.Context(), kind, p.active)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list records")
			return
		}
		s.listCache.Set(cacheKey, records)
	}

	shaped := shapeList(records, p)
	payloads := make([]recordPayload, 0, len(shaped))
	for _, rec := range shaped {
		payloads = append(payloads, toPayload(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": payloads,
		"count":   len(payloads),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	rec, err := req.toRecord(kind)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.svc.Create(r.Context(), rec)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.listCache.InvalidatePrefix(string(kind))
	writeJSON(w, http.StatusCreated, toPayload(created))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)
	id := chi.URLParam(r, "id")

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	updated, err := s.svc.Update(r.Context(), id, patch)
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
		return
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.listCache.InvalidatePrefix(string(kind))
	writeJSON(w, http.StatusOK, toPayload(updated))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)
	id := chi.URLParam(r, "id")

	err := s.svc.Delete(r.Context(), id)
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "delete record")
		return
	}
	s.listCache.InvalidatePrefix(string(kind))
	w.WriteHeader(http.StatusNoContent)
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	res, err := s.svc.BatchDelete(r.Context(), kind, req.IDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "batch delete")
		return
	}
	batchOperations.WithLabelValues(string(kind), "delete").Inc()
	s.listCache.InvalidatePrefix(string(kind))

	// Partial failures still answer 200: the response body carries the
	// per-id outcome.
	writeJSON(w, http.StatusOK, res)
}

type batchArchiveRequest struct {
	IDs      []string `json:"ids"`
	IsActive bool     `json:"is_active"`
}

func (s *Server) handleBatchArchive(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)

	var req batchArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	res := s.svc.BatchArchive(r.Context(), kind, req.IDs, req.IsActive)
	batchOperations.WithLabelValues(string(kind), "archive").Inc()
	s.listCache.InvalidatePrefix(string(kind))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBackupRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := s.svc.RequestBackup(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "backup queue unavailable")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"request_id": requestID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
