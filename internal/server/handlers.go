package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retrieval-cli/internal/attempt"
	"github.com/sells-group/retrieval-cli/internal/model"
	"github.com/sells-group/retrieval-cli/internal/sheet"
	"github.com/sells-group/retrieval-cli/internal/store"
	"github.com/sells-group/retrieval-cli/internal/validate"
	"github.com/sells-group/retrieval-cli/internal/view"
)

// row is a list entry with its derived age fields.
type row struct {
	model.RetrievalAttempt
	DaysInResearch int       `json:"daysInResearch"`
	Overdue        bool      `json:"overdue"`
	OverdueDays    int       `json:"overdueDays"`
	Tier           view.Tier `json:"tier"`
}

type listResponse struct {
	Attempts []row  `json:"attempts"`
	Total    int    `json:"total"`
	Filtered int    `json:"filtered"`
	Label    string `json:"label"`
}

type bulkRequest struct {
	IDs  []string           `json:"ids"`
	Form model.BulkEditForm `json:"form"`
}

type bulkResponse struct {
	Updated  int                      `json:"updated"`
	Attempts []model.RetrievalAttempt `json:"attempts"`
}

type normalizeRequest struct {
	Address string `json:"address"`
}

type errorResponse struct {
	Error     string               `json:"error"`
	Kind      string               `json:"kind,omitempty"`
	Fields    validate.FieldErrors `json:"fields,omitempty"`
	Retryable bool                 `json:"retryable,omitempty"`
}

// query is a parsed list request.
type query struct {
	filter view.FilterSpec
	sort   view.SortSpec
	all    bool
}

func parseQuery(r *http.Request) (query, error) {
	q := r.URL.Query()
	var out query

	out.filter = view.FilterSpec{
		RetrievalMethod: q["method"],
		ClientName:      q["client"],
		DemandID:        q["demand"],
		ProviderGroup:   q["group"],
		ProviderName:    q["provider"],
		ResearchAgent:   q["agent"],
		Search:          q.Get("search"),
	}
	if d := q.Get("days"); d != "" {
		b, err := view.ParseBucket(d)
		if err != nil {
			return out, err
		}
		out.filter.DaysInResearch = b
	}

	out.sort = view.DefaultSort
	if f := q.Get("sort"); f != "" {
		if !slices.Contains(view.SortFields, f) {
			return out, eris.Errorf("server: unknown sort field %q", f)
		}
		out.sort = view.SortSpec{Field: f, Direction: view.Asc}
	}
	switch dir := view.Direction(strings.ToLower(q.Get("dir"))); dir {
	case "":
	case view.Asc, view.Desc:
		out.sort.Direction = dir
	default:
		return out, eris.Errorf("server: unknown sort direction %q", dir)
	}

	if a := q.Get("all"); a != "" {
		all, err := strconv.ParseBool(a)
		if err != nil {
			return out, eris.Wrap(err, "server: parse all")
		}
		out.all = all
	}
	return out, nil
}

// worklist loads the attempts a list request draws from. Only attempts still
// in research are included unless all is set.
func (s *Server) worklist(r *http.Request, all bool) ([]model.RetrievalAttempt, error) {
	filter := store.AttemptFilter{}
	if !all {
		filter.Statuses = []model.Status{model.StatusResearch}
	}
	return s.store.ListAttempts(r.Context(), filter)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	attempts, err := s.worklist(r, q.all)
	if err != nil {
		s.writeError(w, err)
		return
	}

	now := s.now()
	res := view.Build(attempts, q.filter, q.sort, now)
	rows := make([]row, len(res.Attempts))
	for i, a := range res.Attempts {
		days := model.DaysInResearch(now, a.LastActionAt)
		rows[i] = row{
			RetrievalAttempt: a,
			DaysInResearch:   days,
			Overdue:          model.IsOverdue(now, a.LastActionAt, s.slaDays),
			OverdueDays:      model.OverdueDays(now, a.LastActionAt, s.slaDays),
			Tier:             view.AgeTier(days),
		}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Attempts: rows,
		Total:    res.Total,
		Filtered: res.Filtered,
		Label:    res.Label(),
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	attempts, err := s.worklist(r, all)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Options(attempts))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := sheet.FormatCSV
	if strings.HasSuffix(r.URL.Path, ".xlsx") {
		format = sheet.FormatXLSX
	}

	q, err := parseQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	attempts, err := s.worklist(r, q.all)
	if err != nil {
		s.writeError(w, err)
		return
	}

	now := s.now()
	res := view.Build(attempts, q.filter, q.sort, now)

	contentType := "text/csv; charset=utf-8"
	if format == sheet.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+sheet.FileName(now, format)+`"`)
	if err := sheet.Write(w, format, res.Attempts); err != nil {
		zap.L().Error("export failed", zap.String("format", string(format)), zap.Error(err))
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetAttempt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListAudit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var form model.EditForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	a, err := s.engine.ApplySingleEdit(r.Context(), chi.URLParam(r, "id"), form)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleBulkEdit(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	updated, err := s.engine.ApplyBulkEdit(r.Context(), req.IDs, req.Form)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkResponse{Updated: len(updated), Attempts: updated})
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := s.address.Normalize(r.Context(), req.Address)
	if err != nil {
		zap.L().Warn("address normalization failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "address service unavailable", Retryable: true})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeError maps store and engine errors to HTTP responses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := attempt.KindOf(err)
	resp := errorResponse{Error: err.Error(), Kind: kind.String()}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrVersionConflict):
		status = http.StatusConflict
		resp.Retryable = true
	case kind == attempt.KindValidationFailed:
		status = http.StatusUnprocessableEntity
		resp.Fields = attempt.FieldErrorsOf(err)
	case kind == attempt.KindNotFound:
		status = http.StatusNotFound
	case kind == attempt.KindInvalidTransition:
		status = http.StatusConflict
	case kind == attempt.KindTransientFailure:
		status = http.StatusServiceUnavailable
		resp.Retryable = true
	}

	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}
