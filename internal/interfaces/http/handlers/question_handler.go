package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/QuestionBank/internal/application/ingest"
	"github.com/turtacn/QuestionBank/internal/application/query"
	"github.com/turtacn/QuestionBank/internal/domain/paper"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

type QuestionHandler struct {
	ingest *ingest.Service
	query  *query.Service
	logger logging.Logger
}

func NewQuestionHandler(ing *ingest.Service, q *query.Service, logger logging.Logger) *QuestionHandler {
	return &QuestionHandler{ingest: ing, query: q, logger: logger}
}

// PayloadBatch is the body of split and ingest requests.
type PayloadBatch struct {
	Payloads []question.Payload `json:"payloads"`
}

type SplitResponse struct {
	Parts    []question.Part   `json:"parts"`
	Rejected []RecordErrorView `json:"rejected"`
}

type IngestResponse struct {
	question.UpsertResult
	Parts    int               `json:"parts"`
	Rejected []RecordErrorView `json:"rejected"`
}

func (h *QuestionHandler) decodeBatch(w http.ResponseWriter, r *http.Request) ([]question.Payload, bool) {
	var req PayloadBatch
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return nil, false
	}
	if len(req.Payloads) == 0 {
		writeError(w, r, h.logger, errors.InvalidParam("payloads is required"))
		return nil, false
	}
	return req.Payloads, true
}

// Split handles POST /api/v1/questions/split. Nothing is stored.
func (h *QuestionHandler) Split(w http.ResponseWriter, r *http.Request) {
	payloads, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}
	parts, rejected := h.ingest.Split(payloads)
	if parts == nil {
		parts = []question.Part{}
	}
	writeJSON(w, r, http.StatusOK, SplitResponse{Parts: parts, Rejected: recordErrors(rejected)})
}

// Ingest handles POST /api/v1/questions. Rejected payloads do not fail the
// request; they are listed in the response.
func (h *QuestionHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	payloads, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}
	res, err := h.ingest.Ingest(r.Context(), payloads)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, IngestResponse{
		UpsertResult: res.UpsertResult,
		Parts:        res.Parts,
		Rejected:     recordErrors(res.Rejected),
	})
}

// GetGroup handles GET /api/v1/questions/{school}/{year}/{section}/{num}.
func (h *QuestionHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	year, err1 := strconv.Atoi(chi.URLParam(r, "year"))
	num, err2 := strconv.Atoi(chi.URLParam(r, "num"))
	if err1 != nil || err2 != nil {
		writeError(w, r, h.logger, errors.InvalidParam("year and num must be integers"))
		return
	}
	g, err := h.query.GetGroup(r.Context(), question.Key{
		School:      chi.URLParam(r, "school"),
		Year:        year,
		Section:     chi.URLParam(r, "section"),
		QuestionNum: num,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, g)
}

func filterFromQuery(r *http.Request) (question.Filter, error) {
	q := r.URL.Query()
	f := question.Filter{School: q.Get("school"), Section: q.Get("section")}
	var err error
	if f.Year, err = queryInt(r, "year", 0); err != nil {
		return f, err
	}
	if v := q.Get("needs_review"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.InvalidParam("needs_review must be a boolean")
		}
		f.NeedsReview = &b
	}
	return f, nil
}

// List handles GET /api/v1/questions?school=&year=&section=&needs_review=
// &page=&page_size=.
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	page, err := paginationFromQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	f.Limit, f.Offset = page.PageSize, page.Offset()

	parts, err := h.query.ListParts(r.Context(), f)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if parts == nil {
		parts = []question.Part{}
	}
	writePage(w, r, parts, page)
}

// Audit handles GET /api/v1/questions/audit.
func (h *QuestionHandler) Audit(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	report, err := h.query.AuditTags(r.Context(), f)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// PaperValidation is the body of GET /papers/{school}/{year}/validation.
type PaperValidation struct {
	paper.Report
	Valid bool `json:"valid"`
}

// ValidatePaper handles GET /api/v1/papers/{school}/{year}/validation.
func (h *QuestionHandler) ValidatePaper(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, r, h.logger, errors.InvalidParam("year must be an integer"))
		return
	}
	q := r.URL.Query()
	opts := paper.ValidateOptions{
		RequireAllSections: q.Get("require_all") == "true",
		CheckAnswers:       q.Get("check_answers") == "true",
	}
	report, err := h.query.ValidatePaper(r.Context(), chi.URLParam(r, "school"), year, opts)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, PaperValidation{Report: report, Valid: report.Valid()})
}

//Personal.AI order the ending
