package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/QuestionBank/internal/domain/taxonomy"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

type TaxonomyHandler struct {
	registry *taxonomy.Registry
	logger   logging.Logger
}

func NewTaxonomyHandler(registry *taxonomy.Registry, logger logging.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{registry: registry, logger: logger}
}

// MatchRequest resolves one label or a list of labels of one category.
type MatchRequest struct {
	Category string   `json:"category"`
	Label    string   `json:"label,omitempty"`
	Labels   []string `json:"labels,omitempty"`
}

// LabelMatch is the outcome for one requested label. Match is nil when the
// label resolved to nothing.
type LabelMatch struct {
	Label string          `json:"label"`
	Match *taxonomy.Match `json:"match,omitempty"`
	Code  string          `json:"code,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Match handles POST /api/v1/taxonomy/match.
func (h *TaxonomyHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	category, err := taxonomy.ParseCategory(req.Category)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	labels := req.Labels
	if req.Label != "" {
		labels = append([]string{req.Label}, labels...)
	}
	if len(labels) == 0 {
		writeError(w, r, h.logger, errors.InvalidParam("label or labels is required"))
		return
	}

	out := make([]LabelMatch, 0, len(labels))
	for _, l := range labels {
		lm := LabelMatch{Label: l}
		if m, err := h.registry.Resolve(l, category); err != nil {
			lm.Code = errors.GetCode(err).String()
			lm.Error = err.Error()
		} else {
			lm.Match = &m
		}
		out = append(out, lm)
	}
	writeJSON(w, r, http.StatusOK, out)
}

// VocabularyView lists one category.
type VocabularyView struct {
	Category  string   `json:"category"`
	Labels    []string `json:"labels"`
	Threshold float64  `json:"fuzzy_threshold"`
	Metric    string   `json:"similarity"`
}

// List handles GET /api/v1/taxonomy/{category}.
func (h *TaxonomyHandler) List(w http.ResponseWriter, r *http.Request) {
	category, err := taxonomy.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, VocabularyView{
		Category:  category.String(),
		Labels:    h.registry.Labels(category),
		Threshold: h.registry.Threshold(),
		Metric:    h.registry.Metric().String(),
	})
}

//Personal.AI order the ending
