package handlers

import (
	"net/http"

	"github.com/turtacn/QuestionBank/internal/application/classify"
	"github.com/turtacn/QuestionBank/internal/domain/classification"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

type ClassificationHandler struct {
	classify *classify.Service
	logger   logging.Logger
}

func NewClassificationHandler(svc *classify.Service, logger logging.Logger) *ClassificationHandler {
	return &ClassificationHandler{classify: svc, logger: logger}
}

// ReconcileRequest carries proposals to validate; nothing is stored.
type ReconcileRequest struct {
	Proposals []classification.Proposal `json:"proposals"`
}

// Reconcile handles POST /api/v1/classifications/reconcile.
func (h *ClassificationHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if len(req.Proposals) == 0 {
		writeError(w, r, h.logger, errors.InvalidParam("proposals is required"))
		return
	}
	writeJSON(w, r, http.StatusOK, h.classify.ReconcileAll(req.Proposals))
}

type ApplyRequest struct {
	Items []classify.Item `json:"items"`
}

// OutcomeView is classify.Outcome with its per-item error rendered.
type OutcomeView struct {
	classify.Outcome
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// Apply handles POST /api/v1/classifications, storing reconciled tags. It
// stops at the first storage failure.
func (h *ClassificationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, r, h.logger, errors.InvalidParam("items is required"))
		return
	}
	outs, err := h.classify.Apply(r.Context(), req.Items)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	views := make([]OutcomeView, 0, len(outs))
	for _, o := range outs {
		v := OutcomeView{Outcome: o}
		if o.Err != nil {
			v.Code = errors.GetCode(o.Err).String()
			v.Error = o.Err.Error()
		}
		views = append(views, v)
	}
	writeJSON(w, r, http.StatusOK, views)
}

//Personal.AI order the ending
