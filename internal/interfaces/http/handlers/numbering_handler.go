package handlers

import (
	"net/http"

	"github.com/turtacn/QuestionBank/internal/domain/numbering"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

type NumberingHandler struct {
	normalizer *numbering.Normalizer
	logger     logging.Logger
}

func NewNumberingHandler(n *numbering.Normalizer, logger logging.Logger) *NumberingHandler {
	return &NumberingHandler{normalizer: n, logger: logger}
}

// NormalizeRequest maps printed numbers of one (school, section). With Raws
// the batch collision check applies.
type NormalizeRequest struct {
	School  string   `json:"school"`
	Section string   `json:"section"`
	Raw     string   `json:"raw,omitempty"`
	Raws    []string `json:"raws,omitempty"`
}

type NormalizeError struct {
	Index   int    `json:"index"`
	Raw     string `json:"raw"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type NormalizeResponse struct {
	Numbers []numbering.Number `json:"numbers"`
	Errors  []NormalizeError   `json:"errors,omitempty"`
}

// Normalize handles POST /api/v1/numbering/normalize. A single raw number
// that fails is an error response; batch failures are listed per item.
func (h *NumberingHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	switch {
	case len(req.Raws) > 0:
		nums, failed := h.normalizer.NormalizeBatch(req.School, req.Section, req.Raws)
		resp := NormalizeResponse{Numbers: nums}
		for _, f := range failed {
			resp.Errors = append(resp.Errors, NormalizeError{
				Index:   f.Index,
				Raw:     f.Raw,
				Code:    errors.GetCode(f.Err).String(),
				Message: f.Err.Error(),
			})
		}
		writeJSON(w, r, http.StatusOK, resp)
	case req.Raw != "":
		num, err := h.normalizer.Normalize(req.School, req.Section, req.Raw)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, NormalizeResponse{Numbers: []numbering.Number{num}})
	default:
		writeError(w, r, h.logger, errors.InvalidParam("raw or raws is required"))
	}
}

//Personal.AI order the ending
