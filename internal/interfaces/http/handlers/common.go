// Package handlers implements the QuestionBank HTTP API.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
	"github.com/turtacn/QuestionBank/pkg/types/common"
)

const (
	// maxBodyBytes bounds JSON request bodies.
	maxBodyBytes = 8 << 20

	defaultPageSize = 100
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	resp := common.NewSuccessResponse(data)
	resp.RequestID = logging.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writePage(w http.ResponseWriter, r *http.Request, data interface{}, page common.Pagination) {
	resp := common.NewPaginatedResponse(data, page)
	resp.RequestID = logging.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// paginationFromQuery reads page (from 1) and page_size, bounded by
// common.MaxPageSize.
func paginationFromQuery(r *http.Request) (common.Pagination, error) {
	var (
		p   common.Pagination
		err error
	)
	if p.Page, err = queryInt(r, "page", 1); err != nil {
		return p, err
	}
	if p.PageSize, err = queryInt(r, "page_size", defaultPageSize); err != nil {
		return p, err
	}
	if err := p.Validate(); err != nil {
		return p, errors.InvalidParam(err.Error())
	}
	return p, nil
}

// writeError renders err with the HTTP status of its code. Messages of
// server-side errors are masked.
func writeError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	message, detail := err.Error(), ""
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		message, detail = appErr.Message, appErr.Detail
	}
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context(), logger).Error("request error",
			logging.String("path", r.URL.Path), logging.String("code", code.String()), logging.Err(err))
		message, detail = errors.DefaultMessageForCode(code), ""
	}

	resp := common.NewErrorResponse(code.String(), message, detail)
	resp.RequestID = logging.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return errors.InvalidParam("request body is empty")
		}
		return errors.Wrap(err, errors.CodeValidation, "malformed request body")
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.InvalidParam("query parameter must be a non-negative integer").WithDetail(name)
	}
	return n, nil
}

// RecordErrorView is the wire form of a per-record failure.
type RecordErrorView struct {
	Index   int    `json:"index"`
	Ref     string `json:"ref"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func recordErrors(errs []question.RecordError) []RecordErrorView {
	out := make([]RecordErrorView, 0, len(errs))
	for _, e := range errs {
		out = append(out, RecordErrorView{
			Index:   e.Index,
			Ref:     e.Ref,
			Code:    errors.GetCode(e.Err).String(),
			Message: e.Err.Error(),
		})
	}
	return out
}

//Personal.AI order the ending
