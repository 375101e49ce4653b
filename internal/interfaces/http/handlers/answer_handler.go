package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/turtacn/QuestionBank/internal/application/answers"
	"github.com/turtacn/QuestionBank/internal/domain/answerkey"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// maxUploadBytes bounds answer key uploads.
const maxUploadBytes = 32 << 20

type AnswerKeyHandler struct {
	answers *answers.Service
	logger  logging.Logger
}

func NewAnswerKeyHandler(svc *answers.Service, logger logging.Logger) *AnswerKeyHandler {
	return &AnswerKeyHandler{answers: svc, logger: logger}
}

// MatchAnswersRequest binds candidates to the given parts without storage.
type MatchAnswersRequest struct {
	School     string                `json:"school"`
	Candidates []answerkey.Candidate `json:"candidates"`
	Parts      []question.Part       `json:"parts"`
}

// UnparsableView is answerkey.Unparsable with its error code.
type UnparsableView struct {
	answerkey.Unparsable
	Code string `json:"code"`
}

type MatchAnswersResponse struct {
	Results     []answerkey.Result `json:"results"`
	Unparsable  []UnparsableView   `json:"unparsable"`
	Unused      []int              `json:"unused"`
	Exact       int                `json:"exact"`
	Partial     int                `json:"partial"`
	NoCandidate int                `json:"no_candidate"`
}

func matchResponse(rep answerkey.Report) MatchAnswersResponse {
	exact, partial, none := rep.Counts()
	resp := MatchAnswersResponse{
		Results:     rep.Results,
		Unparsable:  make([]UnparsableView, 0, len(rep.Unparsable)),
		Unused:      rep.Unused,
		Exact:       exact,
		Partial:     partial,
		NoCandidate: none,
	}
	for _, u := range rep.Unparsable {
		resp.Unparsable = append(resp.Unparsable, UnparsableView{Unparsable: u, Code: errors.GetCode(u.Err).String()})
	}
	if resp.Results == nil {
		resp.Results = []answerkey.Result{}
	}
	if resp.Unused == nil {
		resp.Unused = []int{}
	}
	return resp
}

// Match handles POST /api/v1/answer-keys/match.
func (h *AnswerKeyHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchAnswersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, matchResponse(h.answers.Match(req.School, req.Candidates, req.Parts)))
}

type BindResponse struct {
	MatchAnswersResponse
	Updated   int                 `json:"updated"`
	Unchanged int                 `json:"unchanged"`
	Missing   []question.Identity `json:"missing_parts"`
}

func bindResponse(res *answers.BindResult) BindResponse {
	missing := res.Missing
	if missing == nil {
		missing = []question.Identity{}
	}
	return BindResponse{
		MatchAnswersResponse: matchResponse(res.Report),
		Updated:              res.Updated,
		Unchanged:            res.Unchanged,
		Missing:              missing,
	}
}

// Bind handles POST /api/v1/answer-keys/bind against stored parts.
func (h *AnswerKeyHandler) Bind(w http.ResponseWriter, r *http.Request) {
	var req answers.BindRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.answers.Bind(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, bindResponse(res))
}

type ImportResponse struct {
	BindResponse
	SourceKey  string `json:"source_key,omitempty"`
	Pages      int    `json:"pages"`
	Candidates int    `json:"candidates"`
}

// Import handles POST /api/v1/answer-keys/import, a multipart form with
// school, year, optional section and either a "file" part or a source_key
// naming a stored object. Uploaded files are kept in object storage unless
// store=false.
func (h *AnswerKeyHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, h.logger, errors.Wrap(err, errors.CodeValidation, "malformed multipart form"))
		return
	}
	year, err := strconv.Atoi(r.FormValue("year"))
	if err != nil {
		writeError(w, r, h.logger, errors.InvalidParam("year must be an integer"))
		return
	}
	req := answers.ImportRequest{
		School:         r.FormValue("school"),
		Year:           year,
		DefaultSection: r.FormValue("section"),
		SourceKey:      r.FormValue("source_key"),
		Store:          r.FormValue("store") != "false",
	}
	if v := r.FormValue("overwrite"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, h.logger, errors.InvalidParam("overwrite must be a boolean"))
			return
		}
		req.Overwrite = &b
	}
	if file, hdr, err := r.FormFile("file"); err == nil {
		defer file.Close()
		if req.Data, err = io.ReadAll(file); err != nil {
			writeError(w, r, h.logger, errors.Wrap(err, errors.CodeValidation, "failed to read upload"))
			return
		}
		req.Filename = hdr.Filename
	}

	res, err := h.answers.Import(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	resp := ImportResponse{
		BindResponse: bindResponse(&res.BindResult),
		Pages:        res.Pages,
		Candidates:   len(res.Candidates),
	}
	if res.Source != nil {
		resp.SourceKey = res.Source.Key
	}
	writeJSON(w, r, http.StatusOK, resp)
}

//Personal.AI order the ending
