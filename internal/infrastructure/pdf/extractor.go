// Package pdf turns answer-key PDFs into per-page text for the answer-key
// line parser.
package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/turtacn/QuestionBank/internal/domain/answerkey"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Extractor reads text layers. Scanned pages without a text layer come back
// empty and are reported in the log.
type Extractor struct {
	logger logging.Logger
}

func NewExtractor(log logging.Logger) *Extractor {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Extractor{logger: log.Named("pdf")}
}

// ExtractFile reads path and extracts it.
func (e *Extractor) ExtractFile(path string) ([]answerkey.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePDFExtraction, "failed to read PDF").WithDetail(path)
	}
	return e.Extract(data)
}

// Extract returns one Page per PDF page, numbered from 1, with rows joined
// by newlines top to bottom.
func (e *Extractor) Extract(data []byte) (pages []answerkey.Page, err error) {
	if len(data) == 0 {
		return nil, errors.New(errors.CodePDFExtraction, "PDF is empty")
	}
	// the reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = errors.New(errors.CodePDFExtraction, "malformed PDF").WithDetail(fmt.Sprint(r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePDFExtraction, "failed to open PDF")
	}

	n := r.NumPage()
	pages = make([]answerkey.Page, 0, n)
	var blank []int
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := pageText(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodePDFExtraction, "failed to read page text").WithDetailf("page=%d", i)
		}
		if strings.TrimSpace(text) == "" {
			blank = append(blank, i)
		}
		pages = append(pages, answerkey.Page{Number: i, Text: text})
	}
	if len(blank) > 0 {
		e.logger.Warn("pages without a text layer", logging.Any("pages", blank), logging.Int("total", n))
	}
	return pages, nil
}

func pageText(p pdf.Page) (string, error) {
	rows, err := p.GetTextByRow()
	if err != nil || len(rows) == 0 {
		return p.GetPlainText(nil)
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var sb strings.Builder
		for _, t := range row.Content {
			sb.WriteString(t.S)
		}
		lines = append(lines, strings.TrimRight(sb.String(), " "))
	}
	return strings.Join(lines, "\n"), nil
}

//Personal.AI order the ending
