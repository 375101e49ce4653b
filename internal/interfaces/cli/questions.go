package cli

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/QuestionBank/internal/domain/question"
)

// RecordError is a rejected input record.
type RecordError struct {
	Index   int    `json:"index"`
	Ref     string `json:"ref"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func recordErrors(in []question.RecordError) []RecordError {
	out := make([]RecordError, 0, len(in))
	for _, re := range in {
		out = append(out, RecordError{Index: re.Index, Ref: re.Ref, Code: errorCode(re.Err), Message: errorText(re.Err)})
	}
	return out
}

func rejectedRows(rejected []RecordError) [][]string {
	rows := make([][]string, 0, len(rejected))
	for _, re := range rejected {
		rows = append(rows, []string{re.Ref, "", "", color.RedString("%s %s", re.Code, re.Message)})
	}
	return rows
}

// SplitResult is the output of split.
type SplitResult struct {
	Parts    []question.Part `json:"parts"`
	Rejected []RecordError   `json:"rejected"`
}

func (r SplitResult) TableHeaders() []string { return []string{"Part", "Marks", "Text", "Answer"} }

func (r SplitResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Parts)+len(r.Rejected))
	for _, p := range r.Parts {
		text := p.Text
		if text == "" {
			text = p.MainContext
		}
		rows = append(rows, []string{p.Identity.String(), strconv.Itoa(p.Marks), truncate(text, 48), truncate(p.Answer, 16)})
	}
	return append(rows, rejectedRows(r.Rejected)...)
}

func (r SplitResult) Summary() string {
	line := fmt.Sprintf("%d parts, %d payloads rejected", len(r.Parts), len(r.Rejected))
	if len(r.Rejected) > 0 {
		return color.YellowString("%s", line)
	}
	return line
}

// IngestResult is the output of ingest.
type IngestResult struct {
	question.UpsertResult
	Parts    int           `json:"parts"`
	Rejected []RecordError `json:"rejected"`
}

func (r IngestResult) TableHeaders() []string { return []string{"Payload", "", "", "Error"} }

func (r IngestResult) TableRows() [][]string { return rejectedRows(r.Rejected) }

func (r IngestResult) Summary() string {
	line := fmt.Sprintf("%d parts: %d inserted, %d updated, %d skipped; %d payloads rejected",
		r.Parts, r.Inserted, r.Updated, r.Skipped, len(r.Rejected))
	if len(r.Rejected) > 0 {
		return color.YellowString("%s", line)
	}
	return color.GreenString("%s", line)
}

// NewSplitCmd creates the split command.
func NewSplitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "split [FILE]",
		Short: "Split extracted question payloads into parts without storing them",
		Long: `Split reads a JSON array of extracted questions from FILE, or stdin for "-"
or no argument, and prints the canonical parts. Rejected payloads are listed
after the parts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			payloads, err := readJSONList[question.Payload](cmd, argOrStdin(args))
			if err != nil {
				return err
			}
			svc, err := cc.OfflineServices()
			if err != nil {
				return err
			}
			parts, rejected := svc.Ingest.Split(payloads)
			return PrintResult(cmd, SplitResult{Parts: parts, Rejected: recordErrors(rejected)})
		},
	}
}

// NewIngestCmd creates the ingest command.
func NewIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [FILE]",
		Short: "Split extracted question payloads and store the parts",
		Long: `Ingest splits the payloads like split and upserts the parts paper by paper.
Parts edited by hand are never overwritten. Rejected payloads do not stop the
others; a storage failure stops the run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			payloads, err := readJSONList[question.Payload](cmd, argOrStdin(args))
			if err != nil {
				return err
			}

			ctx, cancel := cc.Context(cmd)
			defer cancel()
			svc, done, err := cc.Services(ctx)
			if err != nil {
				return err
			}
			defer done()

			res, err := svc.Ingest.Ingest(ctx, payloads)
			if res != nil {
				out := IngestResult{UpsertResult: res.UpsertResult, Parts: res.Parts, Rejected: recordErrors(res.Rejected)}
				if perr := PrintResult(cmd, out); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}
}

func argOrStdin(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

//Personal.AI order the ending
