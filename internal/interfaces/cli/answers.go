package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/QuestionBank/internal/application/answers"
	"github.com/turtacn/QuestionBank/internal/domain/answerkey"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/infrastructure/storage/minio"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// AnswerReport is the output of match.
type AnswerReport struct {
	answerkey.Report
	Exact       int `json:"exact"`
	Partial     int `json:"partial"`
	NoCandidate int `json:"no_candidate"`
}

func newAnswerReport(r answerkey.Report) AnswerReport {
	out := AnswerReport{Report: r}
	out.Exact, out.Partial, out.NoCandidate = r.Counts()
	return out
}

func (r AnswerReport) TableHeaders() []string { return []string{"Part", "Match", "Key", "Answer"} }

func (r AnswerReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Results)+len(r.Unparsable))
	for _, res := range r.Results {
		var kind string
		switch res.Kind {
		case answerkey.MatchExact:
			kind = color.GreenString("%s", res.Kind)
		case answerkey.MatchPartial:
			kind = color.YellowString("%s", res.Kind)
		default:
			kind = color.RedString("%s", res.Kind)
		}
		key, value := "", ""
		if res.Candidate != nil {
			key, value = res.Candidate.RawKey, truncate(res.Candidate.Value, 24)
		}
		rows = append(rows, []string{res.Part.String(), kind, key, value})
	}
	for _, u := range r.Unparsable {
		rows = append(rows, []string{"", color.RedString("unparsable"), u.Candidate.RawKey, u.Reason})
	}
	return rows
}

func (r AnswerReport) Summary() string {
	return fmt.Sprintf("%d exact, %d partial, %d without answer; %d keys unparsable, %d unused",
		r.Exact, r.Partial, r.NoCandidate, len(r.Unparsable), len(r.Unused))
}

// BindOutput is the output of answers bind and answers import.
type BindOutput struct {
	AnswerReport
	Updated   int                   `json:"updated"`
	Unchanged int                   `json:"unchanged"`
	Missing   []question.Identity   `json:"missing_parts"`
	Source    *minio.SourceObject   `json:"source,omitempty"`
	Pages     int                   `json:"pages,omitempty"`
	Keys      []answerkey.Candidate `json:"candidates,omitempty"`
}

func newBindOutput(b answers.BindResult) BindOutput {
	return BindOutput{
		AnswerReport: newAnswerReport(b.Report),
		Updated:      b.Updated,
		Unchanged:    b.Unchanged,
		Missing:      b.Missing,
	}
}

func (b BindOutput) Summary() string {
	line := fmt.Sprintf("%d answers written, %d unchanged, %d parts without answer",
		b.Updated, b.Unchanged, len(b.Missing))
	if b.Source != nil {
		line = fmt.Sprintf("%s (%d pages): %s", b.Source.Key, b.Pages, line)
	}
	return b.AnswerReport.Summary() + "\n" + line
}

// NewMatchCmd creates the offline match command.
func NewMatchCmd() *cobra.Command {
	var school, candidatesPath, partsPath string
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match answer-key entries to question parts without storing anything",
		Long: `Match binds answer-key candidates (JSON: raw_key, value) to question parts
(JSON as printed by "split -o json"). Keys such as "P2_6" bind to an unlettered
part, or to every lettered part of question 6 as a partial match.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if candidatesPath == "-" && partsPath == "-" {
				return errors.InvalidParam("only one of --candidates and --parts can read stdin")
			}
			candidates, err := readJSONList[answerkey.Candidate](cmd, candidatesPath)
			if err != nil {
				return err
			}
			parts, err := readJSONList[question.Part](cmd, partsPath)
			if err != nil {
				return err
			}
			svc, err := cc.OfflineServices()
			if err != nil {
				return err
			}
			return PrintResult(cmd, newAnswerReport(svc.Answers.Match(school, candidates, parts)))
		},
	}
	cmd.Flags().StringVar(&school, "school", "", "school, for printed key numbering")
	cmd.Flags().StringVar(&candidatesPath, "candidates", "", "answer-key candidates JSON file (required)")
	cmd.Flags().StringVar(&partsPath, "parts", "", "question parts JSON file (required)")
	_ = cmd.MarkFlagRequired("candidates")
	_ = cmd.MarkFlagRequired("parts")
	return cmd
}

// NewAnswersCmd creates the answers command group.
func NewAnswersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answers",
		Short: "Bind answer keys to stored question parts",
	}
	cmd.AddCommand(newAnswersBindCmd(), newAnswersImportCmd())
	return cmd
}

type paperFlags struct {
	school    string
	year      int
	section   string
	overwrite bool
}

func (p *paperFlags) register(cmd *cobra.Command, sectionHelp string) {
	cmd.Flags().StringVar(&p.school, "school", "", "school (required)")
	cmd.Flags().IntVar(&p.year, "year", 0, "paper year (required)")
	cmd.Flags().StringVar(&p.section, "section", "", sectionHelp)
	cmd.Flags().BoolVar(&p.overwrite, "overwrite", false, "replace existing answers (default from pipeline.overwrite_answers)")
	_ = cmd.MarkFlagRequired("school")
	_ = cmd.MarkFlagRequired("year")
}

// overwriteFlag is nil unless --overwrite was given, leaving the configured
// default in force.
func (p *paperFlags) overwriteFlag(cmd *cobra.Command) *bool {
	if !cmd.Flags().Changed("overwrite") {
		return nil
	}
	v := p.overwrite
	return &v
}

func newAnswersBindCmd() *cobra.Command {
	var pf paperFlags
	cmd := &cobra.Command{
		Use:   "bind [FILE]",
		Short: "Write answer-key candidates to the stored parts of a paper",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			candidates, err := readJSONList[answerkey.Candidate](cmd, argOrStdin(args))
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

			res, err := svc.Answers.Bind(ctx, answers.BindRequest{
				School:     pf.school,
				Year:       pf.year,
				Section:    pf.section,
				Candidates: candidates,
				Overwrite:  pf.overwriteFlag(cmd),
			})
			if res != nil {
				if perr := PrintResult(cmd, newBindOutput(*res)); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}
	pf.register(cmd, "only parts of this section")
	return cmd
}

func newAnswersImportCmd() *cobra.Command {
	var (
		pf    paperFlags
		file  string
		key   string
		store bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Extract an answer-key PDF and bind it to the stored parts",
		Long: `Import reads an answer-key PDF from --file, or from object storage by --key,
extracts the "P2_6 ... answer" entries page by page and binds them like
"answers bind". With --store a local file is uploaded to object storage first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if (file == "") == (key == "") {
				return errors.InvalidParam("exactly one of --file and --key is required")
			}
			req := answers.ImportRequest{
				School:         pf.school,
				Year:           pf.year,
				DefaultSection: strings.TrimSpace(pf.section),
				SourceKey:      key,
				Overwrite:      pf.overwriteFlag(cmd),
			}
			if file != "" {
				if req.Data, err = readInput(cmd, file); err != nil {
					return err
				}
				req.Filename = filepath.Base(file)
				req.Store = store
			}

			ctx, cancel := cc.Context(cmd)
			defer cancel()
			svc, done, err := cc.Services(ctx)
			if err != nil {
				return err
			}
			defer done()

			res, err := svc.Answers.Import(ctx, req)
			if res != nil {
				out := newBindOutput(res.BindResult)
				out.Source, out.Pages, out.Keys = res.Source, res.Pages, res.Candidates
				if perr := PrintResult(cmd, out); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}
	pf.register(cmd, "section assumed until the key names one")
	cmd.Flags().StringVar(&file, "file", "", "local answer-key PDF")
	cmd.Flags().StringVar(&key, "key", "", "object key of a stored answer-key PDF")
	cmd.Flags().BoolVar(&store, "store", false, "upload --file to object storage before importing")
	return cmd
}

//Personal.AI order the ending
