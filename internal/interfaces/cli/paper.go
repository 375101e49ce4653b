package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/QuestionBank/internal/application/query"
	"github.com/turtacn/QuestionBank/internal/domain/paper"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// PaperReport is the output of paper validate.
type PaperReport struct {
	paper.Report
	School string `json:"school,omitempty"`
	Year   int    `json:"year,omitempty"`
	Valid  bool   `json:"valid"`
}

func (r PaperReport) TableHeaders() []string { return []string{"Section", "Severity", "Finding"} }

func (r PaperReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Sections)+len(r.Issues)+len(r.Warnings))
	for _, sc := range r.Sections {
		status := color.GreenString("%d/%d questions", sc.Found, sc.Expected)
		if sc.Found != sc.Expected {
			status = color.YellowString("%d/%d questions", sc.Found, sc.Expected)
		}
		rows = append(rows, []string{sc.Section, "", status})
	}
	for _, f := range r.Issues {
		rows = append(rows, []string{f.Section, color.RedString("%s", f.Severity), f.String()})
	}
	for _, f := range r.Warnings {
		rows = append(rows, []string{f.Section, color.YellowString("%s", f.Severity), f.String()})
	}
	return rows
}

func (r PaperReport) Summary() string {
	line := fmt.Sprintf("%d issues, %d warnings", len(r.Issues), len(r.Warnings))
	if r.School != "" {
		line = fmt.Sprintf("%s %d: %s", r.School, r.Year, line)
	}
	if !r.Valid {
		return color.RedString("%s", line)
	}
	return color.GreenString("%s", line)
}

// Structures is the output of paper list.
type Structures []paper.Structure

func (s Structures) TableHeaders() []string {
	return []string{"Section", "Name", "Questions", "Marks", "Printed From", "Ranges"}
}

func (s Structures) TableRows() [][]string {
	rows := make([][]string, 0, len(s))
	for _, st := range s {
		ranges := make([]string, 0, len(st.Ranges))
		for _, r := range st.Ranges {
			marks := strconv.Itoa(r.Marks)
			if r.Variable() {
				marks = fmt.Sprintf("%d-%d", r.MinMarks, r.MaxMarks)
			}
			ranges = append(ranges, fmt.Sprintf("Q%d-%d:%s", r.Start, r.End, marks))
		}
		rows = append(rows, []string{
			st.Section,
			st.Name,
			strconv.Itoa(st.TotalQuestions),
			strconv.Itoa(st.TotalMarks),
			fmt.Sprintf("Q%d", st.PDFStartOffset+1),
			strings.Join(ranges, " "),
		})
	}
	return rows
}

// NewPaperCmd creates the paper command group.
func NewPaperCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paper",
		Short: "Inspect paper structures and check papers against them",
	}
	cmd.AddCommand(newPaperValidateCmd(), newPaperListCmd())
	return cmd
}

func newPaperValidateCmd() *cobra.Command {
	var (
		school string
		year   int
		file   string
		opts   paper.ValidateOptions
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check question counts and marks of a paper",
		Long: `Validate checks a paper against the configured section structures: the
number of distinct questions per section and the marks of every question.

Without --file the stored parts of --school and --year are checked. With --file
the parts are read from JSON as printed by "split -o json".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			var report paper.Report
			if file != "" {
				parts, err := readJSONList[question.Part](cmd, file)
				if err != nil {
					return err
				}
				core, err := cc.Core()
				if err != nil {
					return err
				}
				report = core.Catalog.Validate(query.Summaries(parts), opts)
			} else {
				if school == "" || year <= 0 {
					return errors.InvalidParam("--school and --year are required without --file")
				}
				ctx, cancel := cc.Context(cmd)
				defer cancel()
				svc, done, err := cc.Services(ctx)
				if err != nil {
					return err
				}
				defer done()
				if report, err = svc.Query.ValidatePaper(ctx, school, year, opts); err != nil {
					return err
				}
			}

			out := PaperReport{Report: report, School: school, Year: year, Valid: report.Valid()}
			if err := PrintResult(cmd, out); err != nil {
				return err
			}
			if !out.Valid {
				return ErrCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&school, "school", "", "school of the stored paper")
	cmd.Flags().IntVar(&year, "year", 0, "year of the stored paper")
	cmd.Flags().StringVar(&file, "file", "", "check parts from a JSON file instead of the store")
	cmd.Flags().BoolVar(&opts.RequireAllSections, "require-all", false, "report sections with no questions")
	cmd.Flags().BoolVar(&opts.CheckAnswers, "check-answers", false, "warn about questions without answers")
	return cmd
}

func newPaperListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured section structures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			core, err := cc.Core()
			if err != nil {
				return err
			}
			out := make(Structures, 0, len(core.Catalog.Sections()))
			for _, section := range core.Catalog.Sections() {
				st, err := core.Catalog.Lookup(section)
				if err != nil {
					return err
				}
				out = append(out, st)
			}
			return PrintResult(cmd, out)
		},
	}
}

//Personal.AI order the ending
