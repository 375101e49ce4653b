package cli

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/domain/taxonomy"
)

// LabelResult is one looked-up label.
type LabelResult struct {
	Label     string             `json:"label"`
	Category  taxonomy.Category  `json:"category"`
	Canonical string             `json:"canonical,omitempty"`
	Kind      taxonomy.MatchKind `json:"kind,omitempty"`
	Score     float64            `json:"score,omitempty"`
	Code      string             `json:"code,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// LabelResults is the output of taxonomy validate and match.
type LabelResults []LabelResult

func (r LabelResults) TableHeaders() []string {
	return []string{"Label", "Category", "Canonical", "Kind", "Score", "Status"}
}

func (r LabelResults) TableRows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, l := range r {
		score := ""
		if l.Error == "" {
			score = strconv.FormatFloat(l.Score, 'f', 3, 64)
		}
		status := okMark(l.Error == "")
		if l.Error != "" {
			status = color.RedString("%s", l.Error)
		}
		rows = append(rows, []string{l.Label, string(l.Category), l.Canonical, string(l.Kind), score, status})
	}
	return rows
}

func (r LabelResults) failed() int {
	n := 0
	for _, l := range r {
		if l.Error != "" {
			n++
		}
	}
	return n
}

func (r LabelResults) Summary() string {
	if n := r.failed(); n > 0 {
		return color.YellowString("%d of %d labels not accepted", n, len(r))
	}
	return color.GreenString("%d labels accepted", len(r))
}

// Vocabulary is the output of taxonomy list.
type Vocabulary struct {
	Threshold float64          `json:"fuzzy_threshold"`
	Metric    string           `json:"similarity"`
	Entries   []taxonomy.Entry `json:"entries"`
}

func (v Vocabulary) TableHeaders() []string { return []string{"Category", "Label"} }

func (v Vocabulary) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Entries))
	for _, e := range v.Entries {
		rows = append(rows, []string{string(e.Category), e.Label})
	}
	return rows
}

func (v Vocabulary) Summary() string {
	return fmt.Sprintf("%d labels, %s similarity, threshold %.2f", len(v.Entries), v.Metric, v.Threshold)
}

// AuditResult is the output of taxonomy audit.
type AuditResult struct {
	taxonomy.AuditReport
}

func (a AuditResult) TableHeaders() []string { return []string{"Part", "Category", "Label"} }

func (a AuditResult) TableRows() [][]string {
	rows := make([][]string, 0, len(a.Invalid))
	for _, it := range a.Invalid {
		rows = append(rows, []string{it.Ref, string(it.Category), it.Label})
	}
	return rows
}

func (a AuditResult) Summary() string {
	line := fmt.Sprintf("%d parts checked, %d valid, %d untagged, %d invalid labels",
		a.Total, a.Valid, a.Untagged, len(a.Invalid))
	if len(a.Invalid) > 0 {
		return color.YellowString("%s", line)
	}
	return color.GreenString("%s", line)
}

// NewTaxonomyCmd creates the taxonomy command group.
func NewTaxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Look up and audit topic and heuristic labels",
	}
	cmd.AddCommand(newTaxonomyLookupCmd(true), newTaxonomyLookupCmd(false), newTaxonomyListCmd(), newTaxonomyAuditCmd())
	return cmd
}

// newTaxonomyLookupCmd builds "validate" (exact labels only) or "match"
// (exact, alias, then fuzzy).
func newTaxonomyLookupCmd(exact bool) *cobra.Command {
	var category string
	use, short := "match LABEL...", "Resolve labels through aliases and fuzzy matching"
	if exact {
		use, short = "validate LABEL...", "Check that labels are canonical vocabulary entries"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cat, err := taxonomy.ParseCategory(category)
			if err != nil {
				return err
			}
			core, err := cc.Core()
			if err != nil {
				return err
			}

			results := make(LabelResults, 0, len(args))
			for _, label := range args {
				res := LabelResult{Label: label, Category: cat}
				var m taxonomy.Match
				if exact {
					var e taxonomy.Entry
					if e, err = core.Registry.Validate(label, cat); err == nil {
						m = taxonomy.Match{Entry: e, Kind: taxonomy.MatchExact, Score: 1}
					}
				} else {
					m, err = core.Registry.Resolve(label, cat)
				}
				if err != nil {
					res.Code, res.Error = errorCode(err), errorText(err)
				} else {
					res.Canonical, res.Kind, res.Score = m.Entry.Label, m.Kind, m.Score
				}
				results = append(results, res)
			}

			if err := PrintResult(cmd, results); err != nil {
				return err
			}
			if results.failed() > 0 {
				return ErrCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", string(taxonomy.CategoryTopic), "label category: topic or heuristic")
	return cmd
}

func newTaxonomyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [CATEGORY]",
		Short: "List the canonical vocabulary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			core, err := cc.Core()
			if err != nil {
				return err
			}
			cats := []taxonomy.Category{taxonomy.CategoryTopic, taxonomy.CategoryHeuristic}
			if len(args) == 1 {
				c, err := taxonomy.ParseCategory(args[0])
				if err != nil {
					return err
				}
				cats = []taxonomy.Category{c}
			}

			v := Vocabulary{Threshold: core.Registry.Threshold(), Metric: core.Registry.Metric().String()}
			for _, c := range cats {
				v.Entries = append(v.Entries, core.Registry.Entries(c)...)
			}
			return PrintResult(cmd, v)
		},
	}
}

func newTaxonomyAuditCmd() *cobra.Command {
	var f question.Filter
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check stored tags against the current vocabulary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
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

			report, err := svc.Query.AuditTags(ctx, f)
			if err != nil {
				return err
			}
			if err := PrintResult(cmd, AuditResult{report}); err != nil {
				return err
			}
			if len(report.Invalid) > 0 {
				return ErrCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.School, "school", "", "only parts of this school")
	cmd.Flags().IntVar(&f.Year, "year", 0, "only parts of this year")
	cmd.Flags().StringVar(&f.Section, "section", "", "only parts of this section")
	return cmd
}

//Personal.AI order the ending
