package cli

import (
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/QuestionBank/internal/domain/numbering"
)

// NumberResult is one normalized printed number.
type NumberResult struct {
	Raw       string `json:"raw"`
	Section   string `json:"section"`
	Canonical int    `json:"canonical,omitempty"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NumberResults keeps input order.
type NumberResults []NumberResult

func (r NumberResults) TableHeaders() []string {
	return []string{"Raw", "Section", "Canonical", "Status"}
}

func (r NumberResults) TableRows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, n := range r {
		canonical, status := "", okMark(true)
		if n.Error != "" {
			status = color.RedString("%s %s", n.Code, n.Error)
		} else {
			canonical = strconv.Itoa(n.Canonical)
		}
		rows = append(rows, []string{n.Raw, n.Section, canonical, status})
	}
	return rows
}

func (r NumberResults) Summary() string {
	failed := 0
	for _, n := range r {
		if n.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return color.YellowString("%d of %d numbers rejected", failed, len(r))
	}
	return ""
}

// NewNormalizeCmd creates the normalize command.
func NewNormalizeCmd() *cobra.Command {
	var school, section string
	cmd := &cobra.Command{
		Use:   "normalize RAW...",
		Short: "Map printed question numbers to canonical section numbers",
		Long: `Normalize maps printed numbers such as "Q16" to the canonical number within
the section, applying the school's numbering rule or the section default.
Numbers of one call that collide are all rejected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			core, err := cc.Core()
			if err != nil {
				return err
			}

			nums, failed := core.Numbers.NormalizeBatch(school, section, args)
			results := make(NumberResults, len(args))
			for i, raw := range args {
				results[i] = NumberResult{Raw: raw, Section: numbering.CanonicalSection(section)}
			}
			sort.Slice(failed, func(i, j int) bool { return failed[i].Index < failed[j].Index })
			bad := make(map[int]bool, len(failed))
			for _, fe := range failed {
				if bad[fe.Index] {
					continue
				}
				bad[fe.Index] = true
				results[fe.Index].Code, results[fe.Index].Error = errorCode(fe.Err), errorText(fe.Err)
			}
			// Successful numbers come back in input order, skipping failures.
			next := 0
			for i := range results {
				if bad[i] {
					continue
				}
				if next < len(nums) {
					results[i].Canonical = nums[next].Canonical
					next++
				}
			}

			if err := PrintResult(cmd, results); err != nil {
				return err
			}
			if len(bad) > 0 {
				return ErrCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&school, "school", "", "school whose numbering rule applies")
	cmd.Flags().StringVar(&section, "section", "", "paper section, e.g. P1B (required)")
	_ = cmd.MarkFlagRequired("section")
	return cmd
}

//Personal.AI order the ending
