package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/QuestionBank/internal/application/classify"
	"github.com/turtacn/QuestionBank/internal/domain/classification"
)

// ReconcileResult is one reconciled proposal.
type ReconcileResult struct {
	classification.Result
	Part   string `json:"part,omitempty"`
	Stored *bool  `json:"stored,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ReconcileResults is the output of reconcile.
type ReconcileResults []ReconcileResult

func (r ReconcileResults) TableHeaders() []string {
	return []string{"#", "Topics", "Heuristics", "Confidence", "Review", "Dropped"}
}

func (r ReconcileResults) TableRows() [][]string {
	rows := make([][]string, 0, len(r))
	for i, res := range r {
		ref := strconv.Itoa(i)
		if res.Part != "" {
			ref = res.Part
		}
		review := ""
		if res.NeedsReview {
			review = color.YellowString("%s", strings.Join(res.ReviewReasons, ","))
		}
		if res.Error != "" {
			review = color.RedString("%s", res.Error)
		} else if res.Stored != nil && !*res.Stored {
			review = strings.TrimPrefix(review+",not stored", ",")
		}
		dropped := make([]string, 0, len(res.Dropped))
		for _, d := range res.Dropped {
			dropped = append(dropped, fmt.Sprintf("%s (%s)", d.Raw, d.Reason))
		}
		rows = append(rows, []string{
			ref,
			strings.Join(res.Topics, ", "),
			strings.Join(res.Heuristics, ", "),
			strconv.FormatFloat(res.Confidence, 'f', 2, 64),
			review,
			strings.Join(dropped, ", "),
		})
	}
	return rows
}

func (r ReconcileResults) Summary() string {
	review := 0
	for _, res := range r {
		if res.NeedsReview {
			review++
		}
	}
	if review > 0 {
		return color.YellowString("%d of %d need review", review, len(r))
	}
	return color.GreenString("%d reconciled", len(r))
}

// NewReconcileCmd creates the reconcile command.
func NewReconcileCmd() *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "reconcile [FILE]",
		Short: "Resolve classifier proposals against the vocabulary",
		Long: `Reconcile reads classifier proposals (proposed_topics, proposed_heuristics,
confidence) and prints the validated tags with every dropped label.

With --apply the input holds items of the form {"identity": {...}, "proposal": {...}}
and the tags are written to the stored parts. Parts edited by hand keep their tags.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if apply {
				return applyProposals(cmd, cc, argOrStdin(args))
			}

			proposals, err := readJSONList[classification.Proposal](cmd, argOrStdin(args))
			if err != nil {
				return err
			}
			svc, err := cc.OfflineServices()
			if err != nil {
				return err
			}
			results := svc.Classify.ReconcileAll(proposals)
			out := make(ReconcileResults, len(results))
			for i, res := range results {
				out[i] = ReconcileResult{Result: res}
			}
			return PrintResult(cmd, out)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "store the tags on the identified parts")
	return cmd
}

func applyProposals(cmd *cobra.Command, cc *CLIContext, path string) error {
	items, err := readJSONList[classify.Item](cmd, path)
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

	outcomes, err := svc.Classify.Apply(ctx, items)
	out := make(ReconcileResults, len(outcomes))
	for i, o := range outcomes {
		stored := o.Stored
		out[i] = ReconcileResult{Result: o.Result, Part: o.Identity.String(), Stored: &stored}
		if o.Err != nil {
			out[i].Error = errorText(o.Err)
		}
	}
	if perr := PrintResult(cmd, out); perr != nil && err == nil {
		err = perr
	}
	return err
}

//Personal.AI order the ending
