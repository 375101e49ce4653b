package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/QuestionBank/pkg/errors"
)

// tableData is implemented by every command result.
type tableData interface {
	TableHeaders() []string
	TableRows() [][]string
}

// summarizer adds a one-line summary under table and text output.
type summarizer interface {
	Summary() string
}

// PrintResult writes data to stdout in the selected format.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := OutputJSON
	if cc, err := GetCLIContext(cmd); err == nil {
		format = cc.OutputFormat
	}
	out := cmd.OutOrStdout()

	if format == OutputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}

	td, ok := data.(tableData)
	if !ok {
		_, err := fmt.Fprintf(out, "%+v\n", data)
		return err
	}
	if format == OutputText {
		writeText(out, td.TableRows())
	} else {
		writeTable(out, td.TableHeaders(), td.TableRows())
	}
	if s, ok := data.(summarizer); ok {
		if line := s.Summary(); line != "" {
			fmt.Fprintln(out, line)
		}
	}
	return nil
}

// writeTable renders an aligned table. Empty results print nothing.
func writeTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}

// writeText prints rows tab-separated without a header, for scripts.
func writeText(w io.Writer, rows [][]string) {
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
}

// PrintError writes err to stderr with its code.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil || errors.Is(err, ErrCheckFailed) {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}

// errorCode renders the application code of err, or "" for a nil error.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	return errors.GetCode(err).String()
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	var ae *errors.AppError
	if errors.As(err, &ae) {
		if ae.Detail != "" {
			return ae.Message + ": " + ae.Detail
		}
		return ae.Message
	}
	return err.Error()
}

func okMark(ok bool) string {
	if ok {
		return color.GreenString("ok")
	}
	return color.RedString("FAIL")
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

//Personal.AI order the ending
