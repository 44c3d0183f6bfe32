package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"ledgerview/internal/results"
)

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare [amounts...]",
		Short: "Compare the two halves of a chronological series of amounts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printComparison(cmd.OutOrStdout(), args)
		},
	}
}

func printComparison(w io.Writer, amounts []string) error {
	series := make([]results.TimeSeriesPoint, 0, len(amounts))
	for i, a := range amounts {
		n := results.ParseNumber(a)
		if !n.Valid() {
			return fmt.Errorf("amount %d: %q is not a number", i+1, a)
		}
		series = append(series, results.TimeSeriesPoint{Date: strconv.Itoa(i + 1), Amount: n})
	}

	report := results.Compare(series)
	fmt.Fprintf(w, "Previous period: %s (%d points)\n", results.NumberOf(report.PreviousTotal).Currency(), report.PreviousPoints)
	fmt.Fprintf(w, "Current period:  %s (%d points)\n", results.NumberOf(report.CurrentTotal).Currency(), report.CurrentPoints)
	fmt.Fprintf(w, "Change:          %s\n", report.ChangeLabel())
	return nil
}
