// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wundergraph/go-hybridlist/internal/workload"
)

var (
	runConfig   string
	runParallel int
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().StringVarP(&runConfig, "config", "c", "", "YAML workload file (default: built-in workloads)")
	cmd.Flags().IntVarP(&runParallel, "parallel", "p", -1, "Maximum workloads running at once (overrides the file)")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run append workloads",
		Long: `The run command executes every workload, checking each element after
the appends, and prints one line per workload.

Example:
  hlistbench run
  hlistbench run --config workloads.yaml --parallel 4
  hlistbench run --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := workload.Default()
			if runConfig != "" {
				var err error
				if cfg, err = workload.Load(runConfig); err != nil {
					return err
				}
			}
			if runParallel >= 0 {
				cfg.Parallel = runParallel
			}

			results, err := workload.RunAll(cmd.Context(), cfg, newLogger())
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), results)
			}
			return printTable(cmd.OutOrStdout(), results)
		},
	}
}

func printJSON(w io.Writer, results []workload.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func printTable(w io.Writer, results []workload.Result) error {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "WORKLOAD\tALLOCATOR\tLEN\tBLOCKS\tCAPACITY\tHEAP\tREPEAT\tREUSED\tTIME\t")
	for _, r := range results {
		reused := "-"
		if r.Allocator == workload.AllocatorRecycling {
			reused = p.Sprintf("%d/%d", r.RecycledHits, r.RecycledHits+r.RecycledMisses)
		}
		fmt.Fprintln(tw, p.Sprintf("%s\t%s\t%d\t%d\t%d\t%t\t%d\t%s\t%v\t",
			r.Name, r.Allocator, r.Len, r.Blocks, r.Capacity, r.OnHeap, r.Repeat, reused, r.Duration))
	}
	return tw.Flush()
}
