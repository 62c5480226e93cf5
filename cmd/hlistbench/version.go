// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	hybridlist "github.com/wundergraph/go-hybridlist"
)

const version = "0.1.0"

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version and platform information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hlistbench %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(out, "page size:      %d\n", hybridlist.PageSize())
			fmt.Fprintf(out, "block size:     %d\n", hybridlist.DefaultBlockSize)
			fmt.Fprintf(out, "growth factor:  %d\n", hybridlist.DefaultGrowthFactor)
		},
	})
}
