// crosstab produces weighted, significance-tested crosstabulation
// reports from survey exports, driven by a declarative study file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	studyFile  string
	outputFile string
	runID      string
)

var rootCmd = &cobra.Command{
	Use:   "crosstab",
	Short: "Weighted survey crosstabulation with significance testing",
	Long: `crosstab reads a survey export (xlsx or csv) and a declarative study
file, then produces banner tables with design-weighted frequencies,
percentages, summary statistics, pairwise significance letters and
chi-square tests.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&studyFile, "study", "s", "study.yaml", "study definition file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	Execute()
}
