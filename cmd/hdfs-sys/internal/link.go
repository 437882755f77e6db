package internal

import (
	"fmt"
	"strings"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/goplus/hdfs-sys/internal/linkplan"
	"github.com/goplus/hdfs-sys/internal/pipeline"
)

var linkFormat string

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Print the linker settings for libhdfs and the JVM",
	Long: `Link resolves everything and prints the link plan.

Formats:
  cgo    CGO_CFLAGS and CGO_LDFLAGS assignments
  cargo  cargo build-script directives
  yaml   the plan as YAML
  json   the plan as JSON`,
	Args: cobra.NoArgs,
	RunE: runLink,
}

func init() {
	linkCmd.Flags().StringVarP(&linkFormat, "format", "f", "cgo", "output format: cgo, cargo, yaml or json")
	rootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	if cfg.SkipLink {
		log.Infof("link: skipped by configuration")
		return nil
	}
	opts, err := pipelineOptions(cmd)
	if err != nil {
		return err
	}
	res, err := pipeline.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}
	return printPlan(cmd, res)
}

func printPlan(cmd *cobra.Command, res *pipeline.Result) error {
	w := cmd.OutOrStdout()
	switch linkFormat {
	case "cgo":
		fmt.Fprintf(w, "CGO_CFLAGS=%q\n", linkplan.CgoCFLAGS(res.HeaderDirs))
		fmt.Fprintf(w, "CGO_LDFLAGS=%q\n", res.Plan.CgoLDFLAGS())
	case "cargo":
		fmt.Fprintln(w, strings.Join(res.Plan.Directives(), "\n"))
	default:
		return encode(w, linkFormat, res.Plan)
	}
	return nil
}
