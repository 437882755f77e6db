package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/hdfs-sys/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build libhdfs from vendored source",
	Long: `Build compiles the vendored libhdfs sources for the selected version
and target and prints the directory holding the result. A previous build is
reused when nothing changed.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	opts, err := pipelineOptions(cmd)
	if err != nil {
		return err
	}
	opts.Vendored = true
	opts.NoLink = true
	res, err := pipeline.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}
	if res.Artifact == nil {
		// An explicit library directory takes precedence over vendoring.
		return fmt.Errorf("nothing built: using %s", res.Mode)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Artifact.Dir)
	return nil
}
