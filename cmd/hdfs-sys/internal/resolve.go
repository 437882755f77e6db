package internal

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goplus/hdfs-sys/internal/env"
	"github.com/goplus/hdfs-sys/internal/java"
	"github.com/goplus/hdfs-sys/internal/pipeline"
	"github.com/goplus/hdfs-sys/internal/platform"
	"github.com/goplus/hdfs-sys/pkgs/buildsys/cmake"
)

var resolveFormat string

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Run every stage and print what was resolved",
	Long: `Resolve selects the version, finds Java, decides the library mode,
builds vendored sources when requested and prints the result, including the
link plan.`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", "yaml", "output format: yaml or json")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	opts, err := pipelineOptions(cmd)
	if err != nil {
		return err
	}
	res, err := pipeline.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}
	return encode(cmd.OutOrStdout(), resolveFormat, res)
}

// pipelineOptions maps the loaded configuration onto pipeline options.
func pipelineOptions(cmd *cobra.Command) (*pipeline.Options, error) {
	target, err := configTarget()
	if err != nil {
		return nil, err
	}
	vendorDir := cfg.VendorDir
	if vendorDir == "" {
		dir, err := env.SourceDir()
		if err != nil {
			return nil, err
		}
		vendorDir = dir
	}
	opts := &pipeline.Options{
		Versions:   cfg.Features,
		Vendored:   cfg.Vendored,
		Static:     cfg.Static,
		Target:     target,
		VendorDir:  vendorDir,
		WorkDir:    cfg.WorkDir,
		LibDir:     cfg.LibDir,
		HadoopHome: cfg.HadoopHome,
		Java:       java.Locator{Override: cfg.JavaHome},
		Tool: &cmake.Tool{
			Bin:       cfg.CMake.Bin,
			Generator: cfg.CMake.Generator,
			BuildType: cfg.CMake.BuildType,
		},
	}
	if verbose {
		opts.Stdout = cmd.ErrOrStderr()
	}
	return opts, nil
}

func configTarget() (platform.Target, error) {
	if cfg.Target == "" {
		return platform.HostTarget(), nil
	}
	return platform.ParseTarget(cfg.Target)
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown format %q", format)
}
