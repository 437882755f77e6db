package internal

import (
	"fmt"
	"os"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/goplus/hdfs-sys/internal/config"
)

var (
	configPath string
	verbose    bool
	// cfg is replaced by loadConfig before any command runs.
	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "hdfs-sys",
	Short: "hdfs-sys resolves how to build and link against libhdfs",
	Long: `hdfs-sys selects a libhdfs release line, finds a Java runtime, builds
libhdfs from vendored source or locates an installed copy, and prints the
linker settings needed to use both.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "config file (default hdfs-sys.yaml in . or the user config dir)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringSlice("features", nil, "version features to enable, e.g. hdfs_3_3")
	pf.String("target", "", "target as os/arch or a triple (default host)")
	pf.Bool("vendored", false, "build libhdfs from vendored source")
	pf.Bool("static", false, "link libhdfs statically")
	pf.String("lib-dir", "", "directory of an installed libhdfs")
	pf.String("java-home", "", "Java home, overriding every other lookup")
	pf.String("vendor-dir", "", "directory of vendored libhdfs sources")
	pf.String("work-dir", "", "directory for vendored build outputs")
}

// loadConfig reads the configuration, then applies flags the user set.
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, c); err != nil {
		return err
	}
	if verbose {
		c.Log.Level = "debug"
	}
	log.SetOutputLevel(logLevel(c.Log.Level))
	cfg = c
	return nil
}

func applyFlags(cmd *cobra.Command, c *config.Config) error {
	f := cmd.Flags()
	var err error
	str := func(name string, dst *string) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetBool(name)
		}
	}
	if f.Changed("features") {
		if c.Features, err = f.GetStringSlice("features"); err != nil {
			return err
		}
	}
	str("target", &c.Target)
	str("lib-dir", &c.LibDir)
	str("java-home", &c.JavaHome)
	str("vendor-dir", &c.VendorDir)
	str("work-dir", &c.WorkDir)
	boolean("vendored", &c.Vendored)
	boolean("static", &c.Static)
	if err != nil {
		return err
	}
	return config.Validate(c)
}

func logLevel(level string) int {
	switch level {
	case "debug":
		return log.Ldebug
	case "warn":
		return log.Lwarn
	case "error":
		return log.Lerror
	}
	return log.Linfo
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hdfs-sys:", err)
		os.Exit(1)
	}
}
