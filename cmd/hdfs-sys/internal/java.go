package internal

import (
	"github.com/spf13/cobra"

	"github.com/goplus/hdfs-sys/internal/java"
)

var javaFormat string

var javaCmd = &cobra.Command{
	Use:   "java",
	Short: "Locate the Java runtime",
	Long: `Java prints the Java home, JVM library directories and JNI header
directories that would be used, and which lookup step found them.`,
	Args: cobra.NoArgs,
	RunE: runJava,
}

func init() {
	javaCmd.Flags().StringVarP(&javaFormat, "format", "f", "yaml", "output format: yaml or json")
	rootCmd.AddCommand(javaCmd)
}

func runJava(cmd *cobra.Command, args []string) error {
	target, err := configTarget()
	if err != nil {
		return err
	}
	l := &java.Locator{Override: cfg.JavaHome, Target: target}
	jenv, err := l.Locate()
	if err != nil {
		return err
	}
	return encode(cmd.OutOrStdout(), javaFormat, jenv)
}
