package internal

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/hdfs-sys/internal/env"
	"github.com/goplus/hdfs-sys/internal/errs"
	"github.com/goplus/hdfs-sys/internal/fetch"
	"github.com/goplus/hdfs-sys/internal/vcs"
	"github.com/goplus/hdfs-sys/internal/version"
)

var (
	vendorRemote  string
	vendorArchive bool
	vendorGit     string
)

var vendorCmd = &cobra.Command{
	Use:   "vendor",
	Short: "Manage vendored libhdfs sources",
}

var vendorFetchCmd = &cobra.Command{
	Use:   "fetch [version...]",
	Short: "Fetch libhdfs sources from Apache Hadoop releases",
	Long: `Fetch copies libhdfs out of the newest patch release of each version
into the vendor directory. Versions default to the enabled features.`,
	Example: `  hdfs-sys vendor fetch hdfs_3_3 2.10`,
	RunE:    runVendorFetch,
}

var vendorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the supported versions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range version.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	f := vendorFetchCmd.Flags()
	f.StringVar(&vendorRemote, "remote", "", "git remote to fetch from (default fetch.repo)")
	f.BoolVar(&vendorArchive, "archive", false, "store each version as a .tar.xz archive")
	f.StringVar(&vendorGit, "git", "git", "git executable")
	vendorCmd.AddCommand(vendorFetchCmd, vendorListCmd)
	rootCmd.AddCommand(vendorCmd)
}

func runVendorFetch(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		names = cfg.Features
	}
	if len(names) == 0 {
		return &errs.ConfigurationError{Kind: errs.ErrNoVersionSelected, Msg: "pass versions or enable features"}
	}
	tags := make([]version.Tag, 0, len(names))
	for _, n := range names {
		tag, ok := version.Parse(n)
		if !ok {
			return &errs.ConfigurationError{Kind: errs.ErrUnknownVersion, Flags: []string{n}}
		}
		tags = append(tags, tag)
	}

	vendorDir := cfg.VendorDir
	if vendorDir == "" {
		dir, err := env.SourceDir()
		if err != nil {
			return err
		}
		vendorDir = dir
	}
	remote := vendorRemote
	if remote == "" {
		remote = cfg.Fetch.Repo
	}
	f := &fetch.Fetcher{
		VCS:       vcs.NewGitVCS(vcs.WithGitPath(vendorGit)),
		Remote:    remote,
		VendorDir: vendorDir,
		Archive:   vendorArchive,
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Fetch.Timeout)
	defer cancel()
	for _, tag := range tags {
		res, err := f.Fetch(ctx, tag)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", tag, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", res.Version, res.Ref, res.Path)
	}
	return nil
}
