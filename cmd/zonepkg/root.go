package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oxidecomputer/zonepkg/internal/dcontext"
)

// rootFlags holds the options shared by every subcommand.
type rootFlags struct {
	manifestPath string
	outputDir    string
	downloadDir  string
	targetStr    string
	version      string
	noCache      bool
	verbose      bool
	s3URL        string
	buildomatURL string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "zonepkg",
		Short: "Build zone images and tarballs from a package manifest",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
			entry := logrus.NewEntry(logrus.StandardLogger()).WithField("command", cmd.Name())
			cmd.SetContext(dcontext.WithLogger(cmd.Context(), entry))
		},
	}

	root.PersistentFlags().StringVarP(&flags.manifestPath, "manifest", "m", "package-manifest.toml", "path to the package manifest")
	root.PersistentFlags().StringVarP(&flags.outputDir, "output-dir", "o", "out", "directory built archives are written to")
	root.PersistentFlags().StringVar(&flags.downloadDir, "download-dir", "out/download", "directory downloaded blobs are staged in")
	root.PersistentFlags().StringVarP(&flags.targetStr, "target", "t", "", "target selection, as whitespace-separated key=value pairs")
	root.PersistentFlags().StringVar(&flags.version, "version", "", "version string stamped into built packages")
	root.PersistentFlags().BoolVar(&flags.noCache, "no-cache", false, "rebuild every package, ignoring the manifest cache")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&flags.s3URL, "s3-url", "https://oxide-omicron-build.s3.amazonaws.com", "base URL blobs are fetched from")
	root.PersistentFlags().StringVar(&flags.buildomatURL, "buildomat-url", "https://buildomat.eng.oxide.computer", "base URL Buildomat artifacts are fetched from")

	root.AddCommand(newBuildCommand(flags))
	root.AddCommand(newPlanCommand(flags))
	root.AddCommand(newStampCommand())

	return root
}
