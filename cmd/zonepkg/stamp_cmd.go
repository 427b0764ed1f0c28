package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oxidecomputer/zonepkg/pkg/stamp"
)

func newStampCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "stamp <archive> <version>",
		Short: "Rewrite the embedded version of an already-built archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archivePath, version := args[0], args[1]

			var stamped string
			var err error
			switch {
			case strings.HasSuffix(archivePath, ".tar.gz"):
				if name == "" {
					return fmt.Errorf("stamping a zone archive requires --name")
				}
				stamped, err = stamp.Zone(cmd.Context(), archivePath, name, version)
			case strings.HasSuffix(archivePath, ".tar"):
				stamped, err = stamp.Tarball(cmd.Context(), archivePath, version)
			default:
				return fmt.Errorf("cannot infer archive kind from %q; expected .tar or .tar.gz", archivePath)
			}
			if err != nil {
				return err
			}
			fmt.Println(stamped)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "package name embedded in a zone archive's manifest (required for .tar.gz)")
	return cmd
}
