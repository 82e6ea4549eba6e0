package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	treemanifest "github.com/CuylerR/Meta-sapling-OS"
)

var pullCmd = &cobra.Command{
	Use:   "pull <image>",
	Short: "Pull from remote registry",
	Long:  "Pull a manifest's directories from an OCI registry into the local store.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPull,
}

func init() {
	pullCmd.Flags().String("ref", "", "ref to point at the pulled root")
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) error {
	ref, _ := cmd.Flags().GetString("ref")

	return withStore(func(s store) error {
		r, err := newRemote(args[0])
		if err != nil {
			return err
		}
		opts, err := manifestOptions()
		if err != nil {
			return err
		}

		logrus.Infof("Pulling %s", r)
		m, err := treemanifest.Pull(cmd.Context(), s, r, opts...)
		if err != nil {
			return fmt.Errorf("pull failed: %w", err)
		}

		root, _ := m.Node()
		if ref != "" {
			if err := s.PutRef(ref, root); err != nil {
				return fmt.Errorf("update ref %q: %w", ref, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", root.Hex())
		return nil
	})
}
