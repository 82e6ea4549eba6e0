package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	treemanifest "github.com/CuylerR/Meta-sapling-OS"
	"github.com/CuylerR/Meta-sapling-OS/internal/remote"
)

var pushCmd = &cobra.Command{
	Use:   "push <root|ref> <image> [tags...]",
	Short: "Push to remote registry",
	Long:  "Push every directory of a written manifest to an OCI registry. Optionally push to additional tags.",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func newRemote(image string) (*remote.OCIRemote, error) {
	r, err := remote.NewOCIRemote(image, remote.NewDefaultAuthenticator())
	if err != nil {
		return nil, err
	}
	r.SetConcurrency(viper.GetInt("remote.concurrency"))
	r.SetLogger(logrus.StandardLogger())
	return r, nil
}

func runPush(cmd *cobra.Command, args []string) error {
	image, tags := args[1], args[2:]

	return withStore(func(s store) error {
		m, err := loadManifest(s, args[0])
		if err != nil {
			return err
		}
		r, err := newRemote(image)
		if err != nil {
			return err
		}

		logrus.Infof("Pushing %s to %s", args[0], r)
		root, err := treemanifest.Push(cmd.Context(), m, r)
		if err != nil {
			return fmt.Errorf("push failed: %w", err)
		}

		for _, tag := range tags {
			tagged, err := r.WithTag(tag)
			if err != nil {
				return err
			}
			if _, err := treemanifest.Push(cmd.Context(), m, tagged); err != nil {
				return fmt.Errorf("push %s failed: %w", tag, err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", root.Hex())
		return nil
	})
}
