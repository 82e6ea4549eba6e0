package cmd

import (
	"github.com/spf13/cobra"

	"github.com/CuylerR/Meta-sapling-OS/flat"
)

var catCmd = &cobra.Command{
	Use:   "cat <root|ref>",
	Short: "Print the flat manifest text",
	Long:  "Render a manifest as flat manifest text, byte-identical to the flat format.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCat,
}

func init() {
	catCmd.Flags().Bool("v2", false, "use the v2 text format")
	rootCmd.AddCommand(catCmd)
}

func runCat(cmd *cobra.Command, args []string) error {
	v2, _ := cmd.Flags().GetBool("v2")
	format := flat.V1
	if v2 {
		format = flat.V2
	}

	return withStore(func(s store) error {
		m, err := loadManifest(s, args[0])
		if err != nil {
			return err
		}
		text, err := m.Text(format)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(text)
		return err
	})
}
