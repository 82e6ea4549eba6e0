package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	treemanifest "github.com/CuylerR/Meta-sapling-OS"
)

var listCmd = &cobra.Command{
	Use:     "list <root|ref> [dir]",
	Aliases: []string{"ls"},
	Short:   "List files in a manifest",
	Long:    "List every file of a manifest, or only the names directly inside dir.",
	Args:    cobra.RangeArgs(1, 2),
	RunE:    runList,
}

func init() {
	listCmd.Flags().Bool("dirs", false, "list directories instead of files")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	dirs, _ := cmd.Flags().GetBool("dirs")
	out := cmd.OutOrStdout()

	return withStore(func(s store) error {
		m, err := loadManifest(s, args[0])
		if err != nil {
			return err
		}

		switch {
		case len(args) > 1:
			names, err := m.ListDir(args[1])
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
		case dirs:
			paths, err := m.Dirs()
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(out, p)
			}
		default:
			count := 0
			for e, err := range m.Entries() {
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", e.Node, flagString(e.Flag), e.Path)
				count++
			}
			if count == 0 {
				fmt.Fprintln(out, "(no entries)")
			}
		}
		return nil
	})
}

func flagString(f treemanifest.Flag) string {
	switch f {
	case treemanifest.FlagNone:
		return "-"
	case "\x00":
		return "\\0"
	}
	return string(f)
}
