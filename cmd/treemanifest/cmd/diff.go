package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Compare two manifests",
	Long:  "Print added (A), removed (R) and modified (M) files between two manifests.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().Bool("clean", false, "also print unchanged files (C)")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	clean, _ := cmd.Flags().GetBool("clean")
	out := cmd.OutOrStdout()

	return withStore(func(s store) error {
		a, err := loadManifest(s, args[0])
		if err != nil {
			return err
		}
		b, err := loadManifest(s, args[1])
		if err != nil {
			return err
		}

		changes, err := a.Diff(b, clean)
		if err != nil {
			return err
		}

		paths := make([]string, 0, len(changes))
		for p := range changes {
			paths = append(paths, p)
		}
		slices.Sort(paths)

		for _, p := range paths {
			c := changes[p]
			switch {
			case c == nil:
				fmt.Fprintf(out, "C %s\n", p)
			case !c.Old.Present():
				fmt.Fprintf(out, "A %s\n", p)
			case !c.New.Present():
				fmt.Fprintf(out, "R %s\n", p)
			default:
				fmt.Fprintf(out, "M %s\n", p)
			}
		}
		return nil
	})
}
