package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	treemanifest "github.com/CuylerR/Meta-sapling-OS"
	"github.com/CuylerR/Meta-sapling-OS/flat"
)

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import a flat manifest",
	Long: "Read flat manifest text (v1 or v2) and store it as a tree manifest. " +
		"With --base, directories unchanged since the base are reused and changed ones are delta encoded.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("base", "", "root id or ref of the manifest to write against")
	importCmd.Flags().String("ref", "", "ref to point at the new root")
	importCmd.Flags().Bool("no-deltas", false, "store every directory in full")
	rootCmd.AddCommand(importCmd)
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	fm, err := flat.Parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	baseArg, _ := cmd.Flags().GetString("base")
	ref, _ := cmd.Flags().GetString("ref")
	noDeltas, _ := cmd.Flags().GetBool("no-deltas")

	return withStore(func(s store) error {
		opts, err := manifestOptions()
		if err != nil {
			return err
		}

		m := treemanifest.New(s, opts...)
		var writeOpts []treemanifest.WriteOption
		if baseArg != "" {
			base, err := loadManifest(s, baseArg)
			if err != nil {
				return err
			}
			m = base.Copy()
			keys, err := m.Keys()
			if err != nil {
				return err
			}
			for _, k := range keys {
				if _, ok := fm.Get(k); !ok {
					if err := m.Remove(k); err != nil {
						return err
					}
				}
			}
			writeOpts = append(writeOpts, treemanifest.WithBase(base))
		}
		if noDeltas {
			writeOpts = append(writeOpts, treemanifest.WithoutDeltas())
		}

		for r := range fm.Records() {
			if err := m.Set(r.Path, r.Node, treemanifest.Flag(r.Flag)); err != nil {
				return err
			}
		}

		root, err := m.Write(cmd.Context(), s, writeOpts...)
		if err != nil {
			return err
		}
		if ref != "" {
			if err := s.PutRef(ref, root); err != nil {
				return fmt.Errorf("update ref %q: %w", ref, err)
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), root.Hex())
		return nil
	})
}
