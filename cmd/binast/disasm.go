package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/binast/codec"
)

func newDisasmCmd() *cobra.Command {
	var dictPath string

	cmd := &cobra.Command{
		Use:   "disasm <input-bin>",
		Args:  cobra.ExactArgs(1),
		Short: "Print a binary blob as a token listing",
		Long: `Print a binary blob as a token listing.

The listing shows the container header, the local string table and the
token stream with offsets. With --dict, dictionary references are
annotated with the pattern they expand to; without it the raw codes are
shown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var d codec.Dictionary
			if dictPath != "" {
				loaded, err := readDictionary(dictPath)
				if err != nil {
					return err
				}
				d = loaded
			}
			listing, err := codec.Disassemble(blob, d)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprint(cmd.OutOrStdout(), listing)
			return nil
		},
	}

	cmd.Flags().StringVar(&dictPath, "dict", "", "Dictionary used to annotate reference codes")

	return cmd
}
