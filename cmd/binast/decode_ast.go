package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/binast/ast"
	"github.com/chazu/binast/codec"
)

func newDecodeASTCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode-ast <dict> <input-bin> <output-dump>",
		Args:  cobra.ExactArgs(3),
		Short: "Decode a binary blob back into an AST dump",
		Long: `Decode a binary blob back into an AST dump.

The dictionary must be the one the blob was encoded with; reference codes
are positional, so a different dictionary produces garbage or a corrupt
stream error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := readDictionary(args[0])
			if err != nil {
				return err
			}
			blob, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			t, err := codec.Decode(blob, d)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}
			out, err := ast.FormatDump(t)
			if err != nil {
				return err
			}
			return writeFileAtomic(args[2], out)
		},
	}
	return cmd
}
