package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/binast/ast"
	"github.com/chazu/binast/codec"
)

func newEncodeASTCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode-ast <dict> <input-dump> <output-bin>",
		Args:  cobra.ExactArgs(3),
		Short: "Encode an AST dump into a binary blob",
		Long: `Encode an AST dump into a binary blob using the given dictionary.

The input should have been through optimize-ast with the same settings
the dictionary was trained with; unoptimized input still encodes, it just
matches fewer dictionary entries.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			d, err := readDictionary(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			t, err := ast.ParseDump(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}
			blob, err := codec.Encode(t, d, codec.Options{
				Compress: cfg.Encoder.CompressEnabled(),
				Quality:  cfg.Encoder.Quality,
			})
			if err != nil {
				return err
			}
			return writeFileAtomic(args[2], blob)
		},
	}
	return cmd
}
