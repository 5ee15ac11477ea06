package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/binast/ast"
	"github.com/chazu/binast/optimize"
)

func newOptimizeASTCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize-ast <input-dump> <output-dump>",
		Args:  cobra.ExactArgs(2),
		Short: "Canonicalize an AST dump for encoding",
		Long: `Canonicalize an AST dump for encoding.

Prunes empty statements, renames function locals to positional names and
marks large functions for deferred decoding, then writes the result as a
new dump. Running the command on its own output changes nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			t, err := ast.ParseDump(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			opt, _, err := optimize.Optimize(t, optimize.Config{LazyThreshold: cfg.Optimizer.LazyThreshold})
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			out, err := ast.FormatDump(opt)
			if err != nil {
				return err
			}
			return writeFileAtomic(args[1], out)
		},
	}
	return cmd
}
