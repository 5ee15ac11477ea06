package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/binast/ast"
	"github.com/chazu/binast/schema"
)

func newCheckASTCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-ast <input-dump>",
		Args:  cobra.ExactArgs(1),
		Short: "Validate an AST dump against the schema and grammar",
		Long: `Validate an AST dump against the schema and grammar.

The shape check runs first and reports where the dump diverges from the
dump schema (unknown kinds, stray fields, bad payload types). The grammar
check then enforces per-kind arity and payload rules. Valid dumps produce
no output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			checker, err := schema.NewChecker()
			if err != nil {
				return err
			}
			if err := checker.CheckBytes(data); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if _, err := ast.ParseDump(data); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return nil
		},
	}
	return cmd
}
