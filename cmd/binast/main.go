// Command binast turns JSON AST dumps into a compact dictionary-compressed
// binary form and back.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/chazu/binast/config"
	"github.com/chazu/binast/dict"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbosity int

	cmd := &cobra.Command{
		Use:   "binast",
		Short: "Tools for the binary AST interchange format",
		Long: `binast trains dictionaries over corpora of JSON AST dumps and uses them
to encode dumps into a compact binary form and back.

A typical round trip:

  binast make-dict corpus/ my.dict
  binast optimize-ast input.dump input.opt.dump
  binast encode-ast my.dict input.opt.dump input.bin
  binast decode-ast my.dict input.bin output.dump

Settings come from the nearest binast.toml above the working directory,
or from --config. Without either, built-in defaults apply.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			commonlog.Configure(verbosity, nil)
		},
	}

	cmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Raise log verbosity (repeatable)")
	cmd.PersistentFlags().String("config", "", "Explicit binast.toml path")

	cmd.AddCommand(newMakeDictCmd())
	cmd.AddCommand(newOptimizeASTCmd())
	cmd.AddCommand(newEncodeASTCmd())
	cmd.AddCommand(newDecodeASTCmd())
	cmd.AddCommand(newCheckASTCmd())
	cmd.AddCommand(newDisasmCmd())

	return cmd
}

// loadConfig resolves tool settings: an explicit --config file wins, then
// the nearest binast.toml above the working directory, then defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

// readDictionary loads a dictionary file written by make-dict.
func readDictionary(path string) (*dict.Dictionary, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := dict.UnmarshalDictionary(blob)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}
