package main

import (
	"github.com/spf13/cobra"

	"github.com/chazu/binast/corpus"
	"github.com/chazu/binast/dict"
	"github.com/chazu/binast/optimize"
)

func newMakeDictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "make-dict <input>... <output-dict>",
		Args:  cobra.MinimumNArgs(2),
		Short: "Build an encoding dictionary from a corpus of AST dumps",
		Long: `Build an encoding dictionary from a corpus of AST dumps.

Inputs may be dump files or directories, which are scanned recursively
for *.dump files in lexical order. Each dump is canonicalized with the
configured optimizer settings before scanning, so the dictionary matches
what encode-ast will see. The last argument names the dictionary file to
write.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			inputs, output := args[:len(args)-1], args[len(args)-1]
			files, err := corpus.Collect(inputs)
			if err != nil {
				return err
			}

			builder := dict.NewBuilder(dict.Config{
				MaxEntries:      cfg.Dictionary.MaxEntries,
				MinCount:        cfg.Dictionary.MinCount,
				MaxSubtreeNodes: cfg.Dictionary.MaxSubtreeNodes,
				MinStringLen:    cfg.Dictionary.MinStringLen,
				Optimize:        optimize.Config{LazyThreshold: cfg.Optimizer.LazyThreshold},
			})
			if !cfg.Dictionary.CacheDisabled() {
				cache, err := corpus.OpenScanCache(cfg.ResolvedCachePath())
				if err != nil {
					return err
				}
				defer cache.Close()
				builder.SetCache(cache)
			}

			for _, f := range files {
				if err := builder.AddFile(f); err != nil {
					return err
				}
			}
			d, err := builder.Build()
			if err != nil {
				return err
			}
			blob, err := dict.MarshalDictionary(d)
			if err != nil {
				return err
			}
			return writeFileAtomic(output, blob)
		},
	}
	return cmd
}
