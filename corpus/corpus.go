// Package corpus handles the file-side of dictionary training: expanding
// corpus arguments into an ordered dump list and memoizing per-file scan
// results in a sqlite database.
package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Collect expands paths into the ordered corpus file list. Files are
// kept as given; directories contribute every .dump beneath them in
// lexical walk order. Corpus order decides dictionary tie-breaks, so
// the expansion must stay deterministic.
func Collect(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("corpus: %w", err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == ".dump" {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("corpus: walking %s: %w", p, err)
		}
	}
	return out, nil
}
