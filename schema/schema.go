// Package schema gates dump files on their declared shape before the
// rest of the pipeline touches them. The embedded CUE schema mirrors the
// dump format: container identity, the closed list of node kinds, and
// the payload and children structure. It complements ast.Validate, which
// owns the arity rules.
package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed ast.cue
var schemaSource string

// Checker validates dump bytes against the embedded schema. Safe for
// concurrent use.
type Checker struct {
	dump cue.Value
}

// NewChecker compiles the embedded schema. Failure means the embedded
// source itself is broken.
func NewChecker() (*Checker, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("ast.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("schema: compiling embedded schema: %w", err)
	}
	dump := v.LookupPath(cue.ParsePath("#Dump"))
	if err := dump.Err(); err != nil {
		return nil, fmt.Errorf("schema: missing #Dump definition: %w", err)
	}
	return &Checker{dump: dump}, nil
}

// CheckBytes validates one dump file against the schema. The error
// carries every complaint with its path into the document.
func (c *Checker) CheckBytes(data []byte) error {
	if err := cuejson.Validate(data, c.dump); err != nil {
		return fmt.Errorf("schema: %s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}
