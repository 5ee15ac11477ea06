package dict

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"

	"github.com/chazu/binast/ast"
	"github.com/chazu/binast/codec"
	"github.com/chazu/binast/optimize"
)

var log = commonlog.GetLogger("binast.dict")

// ErrEmptyCorpus is returned by Build when no trees were added.
var ErrEmptyCorpus = errors.New("dict: empty corpus")

// Config controls candidate extraction and selection.
type Config struct {
	// MaxEntries caps the entry list; the most frequent candidates keep
	// their slots. Zero or negative lifts the cap.
	MaxEntries int

	// MinCount drops candidates seen fewer times across the corpus.
	MinCount int

	// MaxSubtreeNodes bounds the node count of subtree candidates. Zero
	// means no subtree entries at all.
	MaxSubtreeNodes int

	// MinStringLen drops shorter string payloads from candidacy.
	MinStringLen int

	// Optimize is applied to every dump added through AddFile before
	// scanning.
	Optimize optimize.Config
}

// fingerprint hashes the fields that shape a single file's candidate
// set. Selection knobs stay out, so trimming MaxEntries or MinCount does
// not invalidate the scan cache.
func (c Config) fingerprint() [32]byte {
	h := sha256.New()
	fmt.Fprintf(h, "scan/v1 subtree=%d strlen=%d lazy=%d",
		c.MaxSubtreeNodes, c.MinStringLen, c.Optimize.LazyThreshold)
	var fp [32]byte
	copy(fp[:], h.Sum(nil))
	return fp
}

// Cache memoizes per-file candidate sets across builder runs. Get
// reports a miss with ok=false. Storage failures must not fail a build,
// so the builder only logs Put errors.
type Cache interface {
	Get(fileHash, cfgFingerprint [32]byte) ([]byte, bool)
	Put(fileHash, cfgFingerprint [32]byte, blob []byte) error
}

// candidate is one distinct pattern within a file and its occurrence
// count. Slice order is the file's first-seen pre-order.
type candidate struct {
	Kind    EntryKind `cbor:"1,keyasint"`
	Pattern []byte    `cbor:"2,keyasint"`
	Count   int       `cbor:"3,keyasint"`
}

// candidateSet is one file's scan result, the unit the cache stores.
type candidateSet struct {
	Candidates []candidate `cbor:"1,keyasint"`
}

// tally accumulates one pattern's corpus-wide standing.
type tally struct {
	count int
	rank  int // global first-seen rank, shared across both classes
}

// Builder accumulates candidate counts across a corpus. Add trees or
// files in a fixed order for reproducible dictionaries. Not safe for
// concurrent use.
type Builder struct {
	cfg      Config
	cache    Cache
	sub      map[string]*tally
	str      map[string]*tally
	nextRank int
	trees    int
}

func NewBuilder(cfg Config) *Builder {
	return &Builder{
		cfg: cfg,
		sub: make(map[string]*tally),
		str: make(map[string]*tally),
	}
}

// SetCache attaches a scan cache consulted by AddFile.
func (b *Builder) SetCache(c Cache) { b.cache = c }

// AddTree scans one corpus tree as given. Trees fed through AddFile are
// optimized first; AddTree trusts its caller to have done so.
func (b *Builder) AddTree(t *ast.Tree) error {
	if err := ast.Validate(t); err != nil {
		return fmt.Errorf("dict: %w", err)
	}
	set, err := b.scan(t)
	if err != nil {
		return err
	}
	b.merge(set)
	b.trees++
	return nil
}

// AddFile parses the dump at path, optimizes it with the builder's
// optimizer settings, and merges its candidate set. With a cache
// attached, unchanged files are served from storage instead of being
// re-scanned.
func (b *Builder) AddFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("dict: %w", err)
	}
	fileHash := sha256.Sum256(data)
	cfgFP := b.cfg.fingerprint()

	if b.cache != nil {
		if blob, ok := b.cache.Get(fileHash, cfgFP); ok {
			var set candidateSet
			if err := cbor.Unmarshal(blob, &set); err == nil {
				b.merge(&set)
				b.trees++
				return nil
			}
			log.Warningf("discarding undecodable scan cache entry for %s", path)
		}
	}

	t, err := ast.ParseDump(data)
	if err != nil {
		return fmt.Errorf("dict: %s: %w", path, err)
	}
	opt, _, err := optimize.Optimize(t, b.cfg.Optimize)
	if err != nil {
		return fmt.Errorf("dict: %s: %w", path, err)
	}
	set, err := b.scan(opt)
	if err != nil {
		return fmt.Errorf("dict: %s: %w", path, err)
	}
	b.merge(set)
	b.trees++

	if b.cache != nil {
		blob, err := cborEncMode.Marshal(set)
		if err == nil {
			err = b.cache.Put(fileHash, cfgFP, blob)
		}
		if err != nil {
			log.Warningf("scan cache write for %s failed: %v", path, err)
		}
	}
	return nil
}

// scan extracts one tree's candidate set in pre-order. At each node the
// subtree candidate precedes the node's own string payload, which pins
// the first-seen order used for tie-breaking.
func (b *Builder) scan(t *ast.Tree) (*candidateSet, error) {
	sizes := ast.SubtreeSizes(t)
	hasLazy := ast.SubtreeHasLazy(t)

	set := &candidateSet{}
	subIdx := make(map[string]int)
	strIdx := make(map[string]int)
	bump := func(idx map[string]int, kind EntryKind, pattern []byte) {
		key := string(pattern)
		if i, ok := idx[key]; ok {
			set.Candidates[i].Count++
			return
		}
		idx[key] = len(set.Candidates)
		set.Candidates = append(set.Candidates, candidate{Kind: kind, Pattern: pattern, Count: 1})
	}

	var scanErr error
	t.Walk(t.Root, func(id ast.NodeID) {
		if scanErr != nil {
			return
		}
		if sizes[id] <= b.cfg.MaxSubtreeNodes && !hasLazy[id] {
			pattern, err := codec.EncodeSubtree(t, id)
			if err != nil {
				scanErr = err
				return
			}
			bump(subIdx, EntrySubtree, pattern)
		}
		n := t.Node(id)
		if n.Kind.Payload() == ast.PayloadString && len(n.Str) >= b.cfg.MinStringLen {
			bump(strIdx, EntryString, []byte(n.Str))
		}
	})
	if scanErr != nil {
		return nil, scanErr
	}
	return set, nil
}

// merge folds one candidate set into the corpus-wide tallies.
func (b *Builder) merge(set *candidateSet) {
	for _, c := range set.Candidates {
		var m map[string]*tally
		switch c.Kind {
		case EntrySubtree:
			m = b.sub
		case EntryString:
			m = b.str
		default:
			continue // foreign cache blob
		}
		key := string(c.Pattern)
		t, ok := m[key]
		if !ok {
			t = &tally{rank: b.nextRank}
			b.nextRank++
			m[key] = t
		}
		t.count += c.Count
	}
}

// Build selects the final entry list: counts below MinCount drop, the
// rest sort by count descending with first-seen rank breaking ties, and
// the list truncates to MaxEntries. An entry's code is its position, so
// the most frequent entry gets the shortest varint.
func (b *Builder) Build() (*Dictionary, error) {
	if b.trees == 0 {
		return nil, ErrEmptyCorpus
	}

	type scored struct {
		kind    EntryKind
		pattern string
		count   int
		rank    int
	}
	all := make([]scored, 0, len(b.sub)+len(b.str))
	for pattern, t := range b.sub {
		if t.count >= b.cfg.MinCount {
			all = append(all, scored{EntrySubtree, pattern, t.count, t.rank})
		}
	}
	for s, t := range b.str {
		if t.count >= b.cfg.MinCount {
			all = append(all, scored{EntryString, s, t.count, t.rank})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].rank < all[j].rank
	})
	if b.cfg.MaxEntries > 0 && len(all) > b.cfg.MaxEntries {
		all = all[:b.cfg.MaxEntries]
	}

	entries := make([]Entry, len(all))
	for i, s := range all {
		entries[i] = Entry{Kind: s.kind, Pattern: []byte(s.pattern)}
	}
	log.Infof("selected %d dictionary entries from %d trees", len(entries), b.trees)
	return newDictionary(entries, b.cfg.MaxSubtreeNodes)
}
