// Package dedup implements the two-tier duplicate detection: exact matching
// by content fingerprint or link, and fuzzy matching by title token overlap.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/candidatory/electionbot/internal/textnorm"
)

// Fingerprint derives an order-independent content identity from the title:
// normalized stopword-filtered tokens, sorted, joined, sha256-hashed.
// Cross-outlet republications frequently reorder headline clauses, so the
// token set, not the token sequence, is the identity.
func Fingerprint(title string) string {
	tokens := textnorm.Tokens(title)
	sort.Strings(tokens)
	sum := sha256.Sum256([]byte(strings.Join(tokens, " ")))
	return hex.EncodeToString(sum[:])
}

// Match says which check flagged a candidate as a duplicate.
type Match int

const (
	MatchNone Match = iota
	MatchHash
	MatchLink
	MatchFuzzy
)

type fuzzyRecord struct {
	tokens map[string]struct{}
}

// Index is the per-run dedup state: known fingerprints, known links and the
// fuzzy comparison records. Seeded from the history store, grown in memory as
// articles are admitted. Mutated only by the single sequential triage pass,
// so it carries no lock.
type Index struct {
	hashes  map[string]struct{}
	links   map[string]struct{}
	fuzzy   []fuzzyRecord
	jaccard float64
}

// Overlap threshold catches subset relationships: a short headline fully
// contained in a longer one. The Jaccard threshold (configurable) catches
// near-equal-length paraphrases. Either alone misses one of these cases.
const overlapThreshold = 0.75

// NewIndex creates an empty index with the given Jaccard threshold.
func NewIndex(jaccardThreshold float64) *Index {
	return &Index{
		hashes:  make(map[string]struct{}),
		links:   make(map[string]struct{}),
		jaccard: jaccardThreshold,
	}
}

// Seed registers one record loaded from the history store. Reports whether
// the fingerprint was already present (a hash collision worth counting).
func (ix *Index) Seed(title, link, hash string) bool {
	collision := false
	if hash != "" {
		if _, ok := ix.hashes[hash]; ok {
			collision = true
		}
		ix.hashes[hash] = struct{}{}
	}
	if link != "" {
		ix.links[link] = struct{}{}
	}
	ix.addFuzzy(title)
	return collision
}

// Check runs the three duplicate checks; any single match rejects.
func (ix *Index) Check(hash, link, title string) Match {
	if _, ok := ix.hashes[hash]; ok {
		return MatchHash
	}
	if _, ok := ix.links[link]; ok {
		return MatchLink
	}
	if ix.isFuzzyDuplicate(title) {
		return MatchFuzzy
	}
	return MatchNone
}

// Admit registers an accepted article so that near-duplicates later in the
// same batch are caught. Must be called before the next candidate is checked.
func (ix *Index) Admit(hash, link, title string) {
	if hash != "" {
		ix.hashes[hash] = struct{}{}
	}
	if link != "" {
		ix.links[link] = struct{}{}
	}
	ix.addFuzzy(title)
}

func (ix *Index) addFuzzy(title string) {
	set := tokenSet(title)
	if len(set) == 0 {
		return
	}
	ix.fuzzy = append(ix.fuzzy, fuzzyRecord{tokens: set})
}

func (ix *Index) isFuzzyDuplicate(title string) bool {
	incoming := tokenSet(title)
	// Titles normalizing to fewer than 2 tokens carry too little signal.
	if len(incoming) < 2 {
		return false
	}
	for _, rec := range ix.fuzzy {
		if len(rec.tokens) < 2 {
			continue
		}
		inter := 0
		for tok := range incoming {
			if _, ok := rec.tokens[tok]; ok {
				inter++
			}
		}
		if inter == 0 {
			continue
		}
		smaller := len(incoming)
		if len(rec.tokens) < smaller {
			smaller = len(rec.tokens)
		}
		if float64(inter)/float64(smaller) >= overlapThreshold {
			return true
		}
		union := len(incoming) + len(rec.tokens) - inter
		if float64(inter)/float64(union) >= ix.jaccard {
			return true
		}
	}
	return false
}

func tokenSet(title string) map[string]struct{} {
	tokens := textnorm.Tokens(title)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}
