// Package hfstol provides programmatic access to compiled HFST
// optimized-lookup lexicons (.hfstol files), mapping surface word forms to
// morphological analyses, or deep forms to generated spellings, depending on
// which lexicon is loaded. Evaluation is delegated to the external
// hfst-optimized-lookup binary; this package owns result parsing, the
// concatenation policy, and the bulk dispatch across worker subprocesses.
package hfstol

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// lookupBinary is the external optimized-lookup executable the evaluators
// invoke. It must be on $PATH.
const lookupBinary = "hfst-optimized-lookup"

// HFSTOL is a handle to one compiled lexicon. It is immutable apart from
// the engine session it lazily starts for the slow path; all methods are
// safe for concurrent use. Close terminates any running session.
type HFSTOL struct {
	path  string
	exe   string // resolved lookup binary, empty when not installed
	hdr   *header
	alpha *alphabet

	mu   sync.Mutex
	sess *session
}

// FromFile opens and validates a .hfstol lexicon and returns a handle to
// it. The file's header and symbol table are parsed up front, so a missing
// or unreadable file fails here with ErrLexiconNotFound and a weighted
// transducer with ErrWeightedNotSupported, not later during lookups.
func FromFile(path string) (*HFSTOL, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLexiconNotFound, path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	hdr, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if hdr.weighted {
		return nil, fmt.Errorf("%s: %w", path, ErrWeightedNotSupported)
	}
	alpha, err := readAlphabet(r, hdr.symbols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	exe, _ := exec.LookPath(lookupBinary)
	return &HFSTOL{path: path, exe: exe, hdr: hdr, alpha: alpha}, nil
}

// Path returns the lexicon file path this handle was constructed from.
func (h *HFSTOL) Path() string { return h.path }

// Info returns the header facts of the loaded lexicon.
func (h *HFSTOL) Info() Info {
	return Info{
		InputSymbols:       h.hdr.inputSymbols,
		Symbols:            h.hdr.symbols,
		States:             h.hdr.states,
		Transitions:        h.hdr.transitions,
		FlagDiacritic:      len(h.alpha.flags),
		IndexTable:         h.hdr.indexTable,
		TargetTable:        h.hdr.targetTable,
		Weighted:           h.hdr.weighted,
		Deterministic:      h.hdr.deterministic,
		InputDeterministic: h.hdr.inputDeterministic,
		Minimized:          h.hdr.minimized,
		Cyclic:             h.hdr.cyclic,
	}
}

// Symbols returns a copy of the lexicon's symbol key table, indexed by
// symbol number. The epsilon symbol and flag diacritics appear as empty
// strings: they produce no output.
func (h *HFSTOL) Symbols() []string {
	out := make([]string, len(h.alpha.keyTable))
	copy(out, h.alpha.keyTable)
	return out
}

// Feed evaluates one form against the lexicon and returns every distinct
// analysis. With concat true (the usual mode) each analysis is a morpheme
// followed by its tags; with concat false every character stays its own
// token. The empty form and forms with no analysis return a nil slice.
//
// For an analyzer lexicon:
//
//	Feed("niska", true)  → [("niska" "+N" "+A" "+Sg") ("niska" "+N" "+A" "+Obv")]
//	Feed("niska", false) → [("n" "i" "s" "k" "a" "+N" "+A" "+Sg") …]
//
// For a generator lexicon:
//
//	Feed("niska+N+A+Pl", true) → [("niskak")]
func (h *HFSTOL) Feed(form string, concat bool) ([]Analysis, error) {
	if form == "" {
		return nil, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	lines, err := h.lookupLocked(form)
	if err != nil {
		return nil, err
	}
	set := newAnalysisSet()
	for _, line := range lines {
		if a, ok := parseLine(line, concat); ok {
			set.add(a)
		}
	}
	return set.list, nil
}

// FeedInBulk evaluates every form in forms sequentially through one engine
// session and returns a map from each submitted form to its analyses.
// Every form appears as a key; an empty slice means no analysis. Duplicate
// forms collapse to one key. This is the reference path: correct but not
// fast — use FeedInBulkFast for large batches.
func (h *HFSTOL) FeedInBulk(forms []string, concat bool) (map[string][]Analysis, error) {
	res := make(map[string][]Analysis, len(forms))
	for _, form := range forms {
		if _, done := res[form]; done {
			continue
		}
		as, err := h.Feed(form, concat)
		if err != nil {
			return nil, err
		}
		if as == nil {
			as = []Analysis{}
		}
		res[form] = as
	}
	return res, nil
}

// lookupLocked runs one form through the slow-path session, starting it on
// first use and discarding it when the engine fails so the next call gets a
// fresh one. Callers must hold h.mu.
func (h *HFSTOL) lookupLocked(form string) ([]string, error) {
	if h.exe == "" {
		return nil, fmt.Errorf("%w; install the HFST suite to evaluate lookups", ErrLookupNotInstalled)
	}
	if h.sess == nil {
		s, err := startSession(h.exe, h.path)
		if err != nil {
			return nil, err
		}
		h.sess = s
	}
	lines, err := h.sess.lookup(form)
	if err != nil {
		h.sess.close()
		h.sess = nil
		return nil, err
	}
	return lines, nil
}

// Close terminates the engine session, if one is running. The handle stays
// usable; the next lookup starts a fresh session.
func (h *HFSTOL) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sess != nil {
		h.sess.close()
		h.sess = nil
	}
	return nil
}
