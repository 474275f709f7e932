package hfstol

import "strings"

// Analysis is one complete transducer output for one input form: an ordered
// sequence of tokens. With concatenation enabled the first element is the
// reconstructed morpheme and the rest are tags, e.g.
// ("niska", "+N", "+A", "+Sg"); with concatenation disabled every character
// is its own token, e.g. ("n", "i", "s", "k", "a", "+N", "+A", "+Sg").
type Analysis []string

// String returns the analysis as a single concatenated string, the same
// shape the fast path emits, e.g. "niska+N+A+Sg".
func (a Analysis) String() string {
	return strings.Join(a, "")
}

// key returns the structural identity of the analysis. Two analyses with
// identical token sequences collapse to one entry in a result set.
func (a Analysis) key() string {
	return strings.Join(a, "\x00")
}

// analysisSet deduplicates analyses while preserving first-seen order.
type analysisSet struct {
	seen map[string]struct{}
	list []Analysis
}

func newAnalysisSet() *analysisSet {
	return &analysisSet{seen: make(map[string]struct{})}
}

// add inserts a into the set unless a structurally equal analysis is
// already present.
func (s *analysisSet) add(a Analysis) {
	k := a.key()
	if _, dup := s.seen[k]; dup {
		return
	}
	s.seen[k] = struct{}{}
	s.list = append(s.list, a)
}

// Info describes a loaded lexicon: the header facts of the compiled
// automaton, useful for diagnostics and the server's info endpoint.
type Info struct {
	InputSymbols  int `json:"input_symbols"`
	Symbols       int `json:"symbols"`
	States        int `json:"states"`
	Transitions   int `json:"transitions"`
	FlagDiacritic int `json:"flag_diacritics"`
	IndexTable    int `json:"index_table_entries"`
	TargetTable   int `json:"target_table_entries"`

	Weighted           bool `json:"weighted"`
	Deterministic      bool `json:"deterministic"`
	InputDeterministic bool `json:"input_deterministic"`
	Minimized          bool `json:"minimized"`
	Cyclic             bool `json:"cyclic"`
}
