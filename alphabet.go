package hfstol

import (
	"bufio"
	"fmt"
	"strings"
)

// flagOp is one flag-diacritic operation parsed from a symbol of the form
// @X.FEATURE.VALUE@ or @X.FEATURE@, where X is the operator character.
type flagOp struct {
	Op      byte
	Feature string
	Value   string
}

// flagOperators are the operator characters a flag-diacritic symbol may use.
const flagOperators = "PNRDCU"

// alphabet holds the symbol key table of a lexicon. Flag-diacritic symbols
// are blanked in the key table (they produce no output) and recorded in
// flags by symbol number. Symbol 0 is the epsilon symbol.
type alphabet struct {
	keyTable []string
	flags    map[int]flagOp
}

// readAlphabet reads symbolCount NUL-terminated UTF-8 symbols following the
// header.
func readAlphabet(r *bufio.Reader, symbolCount int) (*alphabet, error) {
	a := &alphabet{
		keyTable: make([]string, 0, symbolCount),
		flags:    make(map[int]flagOp),
	}
	for i := 0; i < symbolCount; i++ {
		raw, err := r.ReadString(0)
		if err != nil {
			return nil, fmt.Errorf("reading symbol %d of %d: %w", i, symbolCount, err)
		}
		sym := strings.TrimSuffix(raw, "\x00")
		if op, ok := parseFlagDiacritic(sym); ok {
			a.flags[i] = op
			a.keyTable = append(a.keyTable, "")
			continue
		}
		a.keyTable = append(a.keyTable, sym)
	}
	if len(a.keyTable) > 0 {
		a.keyTable[0] = "" // epsilon
	}
	return a, nil
}

// parseFlagDiacritic reports whether sym is a flag diacritic and, if so,
// decodes its operation.
func parseFlagDiacritic(sym string) (flagOp, bool) {
	if len(sym) <= 4 || sym[0] != '@' || sym[len(sym)-1] != '@' ||
		sym[2] != '.' || !strings.ContainsRune(flagOperators, rune(sym[1])) {
		return flagOp{}, false
	}
	parts := strings.Split(sym[1:len(sym)-1], ".")
	switch len(parts) {
	case 2:
		return flagOp{Op: sym[1], Feature: parts[1]}, true
	case 3:
		return flagOp{Op: sym[1], Feature: parts[1], Value: parts[2]}, true
	}
	return flagOp{}, false
}
