package hfstol

import "strings"

// failureMarker is the sentinel the lookup engine appends when a form has no
// analysis: the input is echoed back followed by "+?". Depending on the
// engine version the marker appears inside the analysis column or as a
// trailing column of its own.
const failureMarker = "+?"

// tagMarker introduces a tag token inside an analysis string. Everything
// from a '+' up to (not including) the next '+' is one tag; everything
// outside tags is morpheme characters.
const tagMarker = '+'

// splitTokens breaks one analysis string into its atomic tokens: each
// morpheme character becomes its own single-rune token, and each
// "+"-prefixed tag becomes one token. "niska+N+A+Sg" yields
// ["n" "i" "s" "k" "a" "+N" "+A" "+Sg"].
func splitTokens(s string) []string {
	var toks []string
	tag := -1 // start of the tag currently being scanned, or -1
	for i, r := range s {
		if r == tagMarker {
			if tag >= 0 {
				toks = append(toks, s[tag:i])
			}
			tag = i
			continue
		}
		if tag < 0 {
			toks = append(toks, string(r))
		}
	}
	if tag >= 0 {
		toks = append(toks, s[tag:])
	}
	return toks
}

// concatTokens applies the concatenation policy: consecutive single-rune
// tokens are joined into one morpheme string while tag tokens stay separate,
// so ["n" "i" "s" "k" "a" "+N"] becomes ["niska" "+N"]. Token order is
// preserved.
func concatTokens(toks []string) []string {
	var out []string
	var buf strings.Builder
	for _, t := range toks {
		if len(t) > 0 && t[0] != tagMarker {
			buf.WriteString(t)
			continue
		}
		if buf.Len() > 0 {
			out = append(out, buf.String())
			buf.Reset()
		}
		out = append(out, t)
	}
	if buf.Len() > 0 {
		out = append(out, buf.String())
	}
	return out
}

// parseLine turns one raw engine output line into an Analysis. The engine
// echoes the input form, a tab, and the analysis string; not-found lines
// carry the failure marker and yield (nil, false), as do blank lines and
// lines with no analysis column.
func parseLine(line string, concat bool) (Analysis, bool) {
	if line == "" {
		return nil, false
	}
	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		return nil, false
	}
	for _, f := range fields[1:] {
		if strings.Contains(f, failureMarker) {
			return nil, false
		}
	}
	toks := splitTokens(fields[1])
	if len(toks) == 0 {
		return nil, false
	}
	if concat {
		toks = concatTokens(toks)
	}
	return Analysis(toks), true
}
