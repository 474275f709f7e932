package hfstol

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
	"time"
)

// fakeEngine is a stand-in for hfst-optimized-lookup with canned answers
// for the forms the tests feed. It speaks the real pipe-mode protocol:
// echo<TAB>analysis lines per input, a "+?" sentinel for unknown forms, and
// a blank line after every block.
const fakeEngine = `#!/bin/sh
while IFS= read -r form; do
  case "$form" in
    'niska') printf 'niska\tniska+N+A+Sg\nniska\tniska+N+A+Obv\n\n' ;;
    'niskak') printf 'niskak\tniska+N+A+Pl\nniskak\tnîskâw+V+II+Cnj+Prs+3Sg\n\n' ;;
    'nîskâw') printf 'nîskâw\tnîskâw+V+II+Ind+Prs+3Sg\n\n' ;;
    'nipâw') printf 'nipâw\tnipâw+V+AI+Ind+Prs+3Sg\n\n' ;;
    'niska+N+A+Pl') printf 'niska+N+A+Pl\tniskak\n\n' ;;
    'nipâw+V+AI+Ind+Prs+12Pl') printf 'nipâw+V+AI+Ind+Prs+12Pl\tkinipânaw\nnipâw+V+AI+Ind+Prs+12Pl\tkinipânânaw\n\n' ;;
    'dup') printf 'dup\tdup+X\ndup\tdup+X\n\n' ;;
    *) printf '%s\t%s\t+?\n\n' "$form" "$form" ;;
  esac
done
`

// crashingEngine answers one form and then dies with a nonzero exit, as a
// lookup binary killed mid-batch would.
const crashingEngine = `#!/bin/sh
IFS= read -r form
printf '%s\t%s+X\n\n' "$form" "$form"
exit 3
`

// hangingEngine never answers. exec keeps it a single process so killing it
// closes its pipes immediately.
const hangingEngine = `#!/bin/sh
exec sleep 60
`

// oneShotEngine answers exactly one form per process lifetime, so a second
// lookup on the same session hits a dead engine.
const oneShotEngine = `#!/bin/sh
IFS= read -r form
printf '%s\t%s+X\n\n' "$form" "$form"
`

// installEngine puts script at the front of $PATH under the lookup binary's
// name so FromFile resolves it instead of a real installation.
func installEngine(t *testing.T, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine needs a POSIX shell")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, lookupBinary), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func installFakeEngine(t *testing.T) {
	installEngine(t, fakeEngine)
}

func newTestHandle(t *testing.T) *HFSTOL {
	t.Helper()
	installFakeEngine(t)
	h, err := FromFile(writeLexicon(t))
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "nope.hfstol"))
	if !errors.Is(err, ErrLexiconNotFound) {
		t.Errorf("FromFile on missing file: err = %v, want ErrLexiconNotFound", err)
	}
}

func TestFromFileWeighted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weighted.hfstol")
	if err := os.WriteFile(path, lexiconBytes(true, true, testSymbols), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := FromFile(path)
	if !errors.Is(err, ErrWeightedNotSupported) {
		t.Errorf("FromFile on weighted lexicon: err = %v, want ErrWeightedNotSupported", err)
	}
}

func TestInfo(t *testing.T) {
	h := newTestHandle(t)
	info := h.Info()
	if info.Symbols != len(testSymbols) || info.States != 4 || info.Transitions != 6 {
		t.Errorf("Info = %+v", info)
	}
	if info.FlagDiacritic != 1 {
		t.Errorf("Info.FlagDiacritic = %d, want 1", info.FlagDiacritic)
	}
	if info.IndexTable != 7 || info.TargetTable != 9 {
		t.Errorf("Info tables = %d/%d, want 7/9", info.IndexTable, info.TargetTable)
	}
	if !info.Deterministic || info.InputDeterministic || info.Minimized || info.Weighted {
		t.Errorf("Info flags = %+v", info)
	}
}

func TestSymbols(t *testing.T) {
	h := newTestHandle(t)
	got := h.Symbols()
	// Epsilon (index 0) and the flag diacritic (index 1) are blanked.
	want := []string{"", "", "a", "b", "+N"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Symbols() = %v, want %v", got, want)
	}
	// The copy must not alias the handle's table.
	got[2] = "mutated"
	if h.Symbols()[2] != "a" {
		t.Error("Symbols() exposes the handle's internal table")
	}
}

func TestFeed(t *testing.T) {
	h := newTestHandle(t)
	tests := []struct {
		form   string
		concat bool
		want   []Analysis
	}{
		{"niska", true, []Analysis{
			{"niska", "+N", "+A", "+Sg"},
			{"niska", "+N", "+A", "+Obv"},
		}},
		{"niska", false, []Analysis{
			{"n", "i", "s", "k", "a", "+N", "+A", "+Sg"},
			{"n", "i", "s", "k", "a", "+N", "+A", "+Obv"},
		}},
		{"niska+N+A+Pl", true, []Analysis{{"niskak"}}},
		{"abcdefg", true, nil},
		{"", true, nil},
	}
	for _, tt := range tests {
		got, err := h.Feed(tt.form, tt.concat)
		if err != nil {
			t.Fatalf("Feed(%q, %v): %v", tt.form, tt.concat, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Feed(%q, %v) = %v, want %v", tt.form, tt.concat, got, tt.want)
		}
	}
}

func TestFeedDeduplicates(t *testing.T) {
	h := newTestHandle(t)
	got, err := h.Feed("dup", true)
	if err != nil {
		t.Fatal(err)
	}
	want := []Analysis{{"dup", "+X"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Feed('dup') = %v, want %v", got, want)
	}
}

func TestFeedIdempotent(t *testing.T) {
	h := newTestHandle(t)
	first, err := h.Feed("niska", true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.Feed("niska", true)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Feed not idempotent: %v vs %v", first, second)
	}
}

func TestFeedInBulk(t *testing.T) {
	h := newTestHandle(t)
	forms := []string{"niskak", "nîskâw", "nipâw", "abcdefg"}
	got, err := h.FeedInBulk(forms, true)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string][]Analysis{
		"niskak": {
			{"niska", "+N", "+A", "+Pl"},
			{"nîskâw", "+V", "+II", "+Cnj", "+Prs", "+3Sg"},
		},
		"nîskâw":  {{"nîskâw", "+V", "+II", "+Ind", "+Prs", "+3Sg"}},
		"nipâw":   {{"nipâw", "+V", "+AI", "+Ind", "+Prs", "+3Sg"}},
		"abcdefg": {},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FeedInBulk(%v) = %v, want %v", forms, got, want)
	}
}

// The bulk path must agree with repeated single-form lookups.
func TestFeedInBulkMatchesFeed(t *testing.T) {
	h := newTestHandle(t)
	forms := []string{"niska", "niskak", "abcdefg"}
	bulk, err := h.FeedInBulk(forms, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, form := range forms {
		single, err := h.Feed(form, true)
		if err != nil {
			t.Fatal(err)
		}
		if single == nil {
			single = []Analysis{}
		}
		if !reflect.DeepEqual(bulk[form], single) {
			t.Errorf("bulk[%q] = %v, Feed = %v", form, bulk[form], single)
		}
	}
}

func TestFeedInBulkFast(t *testing.T) {
	h := newTestHandle(t)
	forms := []string{"niskak", "nîskâw", "nipâw", "abcdefg"}
	want := map[string][]string{
		"niskak":  {"niska+N+A+Pl", "nîskâw+V+II+Cnj+Prs+3Sg"},
		"nîskâw":  {"nîskâw+V+II+Ind+Prs+3Sg"},
		"nipâw":   {"nipâw+V+AI+Ind+Prs+3Sg"},
		"abcdefg": {},
	}
	got, err := h.FeedInBulkFast(context.Background(), forms, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FeedInBulkFast = %v, want %v", got, want)
	}
}

func TestFeedInBulkFastGenerator(t *testing.T) {
	h := newTestHandle(t)
	got, err := h.FeedInBulkFast(context.Background(), []string{"nipâw+V+AI+Ind+Prs+12Pl"}, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string][]string{
		"nipâw+V+AI+Ind+Prs+12Pl": {"kinipânaw", "kinipânânaw"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FeedInBulkFast = %v, want %v", got, want)
	}
}

// Parallelism must not change results, only latency.
func TestFeedInBulkFastWorkerInvariance(t *testing.T) {
	h := newTestHandle(t)
	forms := []string{"niskak", "nîskâw", "nipâw", "abcdefg", "niska", "dup"}
	base, err := h.FeedInBulkFast(context.Background(), forms, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, workers := range []int{2, 3, 8} {
		got, err := h.FeedInBulkFast(context.Background(), forms, workers)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if !reflect.DeepEqual(got, base) {
			t.Errorf("workers=%d: %v, want %v", workers, got, base)
		}
	}
}

func TestFeedInBulkFastDuplicateForms(t *testing.T) {
	h := newTestHandle(t)
	single, err := h.FeedInBulkFast(context.Background(), []string{"niska"}, 1)
	if err != nil {
		t.Fatal(err)
	}
	// Duplicates land in different shards and must still collapse to one key.
	doubled, err := h.FeedInBulkFast(context.Background(), []string{"niska", "niska"}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(doubled, single) {
		t.Errorf("duplicate forms: %v, want %v", doubled, single)
	}
}

func TestFeedInBulkFastMissingBinary(t *testing.T) {
	// An empty PATH directory: the lookup binary cannot be resolved.
	t.Setenv("PATH", t.TempDir())
	h, err := FromFile(writeLexicon(t))
	if err != nil {
		t.Fatal(err)
	}
	_, err = h.FeedInBulkFast(context.Background(), []string{"niska"}, 4)
	if !errors.Is(err, ErrLookupNotInstalled) {
		t.Errorf("err = %v, want ErrLookupNotInstalled", err)
	}
	if _, err := h.Feed("niska", true); !errors.Is(err, ErrLookupNotInstalled) {
		t.Errorf("Feed err = %v, want ErrLookupNotInstalled", err)
	}
}

// One crashing worker must invalidate the whole batch rather than return a
// partial result.
func TestFeedInBulkFastWorkerCrashFailsBatch(t *testing.T) {
	installEngine(t, crashingEngine)
	h, err := FromFile(writeLexicon(t))
	if err != nil {
		t.Fatal(err)
	}
	res, err := h.FeedInBulkFast(context.Background(), []string{"a", "b", "c", "d"}, 2)
	if !errors.Is(err, ErrEngineFailure) {
		t.Fatalf("err = %v, want ErrEngineFailure", err)
	}
	if res != nil {
		t.Errorf("expected no partial result, got %v", res)
	}
}

// Cancelling the context must terminate the worker subprocesses instead of
// waiting out a wedged engine.
func TestFeedInBulkFastCancellation(t *testing.T) {
	installEngine(t, hangingEngine)
	h, err := FromFile(writeLexicon(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = h.FeedInBulkFast(ctx, []string{"a", "b", "c", "d"}, 2)
	if err == nil {
		t.Fatal("expected an error after cancellation")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation returned after %v; workers were not terminated", elapsed)
	}
}

// An engine crash mid-session is fatal for that call only: the handle
// discards the dead session and the next lookup starts a fresh one.
func TestFeedRestartsSessionAfterEngineExit(t *testing.T) {
	installEngine(t, oneShotEngine)
	h, err := FromFile(writeLexicon(t))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { h.Close() })

	first, err := h.Feed("wâpamêw", true)
	if err != nil {
		t.Fatalf("first Feed: %v", err)
	}
	want := []Analysis{{"wâpamêw", "+X"}}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("first Feed = %v, want %v", first, want)
	}

	// The engine exited after its single answer; this call finds the dead
	// session.
	if _, err := h.Feed("nipâw", true); !errors.Is(err, ErrEngineFailure) {
		t.Fatalf("second Feed err = %v, want ErrEngineFailure", err)
	}

	third, err := h.Feed("niska", true)
	if err != nil {
		t.Fatalf("Feed after engine crash: %v", err)
	}
	if !reflect.DeepEqual(third, []Analysis{{"niska", "+X"}}) {
		t.Errorf("Feed after restart = %v", third)
	}
}

func TestShardForms(t *testing.T) {
	forms := []string{"a", "b", "c", "d", "e"}
	for _, n := range []int{1, 2, 3, 5, 9} {
		shards := shardForms(forms, n)
		if len(shards) != n {
			t.Fatalf("n=%d: got %d shards", n, len(shards))
		}
		var flat []string
		for _, s := range shards {
			flat = append(flat, s...)
		}
		if !reflect.DeepEqual(flat, forms) {
			t.Errorf("n=%d: shards %v do not cover input in order", n, shards)
		}
	}
}
