// Command hfstol evaluates word forms against a compiled .hfstol lexicon.
// Forms come from the command line or, when none are given, one per line
// from standard input.
//
//	hfstol crk-descriptive-analyzer.hfstol niska
//	echo niskak | hfstol -fast -workers 4 crk-descriptive-analyzer.hfstol
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/altlab/hfstol"
)

func main() {
	split := flag.Bool("split", false, "keep every character as its own token instead of concatenating morphemes")
	fast := flag.Bool("fast", false, "use the bulk fast path (flat concatenated output)")
	workers := flag.Int("workers", 1, "worker subprocesses for the fast path")
	info := flag.Bool("info", false, "print lexicon header facts and exit")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: hfstol [flags] <lexicon.hfstol> [form ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	h, err := hfstol.FromFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("loading lexicon: %v", err)
	}
	defer h.Close()

	if *info {
		i := h.Info()
		fmt.Printf("symbols: %d (input %d, flag diacritics %d)\n", i.Symbols, i.InputSymbols, i.FlagDiacritic)
		fmt.Printf("states: %d, transitions: %d\n", i.States, i.Transitions)
		fmt.Printf("index table: %d entries, target table: %d entries\n", i.IndexTable, i.TargetTable)
		fmt.Printf("deterministic: %v, input deterministic: %v, minimized: %v, cyclic: %v\n",
			i.Deterministic, i.InputDeterministic, i.Minimized, i.Cyclic)
		fmt.Println("alphabet:")
		for n, sym := range h.Symbols() {
			if sym != "" {
				fmt.Printf("  %d\t%s\n", n, sym)
			}
		}
		return
	}

	forms := flag.Args()[1:]
	if len(forms) == 0 {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			if f := strings.TrimSpace(sc.Text()); f != "" {
				forms = append(forms, f)
			}
		}
		if err := sc.Err(); err != nil {
			log.Fatalf("reading stdin: %v", err)
		}
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if *fast {
		res, err := h.FeedInBulkFast(context.Background(), forms, *workers)
		if err != nil {
			log.Fatalf("fast lookup: %v", err)
		}
		printed := make(map[string]bool, len(forms))
		for _, form := range forms {
			if printed[form] {
				continue
			}
			printed[form] = true
			if len(res[form]) == 0 {
				fmt.Fprintf(out, "%s\t+?\n", form)
				continue
			}
			for _, a := range res[form] {
				fmt.Fprintf(out, "%s\t%s\n", form, a)
			}
		}
		return
	}

	for _, form := range forms {
		analyses, err := h.Feed(form, !*split)
		if err != nil {
			log.Fatalf("lookup %q: %v", form, err)
		}
		if len(analyses) == 0 {
			fmt.Fprintf(out, "%s\t+?\n", form)
			continue
		}
		for _, a := range analyses {
			fmt.Fprintf(out, "%s\t%s\n", form, strings.Join(a, " "))
		}
	}
}
