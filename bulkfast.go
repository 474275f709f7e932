package hfstol

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// FeedInBulkFast evaluates a batch of forms through the external
// optimized-lookup binary, split across workers parallel subprocesses.
// Unlike Feed, the results are flat strings in the engine's own
// concatenated format, e.g. "niska+N+A+Pl" rather than
// ("niska", "+N", "+A", "+Pl").
//
// Every submitted form appears as a key in the result, with a sorted,
// deduplicated slice of its analyses; an empty slice means no analysis.
// Duplicate input forms collapse to one key. The call blocks until all
// workers finish; cancelling ctx terminates their subprocesses. If any
// worker fails the whole call fails. When the binary is not installed the
// call fails with ErrLookupNotInstalled before any subprocess is started.
func (h *HFSTOL) FeedInBulkFast(ctx context.Context, forms []string, workers int) (map[string][]string, error) {
	if h.exe == "" {
		return nil, fmt.Errorf("%w; install the HFST suite to use the fast path", ErrLookupNotInstalled)
	}
	if workers < 1 {
		workers = 1
	}

	partials := make([]map[string]map[string]struct{}, workers)
	g, ctx := errgroup.WithContext(ctx)
	for i, shard := range shardForms(forms, workers) {
		if len(shard) == 0 {
			continue
		}
		i, shard := i, shard
		g.Go(func() error {
			part, err := h.runWorker(ctx, shard)
			if err != nil {
				return err
			}
			partials[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Shards are disjoint except for duplicate input forms, whose partial
	// sets union into the same key.
	merged := make(map[string]map[string]struct{}, len(forms))
	for _, form := range forms {
		if merged[form] == nil {
			merged[form] = make(map[string]struct{})
		}
	}
	for _, part := range partials {
		for form, set := range part {
			dst := merged[form]
			if dst == nil {
				continue
			}
			for a := range set {
				dst[a] = struct{}{}
			}
		}
	}

	out := make(map[string][]string, len(merged))
	for form, set := range merged {
		list := make([]string, 0, len(set))
		for a := range set {
			list = append(list, a)
		}
		sort.Strings(list)
		out[form] = list
	}
	return out, nil
}

// shardForms splits forms into n contiguous shards. Shard boundaries depend
// only on len(forms) and n, so every worker computes its share without any
// shared state. Shards may be empty when n exceeds the batch size.
func shardForms(forms []string, n int) [][]string {
	shards := make([][]string, n)
	for i := 0; i < n; i++ {
		shards[i] = forms[len(forms)*i/n : len(forms)*(i+1)/n]
	}
	return shards
}

// runWorker feeds one shard to its own engine subprocess and collects the
// per-form analysis sets. The subprocess reads the whole shard from stdin
// and exits at EOF; cancelling ctx kills it.
func (h *HFSTOL) runWorker(ctx context.Context, shard []string) (map[string]map[string]struct{}, error) {
	cmd := exec.CommandContext(ctx, h.exe, "--quiet", "--pipe-mode", h.path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %v", ErrEngineFailure, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrEngineFailure, err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting %s: %v", ErrEngineFailure, lookupBinary, err)
	}

	writeErr := make(chan error, 1)
	go func() {
		defer stdin.Close()
		w := bufio.NewWriter(stdin)
		for _, form := range shard {
			if _, err := w.WriteString(form + "\n"); err != nil {
				writeErr <- err
				return
			}
		}
		writeErr <- w.Flush()
	}()

	part := make(map[string]map[string]struct{}, len(shard))
	for _, form := range shard {
		if part[form] == nil {
			part[form] = make(map[string]struct{})
		}
	}

	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		failed := false
		for _, col := range fields[1:] {
			if strings.Contains(col, failureMarker) {
				failed = true
				break
			}
		}
		if failed {
			continue
		}
		set := part[fields[0]]
		if set == nil {
			// The engine echoed a form this shard never sent.
			continue
		}
		set[fields[1]] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, fmt.Errorf("%w: reading %s output: %v", ErrEngineFailure, lookupBinary, err)
	}
	if err := <-writeErr; err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, fmt.Errorf("%w: writing forms: %v", ErrEngineFailure, err)
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineFailure, lookupBinary, err)
	}
	return part, nil
}
