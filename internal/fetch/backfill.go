// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"io"
)

// backfillChunk is the number of queued URLs fetched per backfill round.
const backfillChunk = 5

// Result is the outcome of an initial fetch plus any backfill rounds.
type Result struct {
	BatchResult
	BackfillRounds int
	LowConfidence  bool
}

// FetchWithBackfill fetches initial, then while fewer than target documents
// have succeeded and the queue is not empty, fetches the next chunk of the
// backfill queue. URLs already attempted are skipped.
func (f *Fetcher) FetchWithBackfill(ctx context.Context, initial, backfill []string, target int, w io.Writer) Result {
	seen := make(map[string]bool)
	dedupe := func(urls []string) []string {
		var out []string
		for _, u := range urls {
			if seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, u)
		}
		return out
	}

	var res Result
	res.add(f.FetchAll(ctx, dedupe(initial), w).Documents)

	queue := backfill
	for res.Succeeded < target && len(queue) > 0 && ctx.Err() == nil {
		n := backfillChunk
		if n > len(queue) {
			n = len(queue)
		}
		chunk := dedupe(queue[:n])
		queue = queue[n:]
		if len(chunk) == 0 {
			continue
		}
		res.BackfillRounds++
		fmt.Fprintf(w, "backfill round %d: %d of %d documents, fetching %d more\n",
			res.BackfillRounds, res.Succeeded, target, len(chunk))
		res.add(f.FetchAll(ctx, chunk, w).Documents)
	}

	fmt.Fprintf(w, "fetch summary: %d succeeded, %d failed (total: %d)\n", res.Succeeded, res.Failed, res.Total())
	if f.LowConfidence(res.BatchResult) {
		res.LowConfidence = true
		fmt.Fprintf(w, "warning: low confidence, only %.0f%% of fetched URLs produced content\n", res.SuccessRate()*100)
	}
	return res
}
