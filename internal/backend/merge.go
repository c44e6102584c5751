package backend

import (
	"container/heap"

	"github.com/abyssdigger/flarelog/internal/record"
	"github.com/abyssdigger/flarelog/internal/threadctx"
)

// pqItem is one producer context's next unread record, peeked but not yet
// committed. The merge heap orders items by (timestamp, thread id) so the
// backend processes records across every ring in approximate global
// arrival order (§4.4/§5 "cross-queue ordering").
type pqItem struct {
	ctx    *threadctx.Context
	header record.Header
	raw    []byte
}

type mergeQueue []pqItem

func (q mergeQueue) Len() int { return len(q) }

func (q mergeQueue) Less(i, j int) bool {
	if q[i].header.Timestamp != q[j].header.Timestamp {
		return q[i].header.Timestamp < q[j].header.Timestamp
	}
	return q[i].ctx.ThreadID() < q[j].ctx.ThreadID()
}

func (q mergeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *mergeQueue) Push(x any) { *q = append(*q, x.(pqItem)) }

func (q *mergeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// fillQueue peeks at most one pending record from every context in ctxs
// that doesn't already have a peeked-but-uncommitted item sitting in q, and
// pushes it. A context stays represented in q across calls until its item
// is popped and committed (drainBatch re-peeks and re-pushes it then), so
// skipping already-represented contexts here is what keeps q from
// accumulating duplicate entries for a context whose head record survived
// a batch boundary. Contexts with nothing readable (or a malformed header)
// are skipped; malformed headers are handled by the caller via
// peekContext's error return, not here, since skipping requires advancing
// that context's ring and emitting a diagnostic record.
func fillQueue(q *mergeQueue, ctxs []*threadctx.Context) []peekFailure {
	present := make(map[*threadctx.Context]struct{}, q.Len())
	for _, it := range *q {
		present[it.ctx] = struct{}{}
	}

	var failures []peekFailure
	for _, c := range ctxs {
		if _, ok := present[c]; ok {
			continue
		}
		item, err := peekContext(c)
		if err != nil {
			failures = append(failures, peekFailure{ctx: c, err: err})
			continue
		}
		if item == nil {
			continue
		}
		heap.Push(q, *item)
	}
	return failures
}

type peekFailure struct {
	ctx *threadctx.Context
	err error
}

// peekContext reads (without committing) the next record header from c's
// ring. It returns (nil, nil) when the ring has nothing to read.
func peekContext(c *threadctx.Context) (*pqItem, error) {
	raw := c.Ring().PrepareRead()
	if len(raw) == 0 {
		return nil, nil
	}
	h, err := record.DecodeHeader(raw)
	if err != nil {
		return nil, err
	}
	return &pqItem{ctx: c, header: h, raw: raw[:h.TotalLen]}, nil
}
