// timings.go computes parallel sessions and same-room neighbours.
package relate

import (
	"container/heap"
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/europython/programapi/internal/model"
)

// byStart orders sessions by start time, then code.
func byStart(a, b *model.Session) bool {
	if !a.Start.Equal(*b.Start) {
		return a.Start.Before(*b.Start)
	}
	return a.Code < b.Code
}

// computeTimings fills the derived timing fields of every timed session.
func computeTimings(ctx context.Context, sessions []*model.Session, workers int) error {
	var timed []*model.Session
	for _, s := range sessions {
		if s.Timed() {
			timed = append(timed, s)
		}
	}
	sort.Slice(timed, func(i, j int) bool { return byStart(timed[i], timed[j]) })

	parallel := sweepParallel(timed)
	for _, s := range timed {
		if codes := parallel[s.Code]; len(codes) > 0 {
			s.SessionsInParallel = codes
		}
	}

	return computeRooms(ctx, timed, workers)
}

// endHeap is a min-heap of sessions keyed by end time.
type endHeap []*model.Session

func (h endHeap) Len() int           { return len(h) }
func (h endHeap) Less(i, j int) bool { return h[i].End.Before(*h[j].End) }
func (h endHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *endHeap) Push(x any)        { *h = append(*h, x.(*model.Session)) }
func (h *endHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	*h = old[:n-1]
	return s
}

// sweepParallel returns, per session code, the codes of all sessions whose
// interval overlaps it, ordered by (start, code). sorted must be ordered by
// byStart. Sessions still active when a new one starts are exactly those
// overlapping it, so the cost is O(n log n + k) for k overlapping pairs.
func sweepParallel(sorted []*model.Session) map[string][]string {
	out := make(map[string][]string)
	active := &endHeap{}

	for _, s := range sorted {
		for active.Len() > 0 && !(*active)[0].End.After(*s.Start) {
			heap.Pop(active)
		}
		for _, a := range *active {
			out[a.Code] = append(out[a.Code], s.Code)
			out[s.Code] = append(out[s.Code], a.Code)
		}
		heap.Push(active, s)
	}

	index := make(map[string]*model.Session, len(sorted))
	for _, s := range sorted {
		index[s.Code] = s
	}
	for code, codes := range out {
		sort.Slice(codes, func(i, j int) bool { return byStart(index[codes[i]], index[codes[j]]) })
		out[code] = codes
	}
	return out
}

type roomLinks struct {
	after  []string
	before []string
	next   *string
	prev   *string
}

// computeRooms groups timed sessions by their primary room and links them.
// Rooms are independent, so they are processed concurrently; each worker
// writes only to its own slot and results are applied afterwards.
func computeRooms(ctx context.Context, timed []*model.Session, workers int) error {
	byRoom := make(map[string][]*model.Session)
	for _, s := range timed {
		if s.Room == nil {
			continue
		}
		byRoom[*s.Room] = append(byRoom[*s.Room], s)
	}
	rooms := make([]string, 0, len(byRoom))
	for r := range byRoom {
		rooms = append(rooms, r)
	}
	sort.Strings(rooms)

	results := make([]map[string]roomLinks, len(rooms))

	g, ctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, room := range rooms {
		i, seq := i, byRoom[room]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = linkRoom(seq)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, room := range rooms {
		for _, s := range byRoom[room] {
			links := results[i][s.Code]
			s.SessionsAfter = links.after
			s.SessionsBefore = links.before
			s.NextSession = links.next
			s.PrevSession = links.prev
		}
	}
	return nil
}

// linkRoom computes neighbours within one room. seq is ordered by byStart.
func linkRoom(seq []*model.Session) map[string]roomLinks {
	out := make(map[string]roomLinks, len(seq))
	for i, s := range seq {
		links := roomLinks{after: []string{}, before: []string{}}

		if i > 0 {
			prev := seq[i-1].Code
			links.prev = &prev
		}
		if i < len(seq)-1 {
			next := seq[i+1].Code
			links.next = &next
		}

		// Later sessions start no earlier than s, so those starting at or
		// after its end form a suffix of seq.
		k := i + 1 + sort.Search(len(seq)-i-1, func(j int) bool {
			return !seq[i+1+j].Start.Before(*s.End)
		})
		for _, o := range seq[k:] {
			links.after = append(links.after, o.Code)
		}

		var before []*model.Session
		for _, o := range seq[:i] {
			if !o.End.After(*s.Start) {
				before = append(before, o)
			}
		}
		sort.Slice(before, func(a, b int) bool {
			if !before[a].End.Equal(*before[b].End) {
				return before[a].End.After(*before[b].End)
			}
			return before[a].Code < before[b].Code
		})
		for _, o := range before {
			links.before = append(links.before, o.Code)
		}

		out[s.Code] = links
	}
	return out
}
