package venuechat

import (
	"sort"

	"github.com/johndosdos/eventhub/internal/model"
)

// DefaultMaxPending bounds how many out-of-order messages wait for a gap to
// fill before they are shown anyway.
const DefaultMaxPending = 32

// timeline orders messages by server seq. Messages without a seq are shown
// in receipt order. Not safe for concurrent use.
type timeline struct {
	msgs []model.ChatMessage
	ids  map[string]struct{}

	// anchored is set once history has been applied. Until then streamed
	// messages wait in pending.
	anchored bool
	// lazy anchors on the first streamed seq; used when history failed.
	lazy       bool
	lastSeq    int64
	pending    map[int64]model.ChatMessage
	maxPending int
}

func newTimeline(maxPending int) *timeline {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &timeline{
		ids:        make(map[string]struct{}),
		pending:    make(map[int64]model.ChatMessage),
		maxPending: maxPending,
	}
}

// anchor applies the history snapshot and releases messages streamed before
// it arrived.
func (t *timeline) anchor(history []model.ChatMessage) {
	sorted := make([]model.ChatMessage, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	for _, m := range sorted {
		if !t.appendNew(m) {
			continue
		}
		if m.Seq > t.lastSeq {
			t.lastSeq = m.Seq
		}
	}
	t.anchored = true
	t.drain()
}

// anchorLazily is used when history is unavailable: the first streamed
// message defines where the sequence starts.
func (t *timeline) anchorLazily() {
	t.anchored = true
	t.lazy = true
	if len(t.pending) == 0 {
		return
	}
	t.lastSeq = t.minPending() - 1
	t.lazy = false
	t.drain()
}

// add reports whether the visible messages changed.
func (t *timeline) add(m model.ChatMessage) bool {
	if _, seen := t.ids[m.ID]; seen && m.ID != "" {
		return false
	}

	if m.Seq <= 0 {
		return t.appendNew(m)
	}

	if !t.anchored {
		t.pending[m.Seq] = m
		return false
	}
	if t.lazy {
		t.lazy = false
		t.lastSeq = m.Seq - 1
	}

	switch {
	case m.Seq <= t.lastSeq:
		return false
	case m.Seq == t.lastSeq+1:
		t.appendNew(m)
		t.lastSeq = m.Seq
		t.drain()
		return true
	}

	if _, ok := t.pending[m.Seq]; ok {
		return false
	}
	t.pending[m.Seq] = m
	if len(t.pending) > t.maxPending {
		t.flush()
		return true
	}
	return false
}

func (t *timeline) appendNew(m model.ChatMessage) bool {
	if m.ID != "" {
		if _, seen := t.ids[m.ID]; seen {
			return false
		}
		t.ids[m.ID] = struct{}{}
	}
	t.msgs = append(t.msgs, m)
	return true
}

// drain moves contiguous pending messages into the timeline and discards
// pending entries already covered.
func (t *timeline) drain() {
	for seq := range t.pending {
		if seq <= t.lastSeq {
			delete(t.pending, seq)
		}
	}
	for {
		m, ok := t.pending[t.lastSeq+1]
		if !ok {
			return
		}
		delete(t.pending, m.Seq)
		t.appendNew(m)
		t.lastSeq = m.Seq
	}
}

// flush gives up on the gap and shows every pending message in seq order.
func (t *timeline) flush() {
	seqs := make([]int64, 0, len(t.pending))
	for seq := range t.pending {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	for _, seq := range seqs {
		t.appendNew(t.pending[seq])
		t.lastSeq = seq
		delete(t.pending, seq)
	}
}

// hasGap reports whether streamed messages are held back waiting for a
// missing seq.
func (t *timeline) hasGap() bool {
	return t.anchored && !t.lazy && len(t.pending) > 0
}

func (t *timeline) minPending() int64 {
	var lowest int64
	for seq := range t.pending {
		if lowest == 0 || seq < lowest {
			lowest = seq
		}
	}
	return lowest
}

func (t *timeline) messages() []model.ChatMessage {
	out := make([]model.ChatMessage, len(t.msgs))
	copy(out, t.msgs)
	return out
}
