/*
 * Copyright 2026 The BufferHub Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package bufferhub

import (
	"log/slog"
	"sync"
)

// bufferRecord is the hub-side shared state of one buffer: ownership state,
// the posted metadata, the current fence, and the service ends of the
// doorbell channels. Client buffer objects on both sides reference the same
// record.
type bufferRecord struct {
	mu    sync.Mutex
	slot  int
	desc  BufferDesc
	meta  []byte
	fence *Fence
	state bufferState

	// Service-side doorbell ends. prodSvc wakes the producer queue,
	// each consSvc entry wakes one attached consumer queue.
	prodSvc *channel
	consSvc []*channel

	detached bool
}

// setFence stores f as the record's fence, closing any previous one.
// Caller holds r.mu.
func (r *bufferRecord) setFence(f *Fence) {
	if r.fence != nil {
		r.fence.Close()
	}
	r.fence = f
}

// takeFence transfers the record's fence to the caller. Caller holds r.mu.
func (r *bufferRecord) takeFence() *Fence {
	f := r.fence
	r.fence = nil
	return f
}

// consumerSession is the hub's view of one attached consumer queue: the
// service end of its queue-level doorbell, rung on every allocation.
type consumerSession struct {
	svc *channel
}

// Hub is the allocation and import service the queues talk to. In a
// deployment it sits across a process boundary; here it is an in-process
// object both roles attach to, which keeps the queue protocol identical
// while letting a single process host both ends.
type Hub struct {
	mu       sync.Mutex
	log      *slog.Logger
	metaSize int

	// Slot table. The lowest vacant index is assigned on allocation and
	// freed on detach.
	records [MaxQueueCapacity]*bufferRecord

	// Allocation log in allocation order. Consumer import cursors index
	// into this; detached entries are skipped at import time.
	allocations []*bufferRecord

	sessions []*consumerSession
	closed   bool
}

// NewHub creates a hub whose buffers carry metaSize bytes of metadata per
// hand-over. The metadata size is fixed for every buffer the hub allocates.
// A nil logger falls back to slog.Default().
func NewHub(metaSize int, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{log: logger, metaSize: metaSize}
}

// MetadataSize returns the fixed per-buffer metadata size in bytes.
func (h *Hub) MetadataSize() int {
	return h.metaSize
}

// AllocateBuffer creates a new buffer, assigns it the lowest free slot and
// returns the producer-side view. Every attached consumer queue is notified
// through its queue-level doorbell.
func (h *Hub) AllocateBuffer(desc BufferDesc) (*ProducerBuffer, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, 0, ErrQueueClosed
	}

	slot := -1
	for i := range h.records {
		if h.records[i] == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, 0, ErrNoFreeSlot
	}

	local, svc, err := newChannelPair()
	if err != nil {
		return nil, 0, err
	}

	rec := &bufferRecord{
		slot:    slot,
		desc:    desc,
		meta:    make([]byte, h.metaSize),
		state:   stateGained,
		prodSvc: svc,
	}
	h.records[slot] = rec
	h.allocations = append(h.allocations, rec)

	for _, s := range h.sessions {
		s.svc.signal()
	}

	h.log.Debug("buffer allocated",
		slog.Int("slot", slot),
		slog.Int("width", desc.Width),
		slog.Int("height", desc.Height),
		slog.Int("format", desc.Format))

	return &ProducerBuffer{buffer{slot: slot, rec: rec, ch: local}}, slot, nil
}

// attachConsumer registers a new consumer queue and returns the local end of
// its queue-level doorbell. The consumer starts with an empty import cursor
// and picks up all previously allocated buffers on its first import.
func (h *Hub) attachConsumer() (*channel, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrQueueClosed
	}
	local, svc, err := newChannelPair()
	if err != nil {
		return nil, err
	}
	h.sessions = append(h.sessions, &consumerSession{svc: svc})
	return local, nil
}

// importBuffers returns consumer-side views of every buffer allocated since
// cursor, plus the advanced cursor. Buffers already detached at the hub are
// skipped. A buffer that was posted before this consumer imported it has its
// doorbell pre-rung so the hand-over is not lost.
func (h *Hub) importBuffers(cursor int) ([]*ConsumerBuffer, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, cursor, ErrQueueClosed
	}

	var out []*ConsumerBuffer
	for ; cursor < len(h.allocations); cursor++ {
		rec := h.allocations[cursor]
		rec.mu.Lock()
		if rec.detached {
			rec.mu.Unlock()
			continue
		}
		local, svc, err := newChannelPair()
		if err != nil {
			rec.mu.Unlock()
			return out, cursor, err
		}
		rec.consSvc = append(rec.consSvc, svc)
		if rec.state == statePosted {
			svc.signal()
		}
		out = append(out, &ConsumerBuffer{buffer{slot: rec.slot, rec: rec, ch: local}})
		rec.mu.Unlock()
	}
	return out, cursor, nil
}

// detachBuffer removes the buffer at slot from the hub. The service ends of
// its doorbells are closed, which the remote side observes as a hang-up on
// that slot. The freed slot becomes reusable by a later allocation.
func (h *Hub) detachBuffer(slot int) error {
	if slot < 0 || slot >= MaxQueueCapacity {
		return ErrInvalidSlot
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	rec := h.records[slot]
	if rec == nil {
		return ErrSlotVacant
	}
	h.records[slot] = nil
	h.detachRecord(rec)
	h.log.Debug("buffer detached", slog.Int("slot", slot))
	return nil
}

// detachRecord finalizes a record. Caller holds h.mu.
func (h *Hub) detachRecord(rec *bufferRecord) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.detached = true
	rec.state = stateDetached
	rec.setFence(nil)
	rec.prodSvc.close()
	for _, c := range rec.consSvc {
		c.close()
	}
	rec.consSvc = nil
}

// Close detaches every remaining buffer and closes all doorbells. Attached
// queues observe hang-ups on their registrations.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for i, rec := range h.records {
		if rec == nil {
			continue
		}
		h.records[i] = nil
		h.detachRecord(rec)
	}
	for _, s := range h.sessions {
		s.svc.close()
	}
	h.sessions = nil
	return nil
}
