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
	"fmt"
	"log/slog"
	"time"
)

const (
	// MaxQueueCapacity is the number of buffer slots a queue tracks at most.
	MaxQueueCapacity = 64

	// NoTimeout makes Dequeue and WaitForBuffers block indefinitely.
	NoTimeout = -1

	// maxEvents bounds the readiness events harvested per wait call.
	maxEvents = 128
)

// roleHooks is the capability a concrete role implements. It is the only
// point where role-specific policy enters the queue core.
type roleHooks interface {
	// onBufferReady runs when the remote side hands the buffer over. The
	// role performs its ownership transition, fills meta (the slot's
	// metadata blob) if it carries frame metadata, and returns the fence
	// attached to the hand-over. On success the core re-enqueues the
	// buffer.
	onBufferReady(buf bufferClient, meta []byte) (*Fence, error)

	// onBufferAllocated runs on a queue-level event, i.e. a buffer was
	// allocated remotely.
	onBufferAllocated() error

	// detachSlot performs the role's detach of slot, including any
	// side-specific teardown beyond the core bookkeeping.
	detachSlot(slot int) error
}

// Queue is the role-agnostic engine shared by ProducerQueue and
// ConsumerQueue: the slot table, the availability ring and the event pump.
// A queue instance is single-owner; one thread drives it and the only
// blocking operation is Dequeue.
type Queue struct {
	hooks roleHooks
	log   *slog.Logger

	metaSize int

	// Slot table. A slot has a non-nil buffer iff it was added and not
	// yet detached. The metadata blob is allocated once per add and
	// referenced, never copied, by ring entries.
	buffers  [MaxQueueCapacity]bufferClient
	slotMeta [MaxQueueCapacity][]byte

	// Per-slot fences, replaced on every hand-over.
	fences [MaxQueueCapacity]*Fence

	// hupPending marks slots detached while a stale hang-up event for the
	// previous occupant may still be queued, so the event can be
	// swallowed instead of detaching the new occupant.
	hupPending [MaxQueueCapacity]bool

	available *entryRing
	capacity  int

	ep      *epoller
	events  []pumpEvent
	queueCh *channel

	closed bool
}

func newQueue(hooks roleHooks, metaSize int, logger *slog.Logger) (*Queue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ep, err := newEpoller()
	if err != nil {
		return nil, err
	}
	return &Queue{
		hooks:     hooks,
		log:       logger,
		metaSize:  metaSize,
		available: newEntryRing(MaxQueueCapacity),
		ep:        ep,
		events:    make([]pumpEvent, maxEvents),
	}, nil
}

// Count returns the number of buffers available for dequeue.
func (q *Queue) Count() int {
	return q.available.size()
}

// Capacity returns the total number of buffers the queue is tracking.
func (q *Queue) Capacity() int {
	return q.capacity
}

// MetadataSize returns the fixed metadata size of this queue instance.
func (q *Queue) MetadataSize() int {
	return q.metaSize
}

// IsFull reports whether every tracked buffer is currently available.
func (q *Queue) IsFull() bool {
	return q.available.size() == q.capacity
}

// Valid reports whether the queue's multiplexer is usable.
func (q *Queue) Valid() bool {
	return !q.closed && q.ep.valid()
}

// GetEventMask passes a readiness mask through the queue's channel. It
// mirrors the transport's generic event-mask query and fails once the queue
// is closed.
func (q *Queue) GetEventMask(events int) (int, error) {
	if !q.Valid() {
		return 0, ErrQueueClosed
	}
	return events, nil
}

// addBuffer registers buf under slot: multiplexer registration first, then
// slot table and capacity. The buffer is not made available here; the role
// decides when to enqueue.
func (q *Queue) addBuffer(buf bufferClient, slot int) error {
	if slot < 0 || slot >= MaxQueueCapacity {
		return ErrInvalidSlot
	}
	if q.buffers[slot] != nil {
		return ErrSlotOccupied
	}
	if err := q.ep.add(buf.eventFD(), int64(slot)); err != nil {
		return err
	}
	q.buffers[slot] = buf
	q.slotMeta[slot] = make([]byte, q.metaSize)
	q.capacity++
	return nil
}

// detachBuffer removes the slot's multiplexer registration and clears the
// slot table entry, the slot's fence and any availability-ring entries for
// the slot. The caller must not detach a slot whose buffer it is actively
// holding from an unreturned Dequeue; a handle obtained earlier stays alive
// through its own reference.
func (q *Queue) detachBuffer(slot int) error {
	if slot < 0 || slot >= MaxQueueCapacity {
		return ErrInvalidSlot
	}
	buf := q.buffers[slot]
	if buf == nil {
		return ErrSlotVacant
	}
	if err := q.ep.remove(buf.eventFD()); err != nil {
		q.log.Warn("detach: multiplexer deregistration failed",
			slog.Int("slot", slot), slog.String("error", err.Error()))
	}
	buf.closeClient()
	q.buffers[slot] = nil
	q.slotMeta[slot] = nil
	if q.fences[slot] != nil {
		q.fences[slot].Close()
		q.fences[slot] = nil
	}
	q.available.removeSlot(slot)
	q.capacity--
	return nil
}

// enqueue appends the slot's buffer to the availability ring, making it
// eligible for the next Dequeue on this side.
func (q *Queue) enqueue(buf bufferClient, slot int) error {
	if slot < 0 || slot >= MaxQueueCapacity {
		return ErrInvalidSlot
	}
	if q.buffers[slot] == nil {
		return ErrSlotVacant
	}
	if !q.available.append(bufferInfo{slot: slot, buffer: buf, metadata: q.slotMeta[slot]}) {
		return ErrQueueFull
	}
	return nil
}

// dequeue pops the front of the availability ring. timeoutMs -1 blocks
// indefinitely, 0 returns ErrWouldBlock on an empty ring, N > 0 blocks for
// up to N milliseconds, re-checking the ring after every wake. If meta is
// non-nil, exactly metaSize bytes are copied into it. The slot's fence is
// transferred to the caller.
func (q *Queue) dequeue(timeoutMs int, meta []byte) (bufferClient, int, *Fence, error) {
	if q.closed {
		return nil, 0, nil, ErrQueueClosed
	}

	var deadline time.Time
	if timeoutMs > 0 {
		deadline = time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	}

	for q.available.isEmpty() {
		wait := timeoutMs
		switch {
		case timeoutMs == 0:
			return nil, 0, nil, ErrWouldBlock
		case timeoutMs > 0:
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return nil, 0, nil, ErrTimedOut
			}
			wait = int(remaining.Milliseconds())
			if wait == 0 {
				wait = 1
			}
		}
		if err := q.WaitForBuffers(wait); err != nil {
			return nil, 0, nil, err
		}
	}

	entry, _ := q.available.popFront()
	if meta != nil {
		copy(meta, entry.metadata)
	}
	fence := q.fences[entry.slot]
	q.fences[entry.slot] = nil
	return entry.buffer, entry.slot, fence, nil
}

// WaitForBuffers blocks on the multiplexer for up to timeoutMs milliseconds
// (NoTimeout blocks indefinitely) and dispatches every harvested readiness
// event. Returns ErrTimedOut if the wait expired with no events.
func (q *Queue) WaitForBuffers(timeoutMs int) error {
	if q.closed {
		return ErrQueueClosed
	}
	n, err := q.ep.wait(q.events, timeoutMs)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTimedOut
	}
	for _, ev := range q.events[:n] {
		switch ev.kind {
		case eventSlot:
			q.handleBufferEvent(ev)
		case eventQueue:
			q.handleQueueEvent(ev)
		default:
			// Internal inconsistency: the tag space is ours alone.
			q.log.Error("readiness event with invalid tag",
				slog.String("error", ErrBadEvent.Error()))
		}
	}
	return nil
}

// handleBufferEvent turns one slot readiness event into a buffer
// transition. A readable event means the remote side handed the buffer
// over; a hang-up means the remote side detached it, unless the slot's
// pending flag marks the hang-up as stale.
func (q *Queue) handleBufferEvent(ev pumpEvent) {
	slot := ev.slot
	buf := q.buffers[slot]
	if buf == nil {
		if ev.hangup && q.hupPending[slot] {
			q.hupPending[slot] = false
			return
		}
		q.log.Error("readiness event for vacant slot", slog.Int("slot", slot))
		return
	}

	if ev.readable && buf.drainEvents() > 0 {
		fence, err := q.hooks.onBufferReady(buf, q.slotMeta[slot])
		if err != nil {
			q.log.Error("buffer ready hook failed",
				slog.Int("slot", slot), slog.String("error", err.Error()))
			return
		}
		if q.fences[slot] != nil {
			q.fences[slot].Close()
		}
		q.fences[slot] = fence
		if err := q.enqueue(buf, slot); err != nil {
			q.log.Error("re-enqueue failed",
				slog.Int("slot", slot), slog.String("error", err.Error()))
		}
		return
	}

	if ev.hangup {
		if q.hupPending[slot] {
			// The hang-up belongs to a buffer that was detached from
			// this slot before the event was handled. Swallow it; the
			// current occupant is unrelated.
			q.hupPending[slot] = false
			return
		}
		if err := q.hooks.detachSlot(slot); err != nil {
			q.log.Error("detach on hang-up failed",
				slog.Int("slot", slot), slog.String("error", err.Error()))
		}
	}
}

// handleQueueEvent dispatches a queue-level event: a readable doorbell means
// a buffer was allocated remotely; a hang-up means the hub side is gone.
func (q *Queue) handleQueueEvent(ev pumpEvent) {
	if ev.readable && q.queueCh != nil && q.queueCh.drain() > 0 {
		if _, err := q.GetEventMask(0); err != nil {
			q.log.Error("queue event mask query failed",
				slog.String("error", err.Error()))
			return
		}
		if err := q.hooks.onBufferAllocated(); err != nil {
			q.log.Error("buffer allocated hook failed",
				slog.String("error", err.Error()))
		}
		return
	}
	if ev.hangup {
		q.log.Warn("queue channel hangup")
	}
}

// Close detaches every remaining slot and releases the multiplexer and the
// queue channel. The queue is unusable afterwards.
func (q *Queue) Close() error {
	if q.closed {
		return nil
	}
	q.closed = true
	for slot := range q.buffers {
		if q.buffers[slot] != nil {
			q.detachBuffer(slot)
		}
	}
	if q.queueCh != nil {
		q.queueCh.close()
	}
	if err := q.ep.close(); err != nil {
		return fmt.Errorf("bufferhub: close multiplexer: %w", err)
	}
	return nil
}
