//go:build linux

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
	"errors"
	"testing"
	"time"
)

func TestDequeueWouldBlock(t *testing.T) {
	p, c := newTestQueuePair(t, 8)

	start := time.Now()
	if _, _, _, err := p.Dequeue(0); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("producer Dequeue(0) on empty ring: expected ErrWouldBlock, got %v", err)
	}
	if _, _, _, err := c.Dequeue(0, make([]byte, 8)); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("consumer Dequeue(0) on empty ring: expected ErrWouldBlock, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Dequeue(0) blocked for %v", elapsed)
	}
}

func TestDequeueTimeout(t *testing.T) {
	p, _ := newTestQueuePair(t, 8)

	start := time.Now()
	_, _, _, err := p.Dequeue(50)
	elapsed := time.Since(start)
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if elapsed < 40*time.Millisecond {
		t.Fatalf("Dequeue(50) returned after %v, expected ~50ms", elapsed)
	}
}

func TestAddBufferSlotValidation(t *testing.T) {
	p, _ := newTestQueuePair(t, 8)
	h := p.hub

	buf, slot, err := h.AllocateBuffer(BufferDesc{Width: 4, Height: 4, Format: 1, SliceCount: 1})
	if err != nil {
		t.Fatalf("AllocateBuffer failed: %v", err)
	}

	if err := p.AddBuffer(buf, -1); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("add at slot -1: expected ErrInvalidSlot, got %v", err)
	}
	if err := p.AddBuffer(buf, MaxQueueCapacity); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("add at slot %d: expected ErrInvalidSlot, got %v", MaxQueueCapacity, err)
	}
	if err := p.AddBuffer(buf, slot); err != nil {
		t.Fatalf("add at assigned slot failed: %v", err)
	}
	if err := p.AddBuffer(buf, slot); !errors.Is(err, ErrSlotOccupied) {
		t.Fatalf("double add: expected ErrSlotOccupied, got %v", err)
	}
}

func TestCountCapacityInvariants(t *testing.T) {
	p, _ := newTestQueuePair(t, 8)

	const n = 3
	for i := 0; i < n; i++ {
		if _, err := p.AllocateBuffer(64, 64, 1, 0, 1); err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
		if p.Count() != i+1 || p.Capacity() != i+1 {
			t.Fatalf("after %d allocations: count=%d capacity=%d", i+1, p.Count(), p.Capacity())
		}
	}
	if !p.IsFull() {
		t.Fatal("every tracked buffer is available, IsFull should hold")
	}

	_, slot, fence, err := p.Dequeue(0)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	fence.Close()
	if p.Count() != n-1 {
		t.Fatalf("count after dequeue = %d, want %d", p.Count(), n-1)
	}
	if p.Capacity() != n {
		t.Fatalf("capacity after dequeue = %d, want %d", p.Capacity(), n)
	}
	if p.IsFull() {
		t.Fatal("IsFull should not hold with a buffer held outside the ring")
	}
	if slot < 0 || slot >= MaxQueueCapacity {
		t.Fatalf("slot %d outside [0, %d)", slot, MaxQueueCapacity)
	}
}

func TestHubSlotExhaustion(t *testing.T) {
	p, _ := newTestQueuePair(t, 0)

	for i := 0; i < MaxQueueCapacity; i++ {
		if _, err := p.AllocateBuffer(4, 4, 1, 0, 1); err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
	}
	if p.Capacity() != MaxQueueCapacity {
		t.Fatalf("capacity = %d, want %d", p.Capacity(), MaxQueueCapacity)
	}
	if _, err := p.AllocateBuffer(4, 4, 1, 0, 1); !errors.Is(err, ErrNoFreeSlot) {
		t.Fatalf("allocation %d: expected ErrNoFreeSlot, got %v", MaxQueueCapacity+1, err)
	}
}

func TestDetachScrubsRing(t *testing.T) {
	p, _ := newTestQueuePair(t, 8)

	slot, err := p.AllocateBuffer(64, 64, 1, 0, 1)
	if err != nil {
		t.Fatalf("AllocateBuffer failed: %v", err)
	}
	if p.Count() != 1 {
		t.Fatalf("count = %d, want 1", p.Count())
	}
	if err := p.DetachBuffer(slot); err != nil {
		t.Fatalf("DetachBuffer failed: %v", err)
	}
	if p.Count() != 0 || p.Capacity() != 0 {
		t.Fatalf("after detach: count=%d capacity=%d, want 0/0", p.Count(), p.Capacity())
	}
	if p.GetBuffer(slot) != nil {
		t.Fatal("slot table entry survived detach")
	}
	if err := p.DetachBuffer(slot); !errors.Is(err, ErrSlotVacant) {
		t.Fatalf("double detach: expected ErrSlotVacant, got %v", err)
	}
}

func TestSlotReuseAfterDetach(t *testing.T) {
	p, _ := newTestQueuePair(t, 8)

	slot, err := p.AllocateBuffer(64, 64, 1, 0, 1)
	if err != nil {
		t.Fatalf("AllocateBuffer failed: %v", err)
	}
	if err := p.DetachBuffer(slot); err != nil {
		t.Fatalf("DetachBuffer failed: %v", err)
	}
	slot2, err := p.AllocateBuffer(32, 32, 1, 0, 1)
	if err != nil {
		t.Fatalf("reallocation failed: %v", err)
	}
	if slot2 != slot {
		t.Fatalf("freed slot %d not reused, got %d", slot, slot2)
	}
	if d := p.GetBuffer(slot2).Desc(); d.Width != 32 {
		t.Fatalf("slot %d holds stale buffer (width %d)", slot2, d.Width)
	}
}

func TestConsumerDequeueMetadataSizeMismatch(t *testing.T) {
	p, c := newTestQueuePair(t, 8)

	slot, err := p.AllocateBuffer(64, 64, 1, 0, 1)
	if err != nil {
		t.Fatalf("AllocateBuffer failed: %v", err)
	}
	if _, err := c.ImportBuffers(); err != nil {
		t.Fatalf("ImportBuffers failed: %v", err)
	}
	buf := p.GetBuffer(slot)
	if err := buf.Post(nil, make([]byte, 8)); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if err := c.WaitForBuffers(1000); err != nil {
		t.Fatalf("WaitForBuffers failed: %v", err)
	}

	before := c.Count()
	for _, size := range []int{0, 4, 16} {
		if _, _, _, err := c.Dequeue(0, make([]byte, size)); !errors.Is(err, ErrMetadataSize) {
			t.Fatalf("Dequeue with %d-byte metadata: expected ErrMetadataSize, got %v", size, err)
		}
	}
	if c.Count() != before {
		t.Fatalf("metadata-size rejection touched ring state: count %d -> %d", before, c.Count())
	}

	if _, _, _, err := c.Dequeue(0, make([]byte, 8)); err != nil {
		t.Fatalf("Dequeue with correct metadata size failed: %v", err)
	}
}

// White-box check of the detach/hang-up race bookkeeping: one pending flag
// absorbs exactly one hang-up, the next hang-up detaches for real, and a
// hang-up for a vacant slot is ignored.
func TestPendingHangupFlag(t *testing.T) {
	p, c := newTestQueuePair(t, 8)

	slot, err := p.AllocateBuffer(64, 64, 1, 0, 1)
	if err != nil {
		t.Fatalf("AllocateBuffer failed: %v", err)
	}
	if n, err := c.ImportBuffers(); err != nil || n != 1 {
		t.Fatalf("ImportBuffers = %d, %v; want 1, nil", n, err)
	}
	old := c.GetBuffer(slot)

	// Producer replaces the buffer: detach, then allocate into the same slot.
	if err := p.DetachBuffer(slot); err != nil {
		t.Fatalf("DetachBuffer failed: %v", err)
	}
	slot2, err := p.AllocateBuffer(64, 64, 1, 0, 1)
	if err != nil {
		t.Fatalf("reallocation failed: %v", err)
	}
	if slot2 != slot {
		t.Fatalf("expected slot %d to be reused, got %d", slot, slot2)
	}

	// The consumer imports the replacement before handling the stale
	// hang-up: the old buffer is detached locally and the slot flagged.
	if n, err := c.ImportBuffers(); err != nil || n != 1 {
		t.Fatalf("replacement import = %d, %v; want 1, nil", n, err)
	}
	if !c.hupPending[slot] {
		t.Fatal("pending flag not set by detach-then-add under one slot")
	}
	replacement := c.GetBuffer(slot)
	if replacement == nil || replacement == old {
		t.Fatal("slot does not hold the replacement buffer")
	}

	// Stale hang-up arrives: swallowed, replacement left intact.
	c.handleBufferEvent(pumpEvent{kind: eventSlot, slot: slot, hangup: true})
	if c.hupPending[slot] {
		t.Fatal("pending flag not cleared by the stale hang-up")
	}
	if c.GetBuffer(slot) != replacement {
		t.Fatal("stale hang-up detached the replacement buffer")
	}

	// A genuine hang-up detaches the replacement exactly once.
	c.handleBufferEvent(pumpEvent{kind: eventSlot, slot: slot, hangup: true})
	if c.GetBuffer(slot) != nil || c.Capacity() != 0 {
		t.Fatal("genuine hang-up did not detach the buffer")
	}

	// A third hang-up addresses a vacant slot and must be a no-op.
	c.handleBufferEvent(pumpEvent{kind: eventSlot, slot: slot, hangup: true})
	if c.Capacity() != 0 {
		t.Fatal("hang-up on vacant slot changed capacity")
	}
}

func TestGetEventMask(t *testing.T) {
	p, _ := newTestQueuePair(t, 8)

	if mask, err := p.GetEventMask(0x5); err != nil || mask != 0x5 {
		t.Fatalf("GetEventMask = %#x, %v; want 0x5, nil", mask, err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := p.GetEventMask(0x5); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("GetEventMask on closed queue: expected ErrQueueClosed, got %v", err)
	}
}

func TestQueueCloseReleasesSlots(t *testing.T) {
	p, c := newTestQueuePair(t, 8)

	for i := 0; i < 3; i++ {
		if _, err := p.AllocateBuffer(64, 64, 1, 0, 1); err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
	}
	if _, err := c.ImportBuffers(); err != nil {
		t.Fatalf("ImportBuffers failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("consumer Close failed: %v", err)
	}
	if c.Capacity() != 0 || c.Count() != 0 {
		t.Fatalf("after Close: count=%d capacity=%d, want 0/0", c.Count(), c.Capacity())
	}
	if _, _, _, err := c.Dequeue(0, make([]byte, 8)); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Dequeue on closed queue: expected ErrQueueClosed, got %v", err)
	}
}
