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
	"fmt"
)

// UsagePolicy constrains the usage bits of every allocation through a
// producer queue. Bits in SetMask are forced on and bits in ClearMask are
// forced off, with SetMask taking precedence on conflict. A request is
// rejected before it reaches the allocation service if it carries any bit
// in DenySetMask or omits any bit in DenyClearMask. DenySetMask and
// DenyClearMask must not overlap.
type UsagePolicy struct {
	SetMask       uint64
	ClearMask     uint64
	DenySetMask   uint64
	DenyClearMask uint64
}

// apply returns the effective usage bits for a request.
func (p UsagePolicy) apply(usage uint64) uint64 {
	return (usage &^ p.ClearMask) | p.SetMask
}

// check validates the requested usage bits against the deny masks.
func (p UsagePolicy) check(usage uint64) error {
	if usage&p.DenySetMask != 0 {
		return fmt.Errorf("%w: usage %#x carries denied bits %#x",
			ErrUsageDenied, usage, usage&p.DenySetMask)
	}
	if usage&p.DenyClearMask != p.DenyClearMask {
		return fmt.Errorf("%w: usage %#x omits required bits %#x",
			ErrUsageDenied, usage, p.DenyClearMask&^usage)
	}
	return nil
}

// ProducerQueue is the allocating side of a buffer queue. Dequeue yields
// buffers in the writable (gained) state; posting a buffer hands it to the
// consumer side, and the event pump re-enqueues it when the consumer
// releases it.
type ProducerQueue struct {
	*Queue
	hub    *Hub
	policy UsagePolicy
}

// NewProducerQueue creates a producer queue on hub with an unrestricted
// usage policy.
func NewProducerQueue(hub *Hub) (*ProducerQueue, error) {
	return NewProducerQueueWithPolicy(hub, UsagePolicy{})
}

// NewProducerQueueWithPolicy creates a producer queue whose allocations are
// constrained by policy. Conflicting deny masks are rejected here, before
// any allocation can happen.
func NewProducerQueueWithPolicy(hub *Hub, policy UsagePolicy) (*ProducerQueue, error) {
	if policy.DenySetMask&policy.DenyClearMask != 0 {
		return nil, ErrInvalidUsagePolicy
	}
	p := &ProducerQueue{hub: hub, policy: policy}
	q, err := newQueue(p, hub.MetadataSize(), hub.log)
	if err != nil {
		return nil, err
	}
	p.Queue = q
	return p, nil
}

// CreateConsumerQueue attaches a new consumer queue to the same hub.
func (p *ProducerQueue) CreateConsumerQueue() (*ConsumerQueue, error) {
	return NewConsumerQueue(p.hub)
}

// AllocateBuffer requests a new buffer from the allocation service with the
// queue's usage policy applied and adds it to the queue. A newly allocated
// buffer starts writable and is immediately available for Dequeue. Returns
// the assigned slot.
func (p *ProducerQueue) AllocateBuffer(width, height, format int, usage uint64, sliceCount int) (int, error) {
	if err := p.policy.check(usage); err != nil {
		return 0, err
	}
	desc := BufferDesc{
		Width:      width,
		Height:     height,
		Format:     format,
		Usage:      p.policy.apply(usage),
		SliceCount: sliceCount,
	}
	buf, slot, err := p.hub.AllocateBuffer(desc)
	if err != nil {
		return 0, err
	}
	if err := p.AddBuffer(buf, slot); err != nil {
		buf.closeClient()
		p.hub.detachBuffer(slot)
		return 0, err
	}
	return slot, nil
}

// AddBuffer registers a producer buffer under slot and makes it available
// immediately; the buffer must be in the gained state.
func (p *ProducerQueue) AddBuffer(buf *ProducerBuffer, slot int) error {
	if err := p.addBuffer(buf, slot); err != nil {
		return err
	}
	return p.enqueue(buf, slot)
}

// DetachBuffer removes the buffer at slot from the queue and tells the hub,
// which surfaces a hang-up on the consumer side. The caller must not detach
// a slot it is actively holding from an unreturned Dequeue.
func (p *ProducerQueue) DetachBuffer(slot int) error {
	if err := p.detachBuffer(slot); err != nil {
		return err
	}
	// The hub has already dropped the record when the detach originated
	// remotely (hang-up path).
	if err := p.hub.detachBuffer(slot); err != nil && !errors.Is(err, ErrSlotVacant) {
		return err
	}
	return nil
}

// Dequeue returns a writable buffer, its slot and the release fence from
// the previous hand-back. See Queue.dequeue for timeout semantics. The
// caller posts the buffer when done writing, which is what makes it visible
// to the consumer side.
func (p *ProducerQueue) Dequeue(timeoutMs int) (*ProducerBuffer, int, *Fence, error) {
	buf, slot, fence, err := p.dequeue(timeoutMs, nil)
	if err != nil {
		return nil, 0, nil, err
	}
	return buf.(*ProducerBuffer), slot, fence, nil
}

// GetBuffer returns the producer buffer at slot, or nil if the slot is
// vacant or out of range.
func (p *ProducerQueue) GetBuffer(slot int) *ProducerBuffer {
	if slot < 0 || slot >= MaxQueueCapacity {
		return nil
	}
	buf, _ := p.buffers[slot].(*ProducerBuffer)
	return buf
}

// onBufferReady runs when the consumer side hands a buffer back: regain it
// so it becomes writable again. The core re-enqueues on success.
func (p *ProducerQueue) onBufferReady(buf bufferClient, _ []byte) (*Fence, error) {
	pb, ok := buf.(*ProducerBuffer)
	if !ok {
		return nil, ErrBadEvent
	}
	return pb.Gain()
}

// onBufferAllocated is a no-op: the producer initiates allocations, it
// never learns about them from the hub.
func (p *ProducerQueue) onBufferAllocated() error {
	return nil
}

func (p *ProducerQueue) detachSlot(slot int) error {
	return p.DetachBuffer(slot)
}
