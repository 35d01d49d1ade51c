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

// bufferState is the ownership state of a buffer as it alternates between
// the producer and consumer roles.
//
//	gained   - producer owns it and may write
//	posted   - handed to the consumer side
//	acquired - consumer owns it and may read
//	released - handed back to the producer side
//	detached - terminal; the slot may be reused by a different buffer
type bufferState uint8

const (
	stateGained bufferState = iota
	statePosted
	stateAcquired
	stateReleased
	stateDetached
)

func (s bufferState) String() string {
	switch s {
	case stateGained:
		return "gained"
	case statePosted:
		return "posted"
	case stateAcquired:
		return "acquired"
	case stateReleased:
		return "released"
	case stateDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// BufferDesc describes a buffer allocation request. Format and usage bits
// are opaque to this package; they are negotiated elsewhere and passed
// through to the allocation service unchanged.
type BufferDesc struct {
	Width      int
	Height     int
	Format     int
	Usage      uint64
	SliceCount int
}

// buffer is the client-side view of one shared buffer: the hub record holds
// the shared state (ownership state, metadata, fence), the channel is this
// side's doorbell end registered with the queue's multiplexer.
type buffer struct {
	slot int
	rec  *bufferRecord
	ch   *channel
}

// bufferClient is the role-agnostic view the queue core tracks per slot.
type bufferClient interface {
	Slot() int
	Desc() BufferDesc
	eventFD() int
	drainEvents() int
	closeClient() error
}

// Slot returns the logical slot index assigned at allocation time. It never
// changes for the lifetime of the buffer.
func (b *buffer) Slot() int {
	return b.slot
}

// Desc returns the allocation description of the buffer.
func (b *buffer) Desc() BufferDesc {
	b.rec.mu.Lock()
	defer b.rec.mu.Unlock()
	return b.rec.desc
}

func (b *buffer) eventFD() int {
	return b.ch.fd
}

func (b *buffer) drainEvents() int {
	return b.ch.drain()
}

func (b *buffer) closeClient() error {
	return b.ch.close()
}

// ProducerBuffer is the producer-side view of a shared buffer.
type ProducerBuffer struct {
	buffer
}

// Post hands the buffer to the consumer side together with a fence and the
// metadata blob for this frame. The buffer must be in the gained state and
// meta must match the queue's fixed metadata size exactly. Ownership of the
// fence transfers to the buffer.
func (b *ProducerBuffer) Post(fence *Fence, meta []byte) error {
	r := b.rec
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateGained {
		return ErrBufferState
	}
	if len(meta) != len(r.meta) {
		return ErrMetadataSize
	}
	copy(r.meta, meta)
	r.setFence(fence)
	r.state = statePosted
	for _, c := range r.consSvc {
		c.signal()
	}
	return nil
}

// Gain takes the buffer back after the consumer released it, returning the
// release fence. The buffer must be in the released state. A freshly
// allocated buffer starts gained and does not need this call.
func (b *ProducerBuffer) Gain() (*Fence, error) {
	r := b.rec
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateReleased {
		return nil, ErrBufferState
	}
	r.state = stateGained
	return r.takeFence(), nil
}

// ConsumerBuffer is the consumer-side view of a shared buffer.
type ConsumerBuffer struct {
	buffer
}

// Acquire takes a posted buffer for reading. The metadata the producer
// posted is copied into meta (which must match the fixed metadata size, or
// be nil to skip the copy) and the acquire fence is returned.
func (b *ConsumerBuffer) Acquire(meta []byte) (*Fence, error) {
	r := b.rec
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != statePosted {
		return nil, ErrBufferState
	}
	if meta != nil {
		if len(meta) != len(r.meta) {
			return nil, ErrMetadataSize
		}
		copy(meta, r.meta)
	}
	r.state = stateAcquired
	return r.takeFence(), nil
}

// Release hands the buffer back to the producer side with a release fence.
// The buffer must be in the acquired state. Ownership of the fence
// transfers to the buffer.
func (b *ConsumerBuffer) Release(fence *Fence) error {
	r := b.rec
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateAcquired {
		return ErrBufferState
	}
	r.setFence(fence)
	r.state = stateReleased
	return r.prodSvc.signal()
}
