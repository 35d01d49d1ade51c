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

// ConsumerQueue is the importing side of a buffer queue. Imported buffers
// stay out of the availability ring until the producer posts them; the
// event pump acquires a posted buffer and enqueues it for Dequeue.
type ConsumerQueue struct {
	*Queue
	hub *Hub

	// importCursor indexes the hub's allocation log; everything before it
	// has been imported (or skipped as already detached).
	importCursor int
}

// NewConsumerQueue attaches a consumer queue to hub. The queue-level
// doorbell is registered under the sentinel tag so remote allocations wake
// the event pump.
func NewConsumerQueue(hub *Hub) (*ConsumerQueue, error) {
	c := &ConsumerQueue{hub: hub}
	q, err := newQueue(c, hub.MetadataSize(), hub.log)
	if err != nil {
		return nil, err
	}
	ch, err := hub.attachConsumer()
	if err != nil {
		q.Close()
		return nil, err
	}
	if err := q.ep.add(ch.fd, queueEventTag); err != nil {
		ch.close()
		q.Close()
		return nil, err
	}
	q.queueCh = ch
	c.Queue = q
	return c, nil
}

// ImportBuffers fetches every buffer allocated since the last import and
// adds each under the slot the producer used. Imported buffers are not
// available until the producer posts them. Returns the number of buffers
// imported.
func (c *ConsumerQueue) ImportBuffers() (int, error) {
	bufs, next, err := c.hub.importBuffers(c.importCursor)
	c.importCursor = next
	count := 0
	for _, buf := range bufs {
		if addErr := c.addBuffer(buf); addErr != nil {
			buf.closeClient()
			if err == nil {
				err = addErr
			}
			continue
		}
		count++
	}
	return count, err
}

// addBuffer registers an imported buffer under its producer-assigned slot.
// If the slot still holds a previous buffer the producer has since replaced,
// the old one is detached first and the slot is flagged so the old buffer's
// stale hang-up, possibly still queued behind the allocation event, gets
// swallowed instead of detaching the new buffer.
func (c *ConsumerQueue) addBuffer(buf *ConsumerBuffer) error {
	slot := buf.Slot()
	if slot < 0 || slot >= MaxQueueCapacity {
		return ErrInvalidSlot
	}
	if c.buffers[slot] != nil {
		if err := c.detachBuffer(slot); err != nil {
			return err
		}
		c.hupPending[slot] = true
	}
	return c.Queue.addBuffer(buf, slot)
}

// Dequeue returns a readable buffer, its slot and the acquire fence. meta
// receives the metadata the producer posted and its length must equal the
// queue's fixed metadata size; a mismatch fails without touching ring
// state. See Queue.dequeue for timeout semantics. The caller releases the
// buffer when done reading, which hands it back to the producer side.
func (c *ConsumerQueue) Dequeue(timeoutMs int, meta []byte) (*ConsumerBuffer, int, *Fence, error) {
	if len(meta) != c.metaSize {
		return nil, 0, nil, ErrMetadataSize
	}
	buf, slot, fence, err := c.dequeue(timeoutMs, meta)
	if err != nil {
		return nil, 0, nil, err
	}
	return buf.(*ConsumerBuffer), slot, fence, nil
}

// GetBuffer returns the consumer buffer at slot, or nil if the slot is
// vacant or out of range.
func (c *ConsumerQueue) GetBuffer(slot int) *ConsumerBuffer {
	if slot < 0 || slot >= MaxQueueCapacity {
		return nil
	}
	buf, _ := c.buffers[slot].(*ConsumerBuffer)
	return buf
}

// onBufferReady runs when the producer posts a buffer: acquire it, copy the
// posted metadata into the slot blob and return the acquire fence. The core
// enqueues the buffer on success, making it available to Dequeue.
func (c *ConsumerQueue) onBufferReady(buf bufferClient, meta []byte) (*Fence, error) {
	cb, ok := buf.(*ConsumerBuffer)
	if !ok {
		return nil, ErrBadEvent
	}
	return cb.Acquire(meta)
}

// onBufferAllocated imports whatever the producer allocated since the last
// pass.
func (c *ConsumerQueue) onBufferAllocated() error {
	_, err := c.ImportBuffers()
	return err
}

func (c *ConsumerQueue) detachSlot(slot int) error {
	return c.detachBuffer(slot)
}
