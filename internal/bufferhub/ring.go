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

// bufferInfo is one availability-ring entry. The slot table owns the buffer
// and the metadata blob; the entry carries second references to both, never
// copies. Slot and buffer are immutable after creation.
type bufferInfo struct {
	slot     int
	buffer   bufferClient
	metadata []byte
}

// entryRing is a fixed-capacity FIFO of bufferInfo values. Capacity is a
// power of two so positions reduce to a mask. A queue instance is single
// owner, so there is no synchronization here.
type entryRing struct {
	entries []bufferInfo

	// 64-bit monotonic cursors. head is the next pop position, tail the
	// next push position; size is tail-head.
	head uint64
	tail uint64
	mask uint64
}

// roundUpPowerOfTwo returns the next power of two >= n, minimum 2.
func roundUpPowerOfTwo(n int) uint64 {
	if n < 2 {
		return 2
	}
	x := uint64(n)
	if x&(x-1) == 0 {
		return x
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	return x
}

func newEntryRing(capacity int) *entryRing {
	c := roundUpPowerOfTwo(capacity)
	return &entryRing{
		entries: make([]bufferInfo, c),
		mask:    c - 1,
	}
}

func (r *entryRing) size() int {
	return int(r.tail - r.head)
}

func (r *entryRing) isEmpty() bool {
	return r.tail == r.head
}

func (r *entryRing) isFull() bool {
	return r.tail-r.head == uint64(len(r.entries))
}

// append pushes e at the back. Returns false if the ring is full.
func (r *entryRing) append(e bufferInfo) bool {
	if r.isFull() {
		return false
	}
	r.entries[r.tail&r.mask] = e
	r.tail++
	return true
}

// popFront removes and returns the front entry in FIFO order.
func (r *entryRing) popFront() (bufferInfo, bool) {
	if r.isEmpty() {
		return bufferInfo{}, false
	}
	e := r.entries[r.head&r.mask]
	r.entries[r.head&r.mask] = bufferInfo{}
	r.head++
	return e, true
}

// removeSlot drops every entry that refers to slot, preserving the relative
// order of the remaining entries. Used when a slot is detached while still
// enqueued.
func (r *entryRing) removeSlot(slot int) {
	n := r.size()
	for i := 0; i < n; i++ {
		e, _ := r.popFront()
		if e.slot != slot {
			r.append(e)
		}
	}
}
