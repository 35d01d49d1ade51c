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
	"bytes"
	"testing"

	"github.com/valyala/fastrand"
)

// Circulate a small pool through many full ownership cycles with random
// per-frame metadata, checking that every hand-over carries the metadata
// posted for that slot and that the pool neither leaks nor duplicates
// buffers.
func TestCirculationStress(t *testing.T) {
	const (
		metaSize = 16
		pool     = 4
		frames   = 500
	)
	p, c := newTestQueuePair(t, metaSize)

	for i := 0; i < pool; i++ {
		if _, err := p.AllocateBuffer(64, 64, 1, 0, 1); err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
	}
	if n, err := c.ImportBuffers(); err != nil || n != pool {
		t.Fatalf("ImportBuffers = %d, %v; want %d, nil", n, err, pool)
	}

	var rng fastrand.RNG
	posted := make(map[int][]byte, pool)

	for frame := 0; frame < frames; frame++ {
		buf, slot, fence, err := p.Dequeue(2000)
		if err != nil {
			t.Fatalf("frame %d: producer Dequeue failed: %v", frame, err)
		}
		fence.Close()

		meta := make([]byte, metaSize)
		for i := range meta {
			meta[i] = byte(rng.Uint32())
		}
		posted[slot] = meta
		if err := buf.Post(nil, meta); err != nil {
			t.Fatalf("frame %d: Post failed: %v", frame, err)
		}

		got := make([]byte, metaSize)
		cbuf, cslot, cfence, err := c.Dequeue(2000, got)
		if err != nil {
			t.Fatalf("frame %d: consumer Dequeue failed: %v", frame, err)
		}
		cfence.Close()
		if want := posted[cslot]; !bytes.Equal(got, want) {
			t.Fatalf("frame %d: slot %d metadata mismatch: got %x, want %x", frame, cslot, got, want)
		}
		if err := cbuf.Release(nil); err != nil {
			t.Fatalf("frame %d: Release failed: %v", frame, err)
		}
	}

	// Drain the producer's pending hand-backs; the whole pool must end up
	// available again on the producer side.
	for p.Count() < pool {
		if err := p.WaitForBuffers(2000); err != nil {
			t.Fatalf("final drain failed: %v", err)
		}
	}
	if p.Capacity() != pool || c.Capacity() != pool {
		t.Fatalf("pool changed size: producer=%d consumer=%d, want %d",
			p.Capacity(), c.Capacity(), pool)
	}
}
