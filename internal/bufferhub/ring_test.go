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

import "testing"

func TestEntryRingFIFO(t *testing.T) {
	r := newEntryRing(4)
	for i := 0; i < 4; i++ {
		if !r.append(bufferInfo{slot: i}) {
			t.Fatalf("append %d failed on non-full ring", i)
		}
	}
	if !r.isFull() {
		t.Fatal("ring should be full after 4 appends")
	}
	if r.append(bufferInfo{slot: 99}) {
		t.Fatal("append succeeded on full ring")
	}
	for i := 0; i < 4; i++ {
		e, ok := r.popFront()
		if !ok {
			t.Fatalf("popFront %d failed on non-empty ring", i)
		}
		if e.slot != i {
			t.Fatalf("FIFO order violated: expected slot %d, got %d", i, e.slot)
		}
	}
	if !r.isEmpty() {
		t.Fatal("ring should be empty after draining")
	}
	if _, ok := r.popFront(); ok {
		t.Fatal("popFront succeeded on empty ring")
	}
}

func TestEntryRingWrapAround(t *testing.T) {
	r := newEntryRing(4)
	next := 0
	// Push/pop more entries than the capacity so the cursors wrap.
	for i := 0; i < 13; i++ {
		if !r.append(bufferInfo{slot: i}) {
			t.Fatalf("append %d failed", i)
		}
		if r.size() < 2 {
			continue
		}
		e, ok := r.popFront()
		if !ok {
			t.Fatalf("popFront failed at %d", i)
		}
		if e.slot != next {
			t.Fatalf("expected slot %d, got %d", next, e.slot)
		}
		next++
	}
}

func TestEntryRingRemoveSlot(t *testing.T) {
	r := newEntryRing(8)
	for _, s := range []int{3, 1, 3, 5, 2} {
		r.append(bufferInfo{slot: s})
	}
	r.removeSlot(3)
	if r.size() != 3 {
		t.Fatalf("expected 3 entries after removeSlot, got %d", r.size())
	}
	want := []int{1, 5, 2}
	for i, w := range want {
		e, ok := r.popFront()
		if !ok || e.slot != w {
			t.Fatalf("entry %d: expected slot %d, got %d (ok=%v)", i, w, e.slot, ok)
		}
	}
}

func TestRoundUpPowerOfTwo(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 2}, {1, 2}, {2, 2}, {3, 4}, {4, 4}, {5, 8}, {63, 64}, {64, 64},
	}
	for _, c := range cases {
		if got := roundUpPowerOfTwo(c.in); got != uint64(c.want) {
			t.Errorf("roundUpPowerOfTwo(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}
