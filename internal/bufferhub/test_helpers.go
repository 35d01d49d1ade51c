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
	"io"
	"log/slog"
	"testing"

	"golang.org/x/sys/unix"
)

// newTestHub creates a hub with a quiet logger and registers cleanup.
func newTestHub(t *testing.T, metaSize int) *Hub {
	t.Helper()
	h := NewHub(metaSize, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { h.Close() })
	return h
}

// newTestQueuePair creates a hub plus an attached producer and consumer
// queue, all cleaned up with the test.
func newTestQueuePair(t *testing.T, metaSize int) (*ProducerQueue, *ConsumerQueue) {
	t.Helper()
	h := newTestHub(t, metaSize)
	p, err := NewProducerQueue(h)
	if err != nil {
		t.Fatalf("failed to create producer queue: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	c, err := p.CreateConsumerQueue()
	if err != nil {
		t.Fatalf("failed to create consumer queue: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return p, c
}

// newTestFence wraps a fresh eventfd as a fence handle.
func newTestFence(t *testing.T) *Fence {
	t.Helper()
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		t.Fatalf("failed to create eventfd fence: %v", err)
	}
	return NewFence(fd)
}
