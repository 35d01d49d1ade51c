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
	"fmt"

	"golang.org/x/sys/unix"
)

// channel is one end of a doorbell pair. A signal is a one-byte datagram;
// closing the peer end surfaces as a hang-up at the multiplexer. Doorbells
// coalesce: a full socket buffer still leaves the reader readable.
type channel struct {
	fd int
}

// newChannelPair returns the two connected ends of a doorbell. Both ends are
// nonblocking; the caller decides which end goes to which side.
func newChannelPair() (*channel, *channel, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX,
		unix.SOCK_SEQPACKET|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("bufferhub: socketpair: %w", err)
	}
	return &channel{fd: fds[0]}, &channel{fd: fds[1]}, nil
}

// signal rings the doorbell on the peer end. A full buffer is not an error:
// the peer is already readable and the signals coalesce. A gone peer is
// reported so callers can treat the channel as hung up.
func (c *channel) signal() error {
	if c == nil || c.fd < 0 {
		return ErrQueueClosed
	}
	_, err := unix.Write(c.fd, []byte{1})
	switch err {
	case nil, unix.EAGAIN:
		return nil
	case unix.EPIPE, unix.ECONNRESET:
		return ErrQueueClosed
	default:
		return fmt.Errorf("bufferhub: doorbell signal: %w", err)
	}
}

// drain consumes all pending doorbell datagrams and returns how many were
// read. A zero return with the descriptor still open means a spurious wake
// or a hang-up.
func (c *channel) drain() int {
	if c == nil || c.fd < 0 {
		return 0
	}
	var buf [16]byte
	n := 0
	for {
		r, _ := unix.Read(c.fd, buf[:])
		if r <= 0 {
			return n
		}
		n++
	}
}

func (c *channel) close() error {
	if c == nil || c.fd < 0 {
		return nil
	}
	fd := c.fd
	c.fd = -1
	return unix.Close(fd)
}

func closeFD(fd int) error {
	return unix.Close(fd)
}
