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

// epoller wraps one epoll instance. Registrations are level-triggered; the
// tag travels in the event data field and comes back verbatim on wakeup.
type epoller struct {
	fd  int
	raw []unix.EpollEvent
}

func newEpoller() (*epoller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("bufferhub: epoll_create1: %w", err)
	}
	return &epoller{fd: fd, raw: make([]unix.EpollEvent, maxEvents)}, nil
}

// add registers fd for readability and hang-up under the given tag.
func (e *epoller) add(fd int, tag int64) error {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLHUP,
		Fd:     int32(tag),
	}
	if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("bufferhub: epoll_ctl add: %w", err)
	}
	return nil
}

// remove drops the registration for fd.
func (e *epoller) remove(fd int) error {
	if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("bufferhub: epoll_ctl del: %w", err)
	}
	return nil
}

// wait blocks for up to timeoutMs milliseconds (-1 blocks indefinitely) and
// decodes up to len(dst) readiness events. Interrupted waits are retried;
// callers re-check their deadline after every return.
func (e *epoller) wait(dst []pumpEvent, timeoutMs int) (int, error) {
	raw := e.raw
	if len(dst) < len(raw) {
		raw = raw[:len(dst)]
	}
	for {
		n, err := unix.EpollWait(e.fd, raw, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("bufferhub: epoll_wait: %w", err)
		}
		for i := 0; i < n; i++ {
			ev := decodeTag(int64(raw[i].Fd))
			ev.readable = raw[i].Events&unix.EPOLLIN != 0
			ev.hangup = raw[i].Events&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0
			dst[i] = ev
		}
		return n, nil
	}
}

func (e *epoller) valid() bool {
	return e != nil && e.fd >= 0
}

func (e *epoller) close() error {
	if e.fd < 0 {
		return nil
	}
	fd := e.fd
	e.fd = -1
	return unix.Close(fd)
}
