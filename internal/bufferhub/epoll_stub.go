//go:build !linux

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

// Stub multiplexer for platforms without epoll. Queue construction fails
// with ErrNotSupported; the methods exist only to satisfy callers.

type epoller struct{}

func newEpoller() (*epoller, error) {
	return nil, ErrNotSupported
}

func (e *epoller) add(int, int64) error {
	return ErrNotSupported
}

func (e *epoller) remove(int) error {
	return ErrNotSupported
}

func (e *epoller) wait([]pumpEvent, int) (int, error) {
	return 0, ErrNotSupported
}

func (e *epoller) valid() bool {
	return false
}

func (e *epoller) close() error {
	return nil
}
