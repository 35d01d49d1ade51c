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

// Fence owns a synchronization file descriptor attached to a buffer
// hand-over. A nil *Fence means "no fence". Each slot holds at most one
// fence at a time; storing a new fence closes the previous one.
type Fence struct {
	fd int
}

// NewFence wraps fd as an owned fence handle. Passing a negative fd yields
// an invalid fence, which Close treats as a no-op.
func NewFence(fd int) *Fence {
	return &Fence{fd: fd}
}

// Valid reports whether the fence holds an open descriptor.
func (f *Fence) Valid() bool {
	return f != nil && f.fd >= 0
}

// FD returns the underlying descriptor without transferring ownership.
// Returns -1 for a nil or closed fence.
func (f *Fence) FD() int {
	if f == nil {
		return -1
	}
	return f.fd
}

// Release transfers ownership of the descriptor to the caller and
// invalidates the fence.
func (f *Fence) Release() int {
	if f == nil {
		return -1
	}
	fd := f.fd
	f.fd = -1
	return fd
}

// Close releases the descriptor. Safe on nil and already-closed fences.
func (f *Fence) Close() error {
	if f == nil || f.fd < 0 {
		return nil
	}
	fd := f.fd
	f.fd = -1
	return closeFD(fd)
}
