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

import "errors"

var (
	// ErrTimedOut is returned by Dequeue when a positive timeout expires
	// before a buffer becomes available.
	ErrTimedOut = errors.New("bufferhub: timed out")

	// ErrWouldBlock is returned by Dequeue with a zero timeout when the
	// availability ring is empty. It is distinct from a genuine failure.
	ErrWouldBlock = errors.New("bufferhub: would block")

	// ErrInvalidSlot indicates a slot index outside [0, MaxQueueCapacity).
	ErrInvalidSlot = errors.New("bufferhub: invalid slot")

	// ErrSlotOccupied indicates an add to a slot that already holds a buffer.
	ErrSlotOccupied = errors.New("bufferhub: slot occupied")

	// ErrSlotVacant indicates an operation on a slot with no buffer.
	ErrSlotVacant = errors.New("bufferhub: slot vacant")

	// ErrQueueFull indicates the availability ring cannot take another entry.
	ErrQueueFull = errors.New("bufferhub: queue full")

	// ErrNoFreeSlot indicates the hub has no unassigned slot left.
	ErrNoFreeSlot = errors.New("bufferhub: no free slot")

	// ErrMetadataSize indicates a caller-supplied metadata buffer whose
	// length differs from the queue's fixed metadata size.
	ErrMetadataSize = errors.New("bufferhub: metadata size mismatch")

	// ErrUsageDenied indicates an allocation whose usage bits violate the
	// producer queue's deny masks.
	ErrUsageDenied = errors.New("bufferhub: usage denied by policy")

	// ErrInvalidUsagePolicy indicates conflicting deny-set and deny-clear
	// masks at producer queue creation.
	ErrInvalidUsagePolicy = errors.New("bufferhub: conflicting usage deny masks")

	// ErrBufferState indicates a buffer operation that is illegal in the
	// buffer's current ownership state, e.g. posting a buffer twice.
	ErrBufferState = errors.New("bufferhub: invalid buffer state")

	// ErrQueueClosed indicates an operation on a closed queue or hub.
	ErrQueueClosed = errors.New("bufferhub: queue closed")

	// ErrBadEvent indicates a readiness event that does not decode to a
	// valid slot or queue tag. This is an internal consistency failure,
	// not caller or remote misuse.
	ErrBadEvent = errors.New("bufferhub: malformed readiness event")

	// ErrNotSupported is returned on platforms without epoll support.
	ErrNotSupported = errors.New("bufferhub: not supported on this platform")
)
