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

// The 64-bit data field of a readiness registration carries a tag: values in
// [0, MaxQueueCapacity) address a buffer slot, queueEventTag addresses the
// queue itself (e.g. a buffer was allocated remotely). Tags are decoded once
// at the pump boundary into a pumpEvent so dispatch is exhaustive.

// queueEventTag marks the queue-level registration.
const queueEventTag int64 = -1

type eventKind uint8

const (
	eventInvalid eventKind = iota
	eventSlot
	eventQueue
)

// pumpEvent is the decoded form of one readiness wakeup.
type pumpEvent struct {
	kind     eventKind
	slot     int // valid only when kind == eventSlot
	readable bool
	hangup   bool
}

func isBufferTag(tag int64) bool {
	return tag >= 0 && tag < int64(MaxQueueCapacity)
}

func isQueueTag(tag int64) bool {
	return tag == queueEventTag
}

// decodeTag classifies a raw registration tag. Readiness flags are filled in
// by the platform wait call.
func decodeTag(tag int64) pumpEvent {
	switch {
	case isBufferTag(tag):
		return pumpEvent{kind: eventSlot, slot: int(tag)}
	case isQueueTag(tag):
		return pumpEvent{kind: eventQueue}
	default:
		return pumpEvent{kind: eventInvalid}
	}
}
