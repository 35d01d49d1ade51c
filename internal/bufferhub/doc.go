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

// Package bufferhub implements a bounded queue that circulates a fixed pool
// of shared graphics buffers between one producer and one or more consumers.
//
// Each queue instance tracks up to 64 buffer slots. A buffer is assigned a
// slot when it is allocated (producer side) or imported (consumer side) and
// keeps that slot for its whole lifetime. An availability ring holds the
// buffers currently eligible for Dequeue on this side; the slot table keeps
// the long-lived reference so that a buffer removed from the ring stays
// alive while the caller holds it.
//
// Hand-overs between the two roles are observed through an epoll instance:
// one registration per active slot plus a sentinel registration for
// queue-level events such as "a new buffer was allocated". Buffers alternate
// between the roles through a four-state ownership protocol
// (gained -> posted -> acquired -> released) enforced by the buffer objects
// themselves; the queues only react to readiness events.
package bufferhub
