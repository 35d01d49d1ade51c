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

type channel struct {
	fd int
}

func newChannelPair() (*channel, *channel, error) {
	return nil, nil, ErrNotSupported
}

func (c *channel) signal() error {
	return ErrNotSupported
}

func (c *channel) drain() int {
	return 0
}

func (c *channel) close() error {
	return nil
}

func closeFD(int) error {
	return ErrNotSupported
}
