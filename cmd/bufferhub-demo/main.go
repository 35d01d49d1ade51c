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

// Command bufferhub-demo circulates a small pool of buffers between a
// producer queue and a consumer queue attached to the same hub, printing
// each hand-over.
package main

import (
	"encoding/binary"
	"log/slog"
	"os"
	"runtime"

	"github.com/apq8084/bufferhub/internal/bufferhub"
)

const (
	metadataSize = 8
	frameCount   = 6
	poolSize     = 2
)

func main() {
	if runtime.GOOS != "linux" {
		slog.Info("bufferhub-demo requires linux, skipping", slog.String("goos", runtime.GOOS))
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	hub := bufferhub.NewHub(metadataSize, log)
	defer hub.Close()

	producer, err := bufferhub.NewProducerQueueWithPolicy(hub, bufferhub.UsagePolicy{
		SetMask: 0x1, // force the "sampled" usage bit on every allocation
	})
	if err != nil {
		log.Error("create producer queue", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer producer.Close()

	consumer, err := producer.CreateConsumerQueue()
	if err != nil {
		log.Error("create consumer queue", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer consumer.Close()

	for i := 0; i < poolSize; i++ {
		slot, err := producer.AllocateBuffer(640, 480, 1, 0, 1)
		if err != nil {
			log.Error("allocate buffer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("allocated", slog.Int("slot", slot))
	}

	if n, err := consumer.ImportBuffers(); err != nil {
		log.Error("import buffers", slog.String("error", err.Error()))
		os.Exit(1)
	} else {
		log.Info("imported", slog.Int("count", n))
	}

	meta := make([]byte, metadataSize)
	for frame := 0; frame < frameCount; frame++ {
		buf, slot, _, err := producer.Dequeue(1000)
		if err != nil {
			log.Error("producer dequeue", slog.String("error", err.Error()))
			os.Exit(1)
		}
		binary.LittleEndian.PutUint64(meta, uint64(frame))
		if err := buf.Post(nil, meta); err != nil {
			log.Error("post", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("posted", slog.Int("frame", frame), slog.Int("slot", slot))

		got := make([]byte, metadataSize)
		cbuf, cslot, fence, err := consumer.Dequeue(1000, got)
		if err != nil {
			log.Error("consumer dequeue", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fence.Close()
		log.Info("consumed",
			slog.Uint64("frame", binary.LittleEndian.Uint64(got)),
			slog.Int("slot", cslot))
		if err := cbuf.Release(nil); err != nil {
			log.Error("release", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	log.Info("done",
		slog.Int("producer_capacity", producer.Capacity()),
		slog.Int("consumer_capacity", consumer.Capacity()))
}
