// Copyright 2025 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package weakhash

// Option provides an interface to do work on a Table while it is being
// created.
type Option[H any] interface {
	apply(s *settings[H])
}

// settings holds the tunable construction parameters for a Table.
type settings[H any] struct {
	capacity  int
	maxLoad   float64
	allocator Allocator[H]
}

func defaultSettings[H any]() settings[H] {
	return settings[H]{
		capacity:  defaultBucketCount,
		maxLoad:   defaultMaxLoad,
		allocator: defaultAllocator[H]{},
	}
}

type capacityOption[H any] struct {
	capacity int
}

func (op capacityOption[H]) apply(s *settings[H]) {
	s.capacity = op.capacity
}

// WithCapacity is an option to specify the initial bucket count of a
// Table. The default is 8.
func WithCapacity[H any](capacity int) Option[H] {
	return capacityOption[H]{capacity}
}

type maxLoadOption[H any] struct {
	maxLoad float64
}

func (op maxLoadOption[H]) apply(s *settings[H]) {
	s.maxLoad = op.maxLoad
}

// WithMaxLoad is an option to specify the load factor beyond which a Table
// grows. The default is 0.75. Note that the load factor is computed from
// the table's size counter, which over-approximates the live entry count
// (see Table.Len).
func WithMaxLoad[H any](maxLoad float64) Option[H] {
	return maxLoadOption[H]{maxLoad}
}

// Allocator specifies an interface for allocating and releasing the bucket
// storage used by a Table. The default allocator uses Go's builtin make()
// and lets the GC reclaim memory.
//
// If the allocator is manually managing memory then Table.Close must be
// called in order to ensure Free is called.
type Allocator[H any] interface {
	// Alloc should return a slice equivalent to make([]Bucket[H], n).
	Alloc(n int) []Bucket[H]

	// Free can optionally release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by Alloc.
	Free(buckets []Bucket[H])
}

type defaultAllocator[H any] struct{}

func (defaultAllocator[H]) Alloc(n int) []Bucket[H] {
	return make([]Bucket[H], n)
}

func (defaultAllocator[H]) Free(buckets []Bucket[H]) {
}

type allocatorOption[H any] struct {
	allocator Allocator[H]
}

func (op allocatorOption[H]) apply(s *settings[H]) {
	s.allocator = op.allocator
}

// WithAllocator is an option to specify the Allocator to use for a Table.
func WithAllocator[H any](allocator Allocator[H]) Option[H] {
	return allocatorOption[H]{allocator}
}
