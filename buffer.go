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

import "fmt"

// buffer is a fixed-capacity arena of element slots. Every slot is
// initialized at construction and the buffer never reallocates in place:
// growth is always performed by building a new buffer, migrating, and
// swapping. A buffer exclusively owns its backing storage and is only ever
// passed by pointer; duplicating a buffer value would alias the arena.
type buffer[T any] struct {
	elems []T
}

// makeBuffer wraps a fully initialized element slice, typically obtained
// from an Allocator.
func makeBuffer[T any](elems []T) buffer[T] {
	return buffer[T]{elems: elems}
}

// makeBufferOf constructs a buffer of n slots, each copy-initialized from
// example.
func makeBufferOf[T any](n int, example T) buffer[T] {
	elems := make([]T, n)
	for i := range elems {
		elems[i] = example
	}
	return buffer[T]{elems: elems}
}

// Len returns the fixed slot count.
func (b *buffer[T]) Len() int {
	return len(b.elems)
}

// Empty reports whether the buffer holds no slots.
func (b *buffer[T]) Empty() bool {
	return len(b.elems) == 0
}

// At returns a pointer to the slot at index i for in-place access. An
// out-of-range index is a precondition violation and panics.
func (b *buffer[T]) At(i int) *T {
	if i < 0 || i >= len(b.elems) {
		panic(fmt.Sprintf("weakhash: buffer index %d out of range [0,%d)", i, len(b.elems)))
	}
	return &b.elems[i]
}

// Swap exchanges the full contents of two buffers in O(1).
func (b *buffer[T]) Swap(other *buffer[T]) {
	b.elems, other.elems = other.elems, b.elems
}

// Clear releases all slots, leaving the buffer sized 0.
func (b *buffer[T]) Clear() {
	b.elems = nil
}

// Detach transfers ownership of the backing storage to the caller and
// leaves the buffer empty. Used to hand storage back to an Allocator.
func (b *buffer[T]) Detach() []T {
	elems := b.elems
	b.elems = nil
	return elems
}
