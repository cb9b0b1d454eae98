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

// Package weakhash provides a generic open-addressing hash table whose
// entries are held by weak references. The table is meant to serve as a
// deduplicating/interning cache: callers hold shared, strong references to
// values, and the table lets new callers find an existing instance equal
// to one already alive without itself keeping anything alive. When the
// last strong reference to a value disappears, the table's record becomes
// implicitly invalid with no explicit removal call: the weak reference's
// own liveness is the deletion signal, so the table needs no tombstones.
//
// Collisions are resolved with Robin Hood hashing: on collision the entry
// farther from its ideal slot displaces one nearer to its ideal slot,
// which bounds worst-case probe lengths and lets lookups terminate early.
// See https://www.sebastiansylvan.com/post/robin-hood-hashing-should-be-your-default-hash-table-implementation/.
//
// Each bucket carries its entry's hash in a packed machine word: one bit
// records whether the bucket has ever been claimed and the remaining 63
// bits hold the truncated hash, keeping the per-bucket footprint small for
// probe-sequence cache locality. A claimed bucket whose weak reference has
// expired is indistinguishable from a live one until its handle is locked;
// lookups and iteration lock lazily and treat a failed lock as absence.
//
// Four entry shapes are supported, selected at compile time by the
// table's handle type parameter: Set (a lone weak reference), WeakMap
// (key and value both weak), WeakKeyMap (weak key, value by copy), and
// WeakValueMap (weak value, key by copy).
//
// A Table is NOT goroutine-safe.
package weakhash

import (
	"fmt"
	"strings"
)

const (
	// invariants gates the expensive self-checks in checkInvariants.
	// Enable when debugging table internals.
	invariants = false

	defaultBucketCount = 8
	defaultMaxLoad     = 0.75

	// One bit of the bucket meta word is stolen to record whether the
	// bucket was ever claimed, so hashes are truncated to the remaining
	// 63 bits.
	hashBits            = 63
	occupiedBit  uint64 = 1 << hashBits
	hashCodeMask uint64 = occupiedBit - 1
)

// Bucket holds a single table entry: a weak handle plus a packed word
// carrying the claimed bit and the entry's truncated hash. The hash is
// meaningful only while the claimed bit is set, and the claimed bit is not
// a liveness signal: the handle may have expired underneath it.
type Bucket[H any] struct {
	handle H
	meta   uint64
}

func (b *Bucket[H]) occupied() bool {
	return b.meta&occupiedBit != 0
}

func (b *Bucket[H]) storedHash() uint64 {
	return b.meta & hashCodeMask
}

func (b *Bucket[H]) set(handle H, hash uint64) {
	b.handle = handle
	b.meta = occupiedBit | hash
}

// Table is a Robin Hood hash table storing weak handles of shape H with
// strong view S and comparison key K. Use the Set, WeakMap, WeakKeyMap,
// and WeakValueMap aliases and their constructors rather than naming the
// three parameters directly.
type Table[H Handle[H, S, K], S, K any] struct {
	hash      func(K) uint64
	equal     func(K, K) bool
	maxLoad   float64
	allocator Allocator[H]
	buckets   buffer[Bucket[H]]
	// used counts claimed slots. It is incremented for every newly
	// claimed slot and never decremented when an entry silently expires,
	// so it over-approximates the live entry count.
	used int
}

// Set is a deduplicating set of weakly referenced values; the value is its
// own key.
type Set[T any] = Table[Ref[T], *T, *T]

// WeakMap maps weakly referenced keys to weakly referenced values. An
// entry expires when either side does.
type WeakMap[K, V any] = Table[Pair[K, V], PairView[K, V], *K]

// WeakKeyMap maps weakly referenced keys to values stored by copy.
type WeakKeyMap[K, V any] = Table[KeyRef[K, V], KeyView[K, V], *K]

// WeakValueMap maps keys stored by copy to weakly referenced values.
type WeakValueMap[K, V any] = Table[ValueRef[K, V], ValueView[K, V], K]

// New constructs a Table over handle shape H using the supplied hash
// function and equality predicate, which are applied to comparison keys.
// Both are required. Prefer the shape-specific constructors.
func New[H Handle[H, S, K], S, K any](
	hash func(K) uint64, equal func(K, K) bool, options ...Option[H],
) *Table[H, S, K] {
	if hash == nil || equal == nil {
		panic("weakhash: nil hash function or equality predicate")
	}

	s := defaultSettings[H]()
	for _, op := range options {
		op.apply(&s)
	}
	if s.capacity <= 0 {
		panic(fmt.Sprintf("weakhash: non-positive capacity %d", s.capacity))
	}
	if s.maxLoad <= 0 || s.maxLoad >= 1 {
		panic(fmt.Sprintf("weakhash: max load %v outside (0,1)", s.maxLoad))
	}

	t := &Table[H, S, K]{
		hash:      hash,
		equal:     equal,
		maxLoad:   s.maxLoad,
		allocator: s.allocator,
		buckets:   makeBuffer(s.allocator.Alloc(s.capacity)),
	}
	t.checkInvariants()
	return t
}

// NewSet constructs a Set of weakly referenced T values.
func NewSet[T any](
	hash func(*T) uint64, equal func(*T, *T) bool, options ...Option[Ref[T]],
) *Set[T] {
	return New[Ref[T], *T, *T](hash, equal, options...)
}

// NewWeakMap constructs a map holding both keys and values weakly.
func NewWeakMap[K, V any](
	hash func(*K) uint64, equal func(*K, *K) bool, options ...Option[Pair[K, V]],
) *WeakMap[K, V] {
	return New[Pair[K, V], PairView[K, V], *K](hash, equal, options...)
}

// NewWeakKeyMap constructs a map holding keys weakly and values by copy.
func NewWeakKeyMap[K, V any](
	hash func(*K) uint64, equal func(*K, *K) bool, options ...Option[KeyRef[K, V]],
) *WeakKeyMap[K, V] {
	return New[KeyRef[K, V], KeyView[K, V], *K](hash, equal, options...)
}

// NewWeakValueMap constructs a map holding keys by copy and values weakly.
func NewWeakValueMap[K, V any](
	hash func(K) uint64, equal func(K, K) bool, options ...Option[ValueRef[K, V]],
) *WeakValueMap[K, V] {
	return New[ValueRef[K, V], ValueView[K, V], K](hash, equal, options...)
}

// Close closes the table, releasing its bucket storage back to the
// configured allocator. It is unnecessary to close a table using the
// default allocator. It is invalid to use a Table after it has been
// closed, though Close itself is idempotent.
func (t *Table[H, S, K]) Close() {
	if t.allocator == nil {
		return
	}
	t.allocator.Free(t.buckets.Detach())
	t.allocator = nil
}

// Len returns the table's size counter: the number of slots ever claimed
// and not reclaimed by an insert or a growth rebuild. Because entries
// expire silently, this is an over-approximation of the live entry count;
// callers must not treat it as exact.
func (t *Table[H, S, K]) Len() int {
	return t.used
}

// Empty reports whether the size counter is zero. Like Len, it reflects
// claimed slots, not liveness.
func (t *Table[H, S, K]) Empty() bool {
	return t.used == 0
}

// Insert adds the entry described by the strong tuple, downgrading it to
// the table's weak handle shape for storage. If a live entry with an equal
// key is already present its handle is replaced (last write wins). The
// caller must keep its own strong reference for as long as it wants the
// entry to remain visible; the table holds nothing alive.
func (t *Table[H, S, K]) Insert(strong S) {
	var shape H
	hash := t.hash(shape.Key(strong)) & hashCodeMask
	t.insert(hash, strong)
	t.maybeGrow()
	t.checkInvariants()
}

// Contains reports whether a live entry with an equal key is present.
func (t *Table[H, S, K]) Contains(key K) bool {
	_, ok := t.lookup(key)
	return ok
}

// Get returns a freshly locked strong view of the live entry with an
// equal key, or ok=false if no such entry is present. The view pins the
// entry's referents for as long as the caller holds it.
func (t *Table[H, S, K]) Get(key K) (strong S, ok bool) {
	return t.lookup(key)
}

// All calls yield sequentially with a freshly locked strong view of each
// live entry, skipping unclaimed and expired buckets lazily. If yield
// returns false, iteration stops. The sequence is forward-only and
// restartable per call, and is compatible with range-over-func:
//
//	for v := range t.All {
//		...
//	}
//
// The table must not be mutated during iteration.
func (t *Table[H, S, K]) All(yield func(strong S) bool) {
	for i, n := 0, t.buckets.Len(); i < n; i++ {
		b := t.buckets.At(i)
		if !b.occupied() {
			continue
		}
		strong, ok := b.handle.Lock()
		if !ok {
			continue
		}
		if !yield(strong) {
			return
		}
	}
}

// insert walks the probe sequence from hash's home slot and places the
// entry per the Robin Hood policy. hash must already be truncated.
func (t *Table[H, S, K]) insert(hash uint64, strong S) {
	var shape H
	pos := t.home(hash)
	dist := 0

	for {
		b := t.buckets.At(pos)

		// An unclaimed bucket ends the probe: claim it.
		if !b.occupied() {
			b.set(shape.FromStrong(strong), hash)
			t.used++
			return
		}

		// If the resident entry has expired, take its slot in place. The
		// slot was already counted when first claimed, so the size
		// counter stays put. Note that no backward shift is performed: an
		// entry with an equal key may transiently remain further down the
		// probe chain.
		locked, ok := b.handle.Lock()
		if !ok {
			b.set(shape.FromStrong(strong), hash)
			return
		}

		// A live resident with a matching hash and equal key is replaced;
		// last write wins.
		if hash == b.storedHash() && t.equal(shape.Key(locked), shape.Key(strong)) {
			b.handle = shape.FromStrong(strong)
			return
		}

		// Robin Hood: if the incoming entry is farther from home than the
		// resident, the incoming entry takes the slot and the resident
		// (pinned by the locked view) continues the walk.
		existing := t.probeDistance(pos, t.home(b.storedHash()))
		if dist > existing {
			residentHash := b.storedHash()
			b.set(shape.FromStrong(strong), hash)
			strong = locked
			hash = residentHash
			dist = existing
		}

		pos = t.next(pos)
		dist++
	}
}

// lookup walks the probe sequence for key, returning a locked view of the
// matching live entry. It terminates on the first unclaimed bucket, or as
// soon as the accumulated probe distance exceeds the resident bucket's
// own: had the sought key been inserted it would have displaced that
// resident, so it cannot lie further down the chain.
func (t *Table[H, S, K]) lookup(key K) (S, bool) {
	var shape H
	hash := t.hash(key) & hashCodeMask
	pos := t.home(hash)
	dist := 0

	for {
		b := t.buckets.At(pos)
		if !b.occupied() {
			var zero S
			return zero, false
		}
		if dist > t.probeDistance(pos, t.home(b.storedHash())) {
			var zero S
			return zero, false
		}
		if hash == b.storedHash() {
			if locked, ok := b.handle.Lock(); ok {
				if t.equal(shape.Key(locked), key) {
					return locked, true
				}
			}
		}
		pos = t.next(pos)
		dist++
	}
}

func (t *Table[H, S, K]) maybeGrow() {
	capacity := t.buckets.Len()
	if float64(t.used)/float64(capacity) > t.maxLoad {
		t.resize(2 * capacity)
	}
}

// resize rebuilds the table into a buffer of newCapacity buckets,
// re-inserting every entry that still locks and dropping the rest, then
// returns the old buffer to the allocator. Growth resets the size counter
// to the surviving entry count.
func (t *Table[H, S, K]) resize(newCapacity int) {
	if newCapacity <= t.used {
		panic(fmt.Sprintf("weakhash: new capacity %d does not exceed size %d",
			newCapacity, t.used))
	}

	old := makeBuffer(t.allocator.Alloc(newCapacity))
	old.Swap(&t.buckets)
	t.used = 0

	for i, n := 0, old.Len(); i < n; i++ {
		b := old.At(i)
		if !b.occupied() {
			continue
		}
		if locked, ok := b.handle.Lock(); ok {
			t.insert(b.storedHash(), locked)
		}
	}

	t.allocator.Free(old.Detach())
	t.checkInvariants()
}

func (t *Table[H, S, K]) home(hash uint64) int {
	return int(hash % uint64(t.buckets.Len()))
}

func (t *Table[H, S, K]) next(pos int) int {
	return (pos + 1) % t.buckets.Len()
}

// probeDistance returns the forward, wrapping distance from an entry's
// home slot to the slot it actually occupies.
func (t *Table[H, S, K]) probeDistance(actual, home int) int {
	if actual >= home {
		return actual - home
	}
	return actual + t.buckets.Len() - home
}

// liveLen counts buckets that are claimed and still lock. Expiry can race
// with the count, so this is only used by invariant checks and tests.
func (t *Table[H, S, K]) liveLen() int {
	var live int
	for i, n := 0, t.buckets.Len(); i < n; i++ {
		b := t.buckets.At(i)
		if b.occupied() && !b.handle.Expired() {
			live++
		}
	}
	return live
}

func (t *Table[H, S, K]) checkInvariants() {
	if invariants {
		if t.buckets.Empty() {
			panic("invariant failed: table has no buckets")
		}

		// Every claimed, still-live entry must be reachable through
		// lookup, and the size counter must dominate the live count.
		var live int
		for i, n := 0, t.buckets.Len(); i < n; i++ {
			b := t.buckets.At(i)
			if !b.occupied() {
				continue
			}
			var shape H
			locked, ok := b.handle.Lock()
			if !ok {
				continue
			}
			live++
			if !t.Contains(shape.Key(locked)) {
				panic(fmt.Sprintf("invariant failed: bucket %d not reachable\n%s",
					i, t.debugString()))
			}
		}
		if live > t.used {
			panic(fmt.Sprintf("invariant failed: %d live entries exceed size counter %d\n%s",
				live, t.used, t.debugString()))
		}
	}
}

func (t *Table[H, S, K]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d\n", t.buckets.Len(), t.used)
	for i, n := 0, t.buckets.Len(); i < n; i++ {
		b := t.buckets.At(i)
		switch {
		case !b.occupied():
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
		case b.handle.Expired():
			fmt.Fprintf(&buf, "  %4d: expired [hash=%016x home=%d]\n",
				i, b.storedHash(), t.home(b.storedHash()))
		default:
			fmt.Fprintf(&buf, "  %4d: live [hash=%016x home=%d dist=%d]\n",
				i, b.storedHash(), t.home(b.storedHash()),
				t.probeDistance(i, t.home(b.storedHash())))
		}
	}
	return buf.String()
}
