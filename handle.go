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

import "weak"

// Handle describes how a table entry carries its weak component(s). A
// handle is cheap to copy and holds no strong ownership of the referenced
// data; that ownership lives entirely with external callers. Four shapes
// implement the contract: Ref (a lone weak reference), Pair (key and value
// both weak), KeyRef (weak key, value stored by copy), and ValueRef (weak
// value, key stored by copy).
//
// H is the implementing shape itself, S its strong (locked) view, and K
// the comparison key extracted from a view. The contract is resolved at
// compile time per Table instantiation; there is no dynamic dispatch.
//
// Lock must attempt every weak component and report failure if any one of
// them has been reclaimed, leaving the handle untouched. A successful Lock
// yields a view that pins its referents for as long as the view is held;
// a handle that locked once may still fail to lock later.
type Handle[H, S, K any] interface {
	// FromStrong downgrades a strong tuple into the shape's storable
	// form, copying non-weak components and weakening the rest.
	FromStrong(strong S) H
	// Lock attempts to upgrade to a strong view of the entry.
	Lock() (S, bool)
	// Expired reports whether any weak component has been reclaimed.
	// Note that !Expired() does not guarantee a subsequent Lock will
	// succeed.
	Expired() bool
	// Key extracts the comparison key from a locked view.
	Key(strong S) K
}

// Ref is the lone-reference shape: one weak reference to a value which is
// itself the key. Backs Set.
type Ref[T any] struct {
	ptr weak.Pointer[T]
}

func (Ref[T]) FromStrong(strong *T) Ref[T] {
	return Ref[T]{ptr: weak.Make(strong)}
}

func (r Ref[T]) Lock() (*T, bool) {
	p := r.ptr.Value()
	return p, p != nil
}

func (r Ref[T]) Expired() bool {
	return r.ptr.Value() == nil
}

func (Ref[T]) Key(strong *T) *T {
	return strong
}

// PairView is the strong view of a Pair entry.
type PairView[K, V any] struct {
	Key   *K
	Value *V
}

// Pair is the both-weak shape: key and value are each weakly held. The
// entry is expired if either side is, and Lock succeeds only if both
// sides do. Backs WeakMap.
type Pair[K, V any] struct {
	key   weak.Pointer[K]
	value weak.Pointer[V]
}

func (Pair[K, V]) FromStrong(strong PairView[K, V]) Pair[K, V] {
	return Pair[K, V]{key: weak.Make(strong.Key), value: weak.Make(strong.Value)}
}

func (p Pair[K, V]) Lock() (PairView[K, V], bool) {
	k := p.key.Value()
	if k == nil {
		return PairView[K, V]{}, false
	}
	v := p.value.Value()
	if v == nil {
		return PairView[K, V]{}, false
	}
	return PairView[K, V]{Key: k, Value: v}, true
}

func (p Pair[K, V]) Expired() bool {
	return p.key.Value() == nil || p.value.Value() == nil
}

func (Pair[K, V]) Key(strong PairView[K, V]) *K {
	return strong.Key
}

// KeyView is the strong view of a KeyRef entry.
type KeyView[K, V any] struct {
	Key   *K
	Value V
}

// KeyRef is the weak-key shape: the key is weakly held and the value is
// stored by copy. The entry is expired iff the key reference is. Backs
// WeakKeyMap.
type KeyRef[K, V any] struct {
	key   weak.Pointer[K]
	value V
}

func (KeyRef[K, V]) FromStrong(strong KeyView[K, V]) KeyRef[K, V] {
	return KeyRef[K, V]{key: weak.Make(strong.Key), value: strong.Value}
}

func (r KeyRef[K, V]) Lock() (KeyView[K, V], bool) {
	k := r.key.Value()
	if k == nil {
		return KeyView[K, V]{}, false
	}
	return KeyView[K, V]{Key: k, Value: r.value}, true
}

func (r KeyRef[K, V]) Expired() bool {
	return r.key.Value() == nil
}

func (KeyRef[K, V]) Key(strong KeyView[K, V]) *K {
	return strong.Key
}

// ValueView is the strong view of a ValueRef entry.
type ValueView[K, V any] struct {
	Key   K
	Value *V
}

// ValueRef is the weak-value shape: the value is weakly held and the key
// is stored by copy. The entry is expired iff the value reference is.
// Backs WeakValueMap.
type ValueRef[K, V any] struct {
	key   K
	value weak.Pointer[V]
}

func (ValueRef[K, V]) FromStrong(strong ValueView[K, V]) ValueRef[K, V] {
	return ValueRef[K, V]{key: strong.Key, value: weak.Make(strong.Value)}
}

func (r ValueRef[K, V]) Lock() (ValueView[K, V], bool) {
	v := r.value.Value()
	if v == nil {
		return ValueView[K, V]{}, false
	}
	return ValueView[K, V]{Key: r.key, Value: v}, true
}

func (r ValueRef[K, V]) Expired() bool {
	return r.value.Value() == nil
}

func (ValueRef[K, V]) Key(strong ValueView[K, V]) K {
	return strong.Key
}
