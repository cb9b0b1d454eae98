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

package typeexpr

import (
	"github.com/cespare/xxhash/v2"

	"github.com/cockroachdb/weakhash"
)

// Interner deduplicates type expressions by their rendered form: Intern
// returns the same canonical instance for structurally equal expressions
// for as long as some caller keeps that instance alive. The interner holds
// its entries weakly, so a canonical instance with no remaining callers is
// reclaimed by the GC and a later Intern of an equal expression mints a
// fresh one.
//
// An Interner is NOT goroutine-safe.
type Interner struct {
	types *weakhash.WeakValueMap[string, Type]
}

// NewInterner constructs an empty Interner.
func NewInterner() *Interner {
	return &Interner{
		types: weakhash.NewWeakValueMap[string, Type](
			xxhash.Sum64String,
			func(a, b string) bool { return a == b },
		),
	}
}

// Intern returns the canonical shared instance for t. The caller must hold
// the returned pointer for as long as it wants the instance to stay
// canonical.
func (in *Interner) Intern(t Type) *Type {
	key := String(t)
	if view, ok := in.types.Get(key); ok {
		return view.Value
	}
	canonical := new(Type)
	*canonical = t
	in.types.Insert(weakhash.ValueView[string, Type]{Key: key, Value: canonical})
	return canonical
}

// Contains reports whether a live canonical instance rendering to the same
// form as t is present.
func (in *Interner) Contains(t Type) bool {
	return in.types.Contains(String(t))
}

// Len returns the interner's approximate entry count; see
// weakhash.Table.Len for the accounting caveats.
func (in *Interner) Len() int {
	return in.types.Len()
}
