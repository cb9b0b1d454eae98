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
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternDeduplicates(t *testing.T) {
	in := NewInterner()

	intToDouble := func() Type {
		return Func{Args: []Type{Int{}}, Result: Double{}}
	}

	a := in.Intern(intToDouble())
	b := in.Intern(intToDouble())
	require.Same(t, a, b)
	require.Equal(t, "(Int) -> Double", String(*a))
	require.Equal(t, 1, in.Len())

	c := in.Intern(Func{Args: []Type{Real{}}, Result: Double{}})
	require.NotSame(t, a, c)
	require.Equal(t, 2, in.Len())
	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
	runtime.KeepAlive(c)
}

func TestInternReleasesDroppedInstances(t *testing.T) {
	in := NewInterner()

	expr := func() Type {
		return Func{Args: []Type{Int{}, Real{}}, Result: Real{}}
	}

	canonical := in.Intern(expr())
	require.True(t, in.Contains(expr()))

	canonical = nil
	_ = canonical
	runtime.GC()

	// With no caller holding the canonical instance, the interner no
	// longer claims it, and a later Intern mints a fresh one.
	require.False(t, in.Contains(expr()))
	fresh := in.Intern(expr())
	require.True(t, in.Contains(expr()))
	require.Equal(t, "(Int, Real) -> Real", String(*fresh))
	runtime.KeepAlive(fresh)
}

func TestInternKeepsAliveInstancesCanonical(t *testing.T) {
	in := NewInterner()

	held := in.Intern(Int{})
	dropped := in.Intern(Double{})

	dropped = nil
	_ = dropped
	runtime.GC()

	require.True(t, in.Contains(Int{}))
	require.False(t, in.Contains(Double{}))
	require.Same(t, held, in.Intern(Int{}))
	runtime.KeepAlive(held)
}
