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

import (
	"runtime"
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
)

func benchSizes(f func(b *testing.B, n int)) func(*testing.B) {
	var cases = []int{16, 128, 1024, 8192, 1 << 16}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n) })
		}
	}
}

func genObjs(start, end int) []*obj {
	objs := make([]*obj, end-start)
	for i := range objs {
		objs[i] = newObj(start + i)
	}
	return objs
}

func BenchmarkGetHit(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapGetHit))
	b.Run("impl=weakSet", benchSizes(benchmarkWeakSetGetHit))
}

func BenchmarkGetMiss(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapGetMiss))
	b.Run("impl=weakSet", benchSizes(benchmarkWeakSetGetMiss))
}

func BenchmarkInsertGrow(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapInsertGrow))
	b.Run("impl=weakSet", benchSizes(benchmarkWeakSetInsertGrow))
}

func BenchmarkIter(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapIter))
	b.Run("impl=weakSet", benchSizes(benchmarkWeakSetIter))
}

func benchmarkRuntimeMapGetHit(b *testing.B, n int) {
	m := make(map[int]*obj, n)
	objs := genObjs(0, n)
	for _, p := range objs {
		m[p.v] = p
	}
	perfbench.Open(b)
	b.ResetTimer()
	var sink *obj
	for i := 0; i < b.N; i++ {
		sink = m[objs[i%n].v]
	}
	b.StopTimer()
	runtime.KeepAlive(sink)
	runtime.KeepAlive(objs)
}

func benchmarkWeakSetGetHit(b *testing.B, n int) {
	s := NewSet[obj](objHash, objEqual, WithCapacity[Ref[obj]](2*n))
	objs := genObjs(0, n)
	for _, p := range objs {
		s.Insert(p)
	}
	perfbench.Open(b)
	b.ResetTimer()
	var sink *obj
	for i := 0; i < b.N; i++ {
		sink, _ = s.Get(objs[i%n])
	}
	b.StopTimer()
	runtime.KeepAlive(sink)
	runtime.KeepAlive(objs)
}

func benchmarkRuntimeMapGetMiss(b *testing.B, n int) {
	m := make(map[int]*obj, n)
	objs := genObjs(0, n)
	miss := genObjs(n, 2*n)
	for _, p := range objs {
		m[p.v] = p
	}
	perfbench.Open(b)
	b.ResetTimer()
	var sink *obj
	for i := 0; i < b.N; i++ {
		sink = m[miss[i%n].v]
	}
	b.StopTimer()
	runtime.KeepAlive(sink)
	runtime.KeepAlive(objs)
}

func benchmarkWeakSetGetMiss(b *testing.B, n int) {
	s := NewSet[obj](objHash, objEqual, WithCapacity[Ref[obj]](2*n))
	objs := genObjs(0, n)
	miss := genObjs(n, 2*n)
	for _, p := range objs {
		s.Insert(p)
	}
	perfbench.Open(b)
	b.ResetTimer()
	var ok bool
	for i := 0; i < b.N; i++ {
		ok = s.Contains(miss[i%n])
	}
	b.StopTimer()
	_ = ok
	runtime.KeepAlive(objs)
}

func benchmarkRuntimeMapInsertGrow(b *testing.B, n int) {
	objs := genObjs(0, n)
	perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := make(map[int]*obj)
		for _, p := range objs {
			m[p.v] = p
		}
	}
	runtime.KeepAlive(objs)
}

func benchmarkWeakSetInsertGrow(b *testing.B, n int) {
	objs := genObjs(0, n)
	perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s := NewSet[obj](objHash, objEqual)
		for _, p := range objs {
			s.Insert(p)
		}
	}
	runtime.KeepAlive(objs)
}

func benchmarkRuntimeMapIter(b *testing.B, n int) {
	m := make(map[int]*obj, n)
	objs := genObjs(0, n)
	for _, p := range objs {
		m[p.v] = p
	}
	perfbench.Open(b)
	b.ResetTimer()
	var tmp int
	for i := 0; i < b.N; i++ {
		for k := range m {
			tmp += k
		}
	}
	b.StopTimer()
	_ = tmp
	runtime.KeepAlive(objs)
}

func benchmarkWeakSetIter(b *testing.B, n int) {
	s := NewSet[obj](objHash, objEqual)
	objs := genObjs(0, n)
	for _, p := range objs {
		s.Insert(p)
	}
	perfbench.Open(b)
	b.ResetTimer()
	var tmp int
	for i := 0; i < b.N; i++ {
		s.All(func(p *obj) bool {
			tmp += p.v
			return true
		})
	}
	b.StopTimer()
	_ = tmp
	runtime.KeepAlive(objs)
}
