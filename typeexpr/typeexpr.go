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

// Package typeexpr holds a small closed hierarchy of type expressions that
// render to text, together with an Interner that deduplicates structurally
// equal expressions through a weakhash table.
package typeexpr

import (
	"io"
	"strings"
)

// Type is a type expression that can write its rendered form to w.
type Type interface {
	Format(w io.Writer)
}

// Int is the integer type.
type Int struct{}

func (Int) Format(w io.Writer) {
	io.WriteString(w, "Int")
}

// Double is the double-precision floating point type.
type Double struct{}

func (Double) Format(w io.Writer) {
	io.WriteString(w, "Double")
}

// Real is the real number type.
type Real struct{}

func (Real) Format(w io.Writer) {
	io.WriteString(w, "Real")
}

// Func is a function type with argument types and a result type. It
// renders as "(A1, A2) -> R".
type Func struct {
	Args   []Type
	Result Type
}

func (f Func) Format(w io.Writer) {
	io.WriteString(w, "(")
	formatSeparated(w, f.Args)
	io.WriteString(w, ") -> ")
	f.Result.Format(w)
}

// formatSeparated writes the elements separated by ", ".
func formatSeparated(w io.Writer, types []Type) {
	for i, t := range types {
		if i > 0 {
			io.WriteString(w, ", ")
		}
		t.Format(w)
	}
}

// String returns the rendered form of t.
func String(t Type) string {
	var sb strings.Builder
	t.Format(&sb)
	return sb.String()
}
