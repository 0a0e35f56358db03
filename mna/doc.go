// Copyright (c) 2024, The stacore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mna builds and simulates the modified-nodal-analysis system
// `G x(t) + C x'(t) = B u(t)` for one net's parasitic network driven
// by CCS current sources, stepping it with backward Euler (spec.md
// §4.5), and measures threshold-crossing times on the result.
//
// Matrices are built and factored with gonum.org/v1/gonum/mat: no
// example repo in the pack ships a sparse linear-algebra dependency,
// so dense Dense/LU stands in for it here (see DESIGN.md's Open
// Questions) — the system sizes involved are one net's fanout plus a
// handful of internal subnodes, not a whole design.
package mna
