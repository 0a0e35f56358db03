// Copyright (c) 2024, The stacore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package graph holds the timing graph store: pins, nets, vertices,
// edges, timing arcs, and the per-(rise/fall, analysis-point) delay and
// slew annotation slots that the rest of this module reads and writes.
//
// The graph is an arena of integer-indexed vertices and edges rather
// than an object graph of owning pointers, so that the cyclic D->Q
// feedback structure described in spec.md §9 never needs cyclic
// references: a level-synchronized scheduler (package sched) walks
// indices, not pointers.
package graph
