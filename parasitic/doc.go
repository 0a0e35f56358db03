// Copyright (c) 2024, The stacore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package parasitic holds the three forms a driver pin's loading can
// take (spec.md §3 "Parasitic"): a π + Elmore model, a reduced
// pole/residue model, or a full RC Network, plus the reduction that
// turns a Network into the other two (spec.md §4.8).
//
// Node-local capacitance is modeled as a flat per-node value, the same
// shape a point-neuron's RC-equivalent channel conductances take when
// feeding one node, rather than an object graph of circuit elements.
package parasitic
