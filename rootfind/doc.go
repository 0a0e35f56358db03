// Copyright (c) 2024, The stacore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rootfind provides a Newton-step-with-bisection-fallback scalar
// root finder, used by package dcalc's effective-capacitance calculator
// to find the time a two-pole step response reaches 50%.
//
// The target function must be continuous and differentiable over the
// bracket and must change sign across it; finding a bracket is the
// caller's responsibility.
package rootfind
