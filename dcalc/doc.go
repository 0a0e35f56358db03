// Copyright (c) 2024, The stacore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dcalc is the delay-calc dispatcher and its family of
// pluggable calculators: unit, lumped-cap/NLDM, effective-capacitance
// with Elmore/two-pole, CCS transient, and PRIMA (spec.md §4.2-§4.7).
//
// The Calculator interface is Go-ified from
// original_source/dcalc/UnitDelayCalc.hh's ArcDelayCalc virtual
// surface: no StaState*, an explicit DriverInput value instead.
package dcalc
