// Copyright (c) 2024, The stacore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nldm provides the non-linear delay model: 2-D
// (input-slew, output-capacitance) tables of delay and slew per
// timing arc, bilinearly interpolated, plus the CCS current-waveform
// table consumed by the transient calculator and the logic-threshold
// rescaling used when a load's library disagrees with its driver's.
//
// The interpolation arithmetic is float32, using
// github.com/chewxy/math32 for this kind of per-lookup numeric work.
package nldm
