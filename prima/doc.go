// Copyright (c) 2024, The stacore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package prima projects a package mna System down to a q-dimensional
// Krylov subspace by block-Arnoldi, and reconstructs a reduced System
// that package mna's own Stepper can simulate unmodified (spec.md
// §4.6 "PRIMA reducer").
package prima
