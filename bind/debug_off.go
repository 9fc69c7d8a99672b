// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !rcdebug

package bind

// debugChecks turns bookkeeping violations into panics.
// Build with -tags rcdebug to enable.
const debugChecks = false
