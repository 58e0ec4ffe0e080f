// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package auth implements credential authentication and session lifecycle.
//
// # Domain Types
//
// Domain types (Identity, Session) should be created using their
// constructors:
//   - NewIdentity - creates an Identity with validated fields and a hashed password
//   - NewSession - creates a Session bound to an identity and a signed token
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Service
//
// Service coordinates the four operations: Register, SignIn, SignOut and
// ValidateToken. Each operation is a linear pipeline that validates input
// before any store access, performs at most one mutating store call, and
// converts every failure into a coded error before it crosses the service
// boundary.
//
// # Stores
//
// IdentityRepository and SessionRepository are the persistence seams. Both
// Create methods are conditional inserts: uniqueness is enforced by the store
// in the same operation as the write, so concurrent callers cannot race past
// a separate existence check.
package auth
