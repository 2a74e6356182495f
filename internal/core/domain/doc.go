// Package domain defines the core domain models for qrtoken.
//
// Domain models are pure value objects without IO dependencies.
// This package contains:
//
//   - SecureToken / HashedToken: raw and at-rest token forms
//   - TokenMetadata: the persisted record with its lifecycle predicates
//   - ValidationResult / ErrorKind: the oracle-resistant validation outcome
//   - UserID: validated account identifier
//   - Errors: DomainError codes shared by the service and transport layers
package domain
