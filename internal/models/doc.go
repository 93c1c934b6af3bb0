// Package models defines the core domain models for Streepn.
//
// # Units
//
// All monetary values are integer minor currency units (cents for EUR).
// Physical amounts (units of a product bought or consumed) are integers in
// hundredths of a unit, so an amount of 2.50 units is stored as 250. Floating
// point never appears in a model.
//
// # Ownership
//
// The House is the single source of truth for the live balance state. Stock,
// Transaction and Settlement records are append-mostly children scoped to one
// house and are never shared across houses. Settlements are immutable once
// written; stock and transactions are logically removed (flagged), never
// deleted.
package models
