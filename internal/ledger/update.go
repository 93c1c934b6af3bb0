// Package ledger translates stock and transaction mutations into additive
// field increments on the house document, and applies such updates to an
// in-memory house snapshot.
//
// An Update maps dotted field paths (e.g.
// "balances.<accountId>.products.<productId>.amountOut") to operations:
// signed increments, absolute sets or deletes. Increments on disjoint fields
// compose, so concurrent mutations can be applied by the store without lost
// updates. The store is responsible for applying one Update atomically
// together with the record write it belongs to.
package ledger

// OpKind is the kind of operation applied to a field path.
type OpKind int

const (
	// OpInc adds a signed delta to the current value, creating the field
	// (and any missing parents) at zero first.
	OpInc OpKind = iota
	// OpSet overwrites the field with an absolute value.
	OpSet
	// OpDelete removes the field.
	OpDelete
)

// Op is a single field operation.
type Op struct {
	Kind  OpKind
	Delta int64
	Value any
}

// Update is a set of field operations keyed by dotted field path.
type Update map[string]Op

// Inc accumulates a signed increment on path. Repeated increments on the
// same path add up; an increment on a path holding a set or delete replaces
// nothing and is a programming error the applier will surface.
func (u Update) Inc(path string, delta int64) {
	if op, ok := u[path]; ok && op.Kind == OpInc {
		op.Delta += delta
		u[path] = op
		return
	}
	u[path] = Op{Kind: OpInc, Delta: delta}
}

// Set records an absolute value for path.
func (u Update) Set(path string, value any) {
	u[path] = Op{Kind: OpSet, Value: value}
}

// Delete records a field removal for path.
func (u Update) Delete(path string) {
	u[path] = Op{Kind: OpDelete}
}

// Merge folds other into u, accumulating increments on shared paths.
func (u Update) Merge(other Update) {
	for path, op := range other {
		if op.Kind == OpInc {
			u.Inc(path, op.Delta)
			continue
		}
		u[path] = op
	}
}
