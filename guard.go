package csvsql

import "sync/atomic"

// Operation identifies a class of single-flight work.
type Operation int

const (
	// OperationQuery guards query execution
	OperationQuery Operation = iota
	// OperationExport guards result export
	OperationExport
	operationCount
)

// String returns the operation name
func (o Operation) String() string {
	switch o {
	case OperationQuery:
		return "query"
	case OperationExport:
		return "export"
	default:
		return "unknown"
	}
}

func (o Operation) valid() bool {
	return o >= 0 && o < operationCount
}

// SingleFlightGuard allows at most one in-flight run per Operation.
// A request arriving while its operation is held is refused, never queued.
type SingleFlightGuard struct {
	running [operationCount]atomic.Bool
}

// NewSingleFlightGuard creates a guard with every operation released.
func NewSingleFlightGuard() *SingleFlightGuard {
	return &SingleFlightGuard{}
}

// TryEnter claims op and reports whether the claim succeeded. It never blocks.
// An unknown operation is never granted.
func (g *SingleFlightGuard) TryEnter(op Operation) bool {
	if !op.valid() {
		return false
	}
	return g.running[op].CompareAndSwap(false, true)
}

// Leave releases op unconditionally.
func (g *SingleFlightGuard) Leave(op Operation) {
	if !op.valid() {
		return
	}
	g.running[op].Store(false)
}

// InFlight reports whether op is currently held.
func (g *SingleFlightGuard) InFlight(op Operation) bool {
	if !op.valid() {
		return false
	}
	return g.running[op].Load()
}
