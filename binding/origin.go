package binding

// Origin classifies how the binder obtained a session for a given call. The
// interceptor's commit/close policy keys off it: standalone sessions are
// committed and closed by the call itself, bound sessions defer both to
// transaction completion.
type Origin int

const (
	// OriginStandalone is a session created and retired entirely within one
	// call, outside any transaction.
	OriginStandalone Origin = iota
	// OriginNewlyBound is a session opened by this call and bound to the
	// active transaction for reuse by later calls.
	OriginNewlyBound
	// OriginReused is a session fetched from the active transaction's
	// registry, owned by the call that bound it.
	OriginReused
)

// Bound reports whether the session's lifecycle belongs to a transaction
// rather than to the current call.
func (o Origin) Bound() bool {
	return o != OriginStandalone
}

func (o Origin) String() string {
	switch o {
	case OriginStandalone:
		return "standalone"
	case OriginNewlyBound:
		return "newly_bound"
	case OriginReused:
		return "reused"
	default:
		return "unknown"
	}
}
