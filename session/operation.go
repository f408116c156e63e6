package session

// Kind identifies which session capability an operation exercises.
type Kind int

const (
	KindSelectOne Kind = iota
	KindSelectList
	KindInsert
	KindUpdate
	KindDelete
	KindCommit
	KindRollback
	KindClose
)

// Lifecycle reports whether the kind is an explicit lifecycle call rather
// than a statement. Lifecycle calls are passed through by the interceptor
// instead of being governed by its commit/close policy.
func (k Kind) Lifecycle() bool {
	switch k {
	case KindCommit, KindRollback, KindClose:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindSelectOne:
		return "select_one"
	case KindSelectList:
		return "select_list"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindCommit:
		return "commit"
	case KindRollback:
		return "rollback"
	case KindClose:
		return "close"
	default:
		return "unknown"
	}
}

// Operation describes one statement (or explicit lifecycle call) routed
// through the interceptor. Statement is a logical identifier used for logs
// and metrics; SQL and Args are interpreted by the session implementation.
type Operation struct {
	Kind      Kind
	Statement string
	SQL       string
	Args      []any
}
