// internal/types/types.go
package types

// Account identifies a participant on the hosting ledger. The engine
// never interprets the value; it only passes it to collaborators.
type Account string

// IsZero reports whether the account is unset.
func (a Account) IsZero() bool { return a == "" }

func (a Account) String() string { return string(a) }

// PairHandle references a trading pair on the external venue. Set on a
// curve only once graduation has completed.
type PairHandle string

// IsZero reports whether the handle is unset.
func (h PairHandle) IsZero() bool { return h == "" }

func (h PairHandle) String() string { return string(h) }
