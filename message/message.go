package message

// Constants

// Child positions of a tree node.
const (
	Left Position = iota
	Right
)

// Structs

// Position addresses one of the two child slots of a tree node.
type Position int

// String returns the lower-case name of a position
// for use in log output.
func (p Position) String() string {

	if p == Left {
		return "left"
	}

	return "right"
}

// Message is the closed union of all protocol messages exchanged
// between clients, the tree manager, and the tree nodes. Every
// dispatch point switches exhaustively over the concrete kinds
// below; nothing outside this package can extend the union.
type Message interface {
	isMessage()
}

// Requests.

// Insert asks the receiving subtree to add Elem to the set. It is
// answered with an OperationFinished carrying the same id, delivered
// on Requester. The id travels verbatim through every forwarding hop.
type Insert struct {
	Requester chan<- Message
	ID        int64
	Elem      int64
}

// Contains asks the receiving subtree whether Elem is in the set.
// It is answered with a ContainsResult carrying the same id.
type Contains struct {
	Requester chan<- Message
	ID        int64
	Elem      int64
}

// Remove asks the receiving subtree to delete Elem from the set.
// It is answered with an OperationFinished carrying the same id.
// Removing an absent element is a no-op success.
type Remove struct {
	Requester chan<- Message
	ID        int64
	Elem      int64
}

// GC triggers a compaction epoch at the tree manager. It has no
// payload and receives no direct reply; compaction is transparent
// to callers apart from added latency.
type GC struct{}

// Replies.

// OperationFinished confirms completion of the Insert or Remove
// request that carried the same id.
type OperationFinished struct {
	ID int64
}

// ContainsResult answers the Contains request that carried
// the same id.
type ContainsResult struct {
	ID     int64
	Result bool
}

// Copy protocol, internal between the manager and its nodes.

// CopyTo instructs a subtree to materialize its live elements
// into the fresh tree generation rooted at Target.
type CopyTo struct {
	Target chan<- Message
}

// CopyFinished signals a fully copied subtree upwards: from a node
// to its parent, and from the old root to the manager. Pos names
// the sender's child slot at its parent; the manager ignores it.
type CopyFinished struct {
	Pos Position
}

func (Insert) isMessage()            {}
func (Contains) isMessage()          {}
func (Remove) isMessage()            {}
func (GC) isMessage()                {}
func (OperationFinished) isMessage() {}
func (ContainsResult) isMessage()    {}
func (CopyTo) isMessage()            {}
func (CopyFinished) isMessage()      {}

// Functions

// PositionFor returns the child slot elem belongs to relative to
// pivot: strictly smaller elements descend left, all others right.
func PositionFor(elem int64, pivot int64) Position {

	if elem < pivot {
		return Left
	}

	return Right
}
