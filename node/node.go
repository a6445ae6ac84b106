package node

import (
	"sync/atomic"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"

	"github.com/numbleroot/bintree/message"
)

// Constants

// Integer counter for the tagged state of a node.
const (
	stateNormal state = iota
	stateCopying
)

// Variables

// nextNodeID hands out a stable process-wide identity to every node
// ever created. The synthetic insert a node sends during compaction
// uses the negation of its identity as operation id, so it can never
// collide with the strictly positive ids of client operations.
var nextNodeID int64

// Structs

// state declares which handler set a node currently runs.
type state int

// Node bundles the private state of one tree-node actor. All fields
// are owned exclusively by the node's own goroutine; other units
// interact with a node only by enqueueing messages on its inbox.
type Node struct {
	logger   log.Logger
	id       int64
	elem     int64
	removed  bool
	pos      message.Position
	parent   chan<- message.Message
	children map[message.Position]*Node
	inbox    chan message.Message

	// Copy-protocol accounting, only touched between receiving a
	// CopyTo and signalling CopyFinished upwards.
	state     state
	pending   map[message.Position]struct{}
	confirmed bool
}

// Functions

// NewRoot spawns the sentinel root of a fresh tree generation. The
// sentinel starts tombstoned with element zero, which makes it behave
// like any other node: it represents the empty set until the first
// insert and answers operations on element zero correctly throughout.
// CopyFinished for the whole generation is signalled on parent.
func NewRoot(logger log.Logger, parent chan<- message.Message, inboxSize int) *Node {
	return newNode(logger, 0, true, message.Left, parent, inboxSize)
}

// newNode initializes a node and starts its message loop. The inbox
// has to buffer at least the three copy-protocol messages a node can
// receive while mid-copy (one synthetic insert confirmation plus up
// to two child CopyFinished), so completed children never block.
func newNode(logger log.Logger, elem int64, removed bool, pos message.Position, parent chan<- message.Message, inboxSize int) *Node {

	n := &Node{
		logger:   logger,
		id:       atomic.AddInt64(&nextNodeID, 1),
		elem:     elem,
		removed:  removed,
		pos:      pos,
		parent:   parent,
		children: make(map[message.Position]*Node),
		inbox:    make(chan message.Message, inboxSize),
	}

	go n.run()

	return n
}

// Inbox exposes the node's private channel for enqueueing messages.
func (n *Node) Inbox() chan<- message.Message {
	return n.inbox
}

// run loops over messages arriving at this node and dispatches each
// one based on the node's current state. It returns once the node has
// copied itself into a new generation: from that point on the node is
// inert scaffolding of the old tree and ends together with it.
func (n *Node) run() {

	for msg := range n.inbox {

		var done bool

		switch n.state {
		case stateNormal:
			done = n.handleNormal(msg)
		case stateCopying:
			done = n.handleCopying(msg)
		}

		if done {
			return
		}
	}
}

// handleNormal dispatches one message in normal operation.
func (n *Node) handleNormal(msg message.Message) bool {

	switch msg := msg.(type) {

	case message.Insert:
		n.insert(msg)

	case message.Contains:
		n.contains(msg)

	case message.Remove:
		n.remove(msg)

	case message.CopyTo:
		return n.copyTo(msg)

	default:
		n.violation(msg, "normal")
	}

	return false
}

// insert adds the element to this subtree. A matching node clears its
// tombstone, a missing child slot grows a fresh leaf, anything else
// descends. The node answering locally confirms to the requester.
func (n *Node) insert(msg message.Insert) {

	if msg.Elem == n.elem {
		n.removed = false
		msg.Requester <- message.OperationFinished{ID: msg.ID}
		return
	}

	pos := message.PositionFor(msg.Elem, n.elem)

	if child, found := n.children[pos]; found {
		child.inbox <- msg
		return
	}

	// Grow the tree lazily: the first insert descending past a
	// missing child creates that child as a live leaf.
	n.children[pos] = newNode(n.logger, msg.Elem, false, pos, n.inbox, cap(n.inbox))

	msg.Requester <- message.OperationFinished{ID: msg.ID}
}

// contains answers the membership test for this subtree.
func (n *Node) contains(msg message.Contains) {

	if msg.Elem == n.elem {
		msg.Requester <- message.ContainsResult{ID: msg.ID, Result: !n.removed}
		return
	}

	pos := message.PositionFor(msg.Elem, n.elem)

	if child, found := n.children[pos]; found {
		child.inbox <- msg
		return
	}

	msg.Requester <- message.ContainsResult{ID: msg.ID, Result: false}
}

// remove deletes the element from this subtree. A matching node sets
// its tombstone and stays in place until the next compaction drops
// it. Removing an element that was never inserted succeeds as a no-op.
func (n *Node) remove(msg message.Remove) {

	if msg.Elem == n.elem {
		n.removed = true
		msg.Requester <- message.OperationFinished{ID: msg.ID}
		return
	}

	pos := message.PositionFor(msg.Elem, n.elem)

	if child, found := n.children[pos]; found {
		child.inbox <- msg
		return
	}

	msg.Requester <- message.OperationFinished{ID: msg.ID}
}

// copyTo recurses the copy over all children and, unless this node is
// tombstoned, materializes its own element in the new generation via
// a synthetic insert. A tombstoned node contributes nothing and counts
// as confirmed from the start, so a childless tombstone finishes
// immediately.
func (n *Node) copyTo(msg message.CopyTo) bool {

	n.pending = make(map[message.Position]struct{}, len(n.children))

	for pos, child := range n.children {
		child.inbox <- msg
		n.pending[pos] = struct{}{}
	}

	n.confirmed = n.removed
	if !n.removed {
		msg.Target <- message.Insert{Requester: n.inbox, ID: -n.id, Elem: n.elem}
	}

	if n.copyDone() {
		return n.finishCopy()
	}

	n.state = stateCopying

	return false
}

// handleCopying dispatches one message while this node waits for its
// subtree copy to complete. Only the confirmation of the synthetic
// insert and CopyFinished from pending children are in protocol here.
func (n *Node) handleCopying(msg message.Message) bool {

	switch msg := msg.(type) {

	case message.OperationFinished:
		if msg.ID != -n.id {
			n.violation(msg, "copying")
		}
		n.confirmed = true

	case message.CopyFinished:
		if _, found := n.pending[msg.Pos]; !found {
			n.violation(msg, "copying")
		}
		delete(n.pending, msg.Pos)

	default:
		n.violation(msg, "copying")
	}

	if n.copyDone() {
		return n.finishCopy()
	}

	return false
}

// copyDone reports whether all pending children signalled completion
// and the synthetic insert has been confirmed.
func (n *Node) copyDone() bool {
	return n.confirmed && len(n.pending) == 0
}

// finishCopy signals the completed subtree copy to the parent.
func (n *Node) finishCopy() bool {

	n.parent <- message.CopyFinished{Pos: n.pos}

	return true
}

// violation handles a message that is out of protocol for the node's
// current state. It can only be caused by an implementation bug and
// would corrupt the copy accounting if ignored, so it is fatal.
func (n *Node) violation(msg message.Message, state string) {

	err := errors.Errorf("node %d received %T in %s state", n.id, msg, state)

	level.Error(n.logger).Log(
		"msg", "protocol violation",
		"err", err,
	)

	panic(err)
}
