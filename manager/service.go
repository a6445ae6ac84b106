package manager

import (
	"sync/atomic"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"

	"github.com/numbleroot/bintree/config"
	"github.com/numbleroot/bintree/message"
	"github.com/numbleroot/bintree/node"
)

// Constants

// Integer counter for the tagged state of the manager.
const (
	stateNormal state = iota
	stateCollecting
)

// Structs

// state declares which handler set the manager currently runs.
type state int

// Interfaces

// Service defines the operations the tree set offers to clients.
type Service interface {

	// Run loops over messages arriving at the manager and dispatches
	// each one based on the manager's current state. It has to run in
	// the background before any operation is submitted and only
	// returns once the inbox is closed, which never happens during
	// regular use.
	Run() error

	// Inbox exposes the raw message protocol for callers that manage
	// their own operation ids and reply channels. The ids of requests
	// enqueued here have to be strictly positive.
	Inbox() chan<- message.Message

	// Insert adds elem to the set and returns once the operation
	// has been confirmed.
	Insert(elem int64)

	// Contains reports whether elem is in the set.
	Contains(elem int64) bool

	// Remove deletes elem from the set and returns once the operation
	// has been confirmed. Removing an absent element is a no-op.
	Remove(elem int64)

	// GC triggers a compaction epoch rebuilding the tree without its
	// tombstoned elements. It returns immediately; operations
	// submitted while the epoch runs are answered after it completes,
	// in submission order.
	GC()
}

type service struct {
	logger    log.Logger
	inboxSize int
	inbox     chan message.Message
	nextID    int64

	// Manager state, touched only by the goroutine running Run. The
	// manager is the single writer of the root reference.
	state    state
	root     *node.Node
	newRoot  *node.Node
	deferred []message.Message
	epoch    string
}

// Functions

// NewService takes in all required parameters for spinning up a new
// tree set, creates the sentinel root of the first tree generation,
// and returns a service struct wrapping all information. The returned
// service's Run method has to be started in the background before use.
func NewService(logger log.Logger, conf config.Set) Service {

	s := &service{
		logger:    logger,
		inboxSize: conf.InboxSize,
		inbox:     make(chan message.Message, conf.InboxSize),
	}

	s.root = node.NewRoot(logger, s.inbox, conf.InboxSize)

	return s
}

// Run loops over messages arriving at the manager and dispatches
// each one based on the manager's current state.
func (s *service) Run() error {

	for msg := range s.inbox {
		s.dispatch(msg)
	}

	return nil
}

// Inbox exposes the raw message protocol of the manager.
func (s *service) Inbox() chan<- message.Message {
	return s.inbox
}

// dispatch routes one message to the handler of the current state.
// It is also the replay path for messages deferred during an epoch.
func (s *service) dispatch(msg message.Message) {

	if s.state == stateCollecting {
		s.collecting(msg)
		return
	}

	s.normal(msg)
}

// normal forwards operations unchanged into the current tree and
// starts a compaction epoch on a GC trigger.
func (s *service) normal(msg message.Message) {

	switch msg.(type) {

	case message.Insert, message.Contains, message.Remove:
		s.root.Inbox() <- msg

	case message.GC:
		s.startEpoch()

	default:
		s.violation(msg, "normal")
	}
}

// collecting defers every message except the CopyFinished of the old
// root. Deferred messages are neither dropped nor rejected; they are
// replayed in arrival order once the epoch completes. A GC trigger
// received here is deferred like any other message and re-triggers
// an epoch on replay, so epochs stay strictly sequential.
func (s *service) collecting(msg message.Message) {

	if _, finished := msg.(message.CopyFinished); !finished {
		s.deferred = append(s.deferred, msg)
		return
	}

	// The old generation has been copied in full. Dropping the only
	// reference to the old root discards that generation wholesale.
	s.root = s.newRoot
	s.newRoot = nil
	s.state = stateNormal

	level.Debug(s.logger).Log(
		"msg", "compaction epoch finished",
		"epoch", s.epoch,
		"deferred", len(s.deferred),
	)

	// Replay deferred messages in their original order. A deferred GC
	// switches the manager back to collecting mid-replay, at which
	// point the remainder of the queue is simply deferred again.
	replay := s.deferred
	s.deferred = nil

	for _, m := range replay {
		s.dispatch(m)
	}
}

// startEpoch creates the sentinel root of the next tree generation
// and instructs the current root to copy its live elements over.
func (s *service) startEpoch() {

	s.epoch = uuid.NewV4().String()
	s.newRoot = node.NewRoot(s.logger, s.inbox, s.inboxSize)
	s.state = stateCollecting

	s.root.Inbox() <- message.CopyTo{Target: s.newRoot.Inbox()}

	level.Debug(s.logger).Log(
		"msg", "compaction epoch started",
		"epoch", s.epoch,
	)
}

// violation handles a message that is out of protocol for the
// manager's current state. It can only be caused by an implementation
// bug and is fatal, never silently ignored.
func (s *service) violation(msg message.Message, state string) {

	err := errors.Errorf("manager received %T in %s state", msg, state)

	level.Error(s.logger).Log(
		"msg", "protocol violation",
		"err", err,
	)

	panic(err)
}

// Insert adds elem to the set and returns once the operation
// has been confirmed.
func (s *service) Insert(elem int64) {

	done := make(chan message.Message, 1)
	id := atomic.AddInt64(&s.nextID, 1)

	s.inbox <- message.Insert{Requester: done, ID: id, Elem: elem}

	s.awaitFinished(done, id)
}

// Contains reports whether elem is in the set.
func (s *service) Contains(elem int64) bool {

	done := make(chan message.Message, 1)
	id := atomic.AddInt64(&s.nextID, 1)

	s.inbox <- message.Contains{Requester: done, ID: id, Elem: elem}

	rep := <-done

	res, answered := rep.(message.ContainsResult)
	if !answered || res.ID != id {
		panic(errors.Errorf("reply %#v does not answer contains %d", rep, id))
	}

	return res.Result
}

// Remove deletes elem from the set and returns once the operation
// has been confirmed.
func (s *service) Remove(elem int64) {

	done := make(chan message.Message, 1)
	id := atomic.AddInt64(&s.nextID, 1)

	s.inbox <- message.Remove{Requester: done, ID: id, Elem: elem}

	s.awaitFinished(done, id)
}

// GC triggers a compaction epoch.
func (s *service) GC() {
	s.inbox <- message.GC{}
}

// awaitFinished blocks until the OperationFinished correlated by id
// arrives on done. There is no timeout anywhere in the protocol: a
// lost reply stalls the waiting caller indefinitely. A reply that does
// not echo the request id verbatim is a fatal implementation bug.
func (s *service) awaitFinished(done <-chan message.Message, id int64) {

	rep := <-done

	fin, answered := rep.(message.OperationFinished)
	if !answered || fin.ID != id {
		panic(errors.Errorf("reply %#v does not answer operation %d", rep, id))
	}
}
