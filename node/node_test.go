package node

import (
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"

	"github.com/numbleroot/bintree/message"
)

// Functions

// receiveWithin awaits one message on ch, failing the test if none
// arrives in time. Production code waits indefinitely; tests bound the
// wait so a protocol bug fails fast instead of hanging the suite.
func receiveWithin(t *testing.T, ch chan message.Message, d time.Duration) message.Message {

	t.Helper()

	select {
	case msg := <-ch:
		return msg
	case <-time.After(d):
		t.Fatalf("[node] Timed out after %v waiting for a message.", d)
		return nil
	}
}

// testRoot spawns a fresh sentinel root whose CopyFinished
// signals arrive on the returned channel.
func testRoot() (*Node, chan message.Message) {

	parent := make(chan message.Message, 8)

	return NewRoot(log.NewNopLogger(), parent, 8), parent
}

// TestInsertContains checks that an inserted element
// is reported as a member afterwards.
func TestInsertContains(t *testing.T) {

	root, _ := testRoot()
	done := make(chan message.Message, 1)

	root.inbox <- message.Insert{Requester: done, ID: 1, Elem: 5}
	assert.Equal(t, message.OperationFinished{ID: 1}, receiveWithin(t, done, time.Second))

	root.inbox <- message.Contains{Requester: done, ID: 2, Elem: 5}
	assert.Equal(t, message.ContainsResult{ID: 2, Result: true}, receiveWithin(t, done, time.Second))
}

// TestContainsAbsent checks membership tests against an empty tree,
// including the sentinel's own element.
func TestContainsAbsent(t *testing.T) {

	root, _ := testRoot()
	done := make(chan message.Message, 1)

	root.inbox <- message.Contains{Requester: done, ID: 1, Elem: 7}
	assert.Equal(t, message.ContainsResult{ID: 1, Result: false}, receiveWithin(t, done, time.Second))

	// The sentinel carries element zero but starts tombstoned, so an
	// empty set must not report zero as a member.
	root.inbox <- message.Contains{Requester: done, ID: 2, Elem: 0}
	assert.Equal(t, message.ContainsResult{ID: 2, Result: false}, receiveWithin(t, done, time.Second))
}

// TestRemove checks tombstoning a member and that removing an
// absent element is a no-op success.
func TestRemove(t *testing.T) {

	root, _ := testRoot()
	done := make(chan message.Message, 1)

	// Removing from an empty tree still confirms.
	root.inbox <- message.Remove{Requester: done, ID: 1, Elem: 3}
	assert.Equal(t, message.OperationFinished{ID: 1}, receiveWithin(t, done, time.Second))

	root.inbox <- message.Insert{Requester: done, ID: 2, Elem: 5}
	receiveWithin(t, done, time.Second)

	root.inbox <- message.Remove{Requester: done, ID: 3, Elem: 5}
	assert.Equal(t, message.OperationFinished{ID: 3}, receiveWithin(t, done, time.Second))

	root.inbox <- message.Contains{Requester: done, ID: 4, Elem: 5}
	assert.Equal(t, message.ContainsResult{ID: 4, Result: false}, receiveWithin(t, done, time.Second))
}

// TestInsertRemoveInsert checks that re-inserting a tombstoned
// element clears its tombstone.
func TestInsertRemoveInsert(t *testing.T) {

	root, _ := testRoot()
	done := make(chan message.Message, 1)

	root.inbox <- message.Insert{Requester: done, ID: 1, Elem: 9}
	receiveWithin(t, done, time.Second)

	root.inbox <- message.Remove{Requester: done, ID: 2, Elem: 9}
	receiveWithin(t, done, time.Second)

	root.inbox <- message.Insert{Requester: done, ID: 3, Elem: 9}
	assert.Equal(t, message.OperationFinished{ID: 3}, receiveWithin(t, done, time.Second))

	root.inbox <- message.Contains{Requester: done, ID: 4, Elem: 9}
	assert.Equal(t, message.ContainsResult{ID: 4, Result: true}, receiveWithin(t, done, time.Second))
}

// TestSubtreeDispatch grows a small tree and checks that operations
// descend to the correct subtree, including repeated inserts.
func TestSubtreeDispatch(t *testing.T) {

	root, _ := testRoot()
	done := make(chan message.Message, 1)

	elems := []int64{5, 3, 8, 4, 3}

	for i, elem := range elems {
		root.inbox <- message.Insert{Requester: done, ID: int64(i + 1), Elem: elem}
		assert.Equal(t, message.OperationFinished{ID: int64(i + 1)}, receiveWithin(t, done, time.Second))
	}

	for i, elem := range []int64{5, 3, 8, 4} {
		root.inbox <- message.Contains{Requester: done, ID: int64(i + 10), Elem: elem}
		assert.Equal(t, message.ContainsResult{ID: int64(i + 10), Result: true}, receiveWithin(t, done, time.Second))
	}

	root.inbox <- message.Contains{Requester: done, ID: 20, Elem: 6}
	assert.Equal(t, message.ContainsResult{ID: 20, Result: false}, receiveWithin(t, done, time.Second))
}

// TestCopyEmptyRoot checks that a childless tombstone finishes its
// copy immediately and materializes nothing in the new generation.
func TestCopyEmptyRoot(t *testing.T) {

	root, parent := testRoot()
	target, _ := testRoot()

	root.inbox <- message.CopyTo{Target: target.inbox}

	assert.IsType(t, message.CopyFinished{}, receiveWithin(t, parent, time.Second))

	done := make(chan message.Message, 1)
	target.inbox <- message.Contains{Requester: done, ID: 1, Elem: 0}
	assert.Equal(t, message.ContainsResult{ID: 1, Result: false}, receiveWithin(t, done, time.Second))
}

// TestCopyLiveSubtree checks that compaction materializes exactly the
// live elements of a subtree and drops its tombstones.
func TestCopyLiveSubtree(t *testing.T) {

	root, parent := testRoot()
	done := make(chan message.Message, 1)

	for i, elem := range []int64{5, 3, 8} {
		root.inbox <- message.Insert{Requester: done, ID: int64(i + 1), Elem: elem}
		receiveWithin(t, done, time.Second)
	}

	root.inbox <- message.Remove{Requester: done, ID: 4, Elem: 3}
	receiveWithin(t, done, time.Second)

	target, _ := testRoot()

	root.inbox <- message.CopyTo{Target: target.inbox}
	assert.IsType(t, message.CopyFinished{}, receiveWithin(t, parent, time.Second))

	expected := map[int64]bool{5: true, 8: true, 3: false, 0: false}

	id := int64(10)
	for elem, member := range expected {
		target.inbox <- message.Contains{Requester: done, ID: id, Elem: elem}
		assert.Equal(t, message.ContainsResult{ID: id, Result: member}, receiveWithin(t, done, time.Second), "elem %d", elem)
		id++
	}
}

// TestCopyCarriesSentinelElement checks that the sentinel's element
// behaves like any other once inserted: a live zero survives copying.
func TestCopyCarriesSentinelElement(t *testing.T) {

	root, parent := testRoot()
	done := make(chan message.Message, 1)

	root.inbox <- message.Insert{Requester: done, ID: 1, Elem: 0}
	receiveWithin(t, done, time.Second)

	target, _ := testRoot()

	root.inbox <- message.CopyTo{Target: target.inbox}
	assert.IsType(t, message.CopyFinished{}, receiveWithin(t, parent, time.Second))

	target.inbox <- message.Contains{Requester: done, ID: 2, Elem: 0}
	assert.Equal(t, message.ContainsResult{ID: 2, Result: true}, receiveWithin(t, done, time.Second))
}

// TestCopyTombstonedLeaf checks that a tombstoned leaf signals
// completion without contributing its element.
func TestCopyTombstonedLeaf(t *testing.T) {

	root, parent := testRoot()
	done := make(chan message.Message, 1)

	root.inbox <- message.Insert{Requester: done, ID: 1, Elem: 3}
	receiveWithin(t, done, time.Second)

	root.inbox <- message.Remove{Requester: done, ID: 2, Elem: 3}
	receiveWithin(t, done, time.Second)

	target, _ := testRoot()

	root.inbox <- message.CopyTo{Target: target.inbox}
	assert.IsType(t, message.CopyFinished{}, receiveWithin(t, parent, time.Second))

	target.inbox <- message.Contains{Requester: done, ID: 3, Elem: 3}
	assert.Equal(t, message.ContainsResult{ID: 3, Result: false}, receiveWithin(t, done, time.Second))
}
