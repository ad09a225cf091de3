package lib

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexTree_PublishFillsSlot(t *testing.T) {
	tree := newIndexTree[struct{}]()
	entry := &Entry[struct{}]{Name: "a", parent: &dirPath{path: "root"}}
	tree.publish(tree.root, []*Entry[struct{}]{entry}, nil)

	listing, err, ok := tree.awaitFilled(tree.root)
	require.True(t, ok)
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Equal(t, "a", listing[0].Name)
}

func TestIndexTree_PublishError(t *testing.T) {
	tree := newIndexTree[struct{}]()
	tree.publish(tree.root, nil, newPathError(0, "root", assert.AnError))

	listing, err, ok := tree.awaitFilled(tree.root)
	require.True(t, ok)
	require.Error(t, err)
	assert.Nil(t, listing)
}

func TestIndexTree_ScheduleChildAssignsOrdinals(t *testing.T) {
	tree := newIndexTree[struct{}]()
	first := tree.scheduleChild(tree.root, 0)
	second := tree.scheduleChild(tree.root, 1)

	require.Len(t, tree.root.children, 2)
	assert.Same(t, first, tree.root.children[0])
	assert.Same(t, second, tree.root.children[1])
	assert.Equal(t, 0, first.ordinal)
	assert.Equal(t, 1, second.ordinal)
}

func TestIndexTree_AwaitBlocksUntilPublished(t *testing.T) {
	tree := newIndexTree[struct{}]()
	child := tree.scheduleChild(tree.root, 0)

	go func() {
		// Fill out of order: the iterator is parked on child, not root.
		time.Sleep(20 * time.Millisecond)
		tree.publish(child, []*Entry[struct{}]{}, nil)
	}()

	start := time.Now()
	listing, err, ok := tree.awaitFilled(child)
	require.True(t, ok)
	require.NoError(t, err)
	assert.Empty(t, listing)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestIndexTree_StopWakesWaiter(t *testing.T) {
	tree := newIndexTree[struct{}]()

	go func() {
		time.Sleep(20 * time.Millisecond)
		tree.stop()
	}()

	done := make(chan bool, 1)
	go func() {
		_, _, ok := tree.awaitFilled(tree.root)
		done <- ok
	}()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("awaitFilled did not return after stop")
	}
}

func TestIndexTree_RetireFreesListingAndCountsOnParent(t *testing.T) {
	tree := newIndexTree[struct{}]()
	child := tree.scheduleChild(tree.root, 0)
	tree.publish(child, []*Entry[struct{}]{{Name: "f"}}, nil)

	tree.retire(child)
	require.True(t, child.retired)
	require.Nil(t, child.listing)
	assert.Equal(t, 1, tree.root.retiredChildren)
}

func TestIndexTree_SerialRunFillsOnDemand(t *testing.T) {
	tree := newIndexTree[int]()
	queue := newSerialQueue[int]()
	tree.runSerial = queue.run

	queue.add(tree.root, func() {
		tree.publish(tree.root, []*Entry[int]{{Name: "lazy"}}, nil)
	})

	listing, err, ok := tree.awaitFilled(tree.root)
	require.True(t, ok)
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Equal(t, "lazy", listing[0].Name)
}

func TestIndexTree_SerialAwaitWithNoTaskGivesUp(t *testing.T) {
	tree := newIndexTree[int]()
	queue := newSerialQueue[int]()
	tree.runSerial = queue.run

	_, _, ok := tree.awaitFilled(tree.root)
	require.False(t, ok)
}
