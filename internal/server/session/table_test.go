package session

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_BindAndGet(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	b := tbl.Bind("c1", "123456", "p1", "Alice")
	assert.Equal(t, "c1", b.ConnectionID)
	assert.False(t, b.JoinedAt.IsZero())

	got, ok := tbl.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "123456", got.RoomCode)
	assert.Equal(t, "p1", got.PlayerID)
	assert.Equal(t, "Alice", got.PlayerName)

	connID, ok := tbl.ConnectionOf("p1")
	require.True(t, ok)
	assert.Equal(t, "c1", connID)

	_, ok = tbl.Get("missing")
	assert.False(t, ok)
}

func TestTable_RebindReplacesOldPlayer(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	tbl.Bind("c1", "111111", "p1", "Alice")
	tbl.Bind("c1", "222222", "p2", "Alice")

	_, ok := tbl.ConnectionOf("p1")
	assert.False(t, ok)
	got, _ := tbl.Get("c1")
	assert.Equal(t, "222222", got.RoomCode)
	assert.Equal(t, 1, tbl.Count())
}

func TestTable_Unbind(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	tbl.Bind("c1", "123456", "p1", "Alice")

	b, ok := tbl.Unbind("c1")
	require.True(t, ok)
	assert.Equal(t, "p1", b.PlayerID)

	_, ok = tbl.Unbind("c1")
	assert.False(t, ok)
	_, ok = tbl.ConnectionOf("p1")
	assert.False(t, ok)
	assert.Zero(t, tbl.Count())
}

func TestTable_UnbindPlayer(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	tbl.Bind("c1", "123456", "p1", "Alice")

	connID, ok := tbl.UnbindPlayer("p1")
	require.True(t, ok)
	assert.Equal(t, "c1", connID)

	_, ok = tbl.Get("c1")
	assert.False(t, ok)
	_, ok = tbl.UnbindPlayer("p1")
	assert.False(t, ok)
}

func TestTable_InRoom(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	tbl.Bind("c1", "111111", "p1", "Alice")
	tbl.Bind("c2", "111111", "p2", "Bob")
	tbl.Bind("c3", "222222", "p3", "Carol")

	bindings := tbl.InRoom("111111")
	ids := make([]string, len(bindings))
	for i, b := range bindings {
		ids[i] = b.ConnectionID
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"c1", "c2"}, ids)
	assert.Empty(t, tbl.InRoom("999999"))
}

func TestTable_Concurrent(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := fmt.Sprintf("c%d", i)
			tbl.Bind(conn, "123456", fmt.Sprintf("p%d", i), "P")
			_ = tbl.InRoom("123456")
			if i%2 == 0 {
				tbl.Unbind(conn)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, tbl.Count())
}
