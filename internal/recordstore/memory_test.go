package recordstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_CRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	inserted, err := m.Insert(ctx, "orders",
		Row{"status": "pending", "total": "53.39"},
		Row{"status": "paid", "total": "10.00"},
	)
	require.NoError(t, err)
	require.Len(t, inserted, 2)
	assert.NotEmpty(t, inserted[0].String("id"))

	id := inserted[0].String("id")

	rows, err := m.Select(ctx, "orders", Eq("status", "pending"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].String("id"))

	updated, err := m.Update(ctx, "orders", Row{"status": "paid"}, Eq("id", id).Eq("status", "pending"))
	require.NoError(t, err)
	assert.Len(t, updated, 1)

	updated, err = m.Update(ctx, "orders", Row{"status": "failed"}, Eq("id", id).Eq("status", "pending"))
	require.NoError(t, err)
	assert.Empty(t, updated, "conditional update must not match twice")

	rows, err = m.Select(ctx, "orders", In("status", "paid"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.NoError(t, m.Delete(ctx, "orders", Eq("id", id)))
	rows, err = m.Select(ctx, "orders", All())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rows, err := m.Insert(ctx, "order_items", Row{"order_id": "o-1", "quantity": 1})
	require.NoError(t, err)
	rows[0]["quantity"] = 99

	stored, err := m.Select(ctx, "order_items", Eq("order_id", "o-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, stored[0].Int("quantity"))
}

func TestMemory_IsNullAndOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Insert(ctx, "order_items",
		Row{"id": "b", "fulfillment_dispatched_at": nil},
		Row{"id": "a", "fulfillment_dispatched_at": nil},
		Row{"id": "c", "fulfillment_dispatched_at": "2026-01-01T00:00:00Z"},
	)
	require.NoError(t, err)

	rows, err := m.Select(ctx, "order_items", IsNull("fulfillment_dispatched_at").OrderBy("id"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].String("id"))
	assert.Equal(t, "b", rows[1].String("id"))
}

func TestMemory_OrderByIntegerColumn(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Insert(ctx, "order_items",
		Row{"line_no": 10},
		Row{"line_no": 2},
		Row{"line_no": 1},
	)
	require.NoError(t, err)

	rows, err := m.Select(ctx, "order_items", Filter{}.OrderBy("line_no"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{rows[0].Int("line_no"), rows[1].Int("line_no"), rows[2].Int("line_no")})
}

func TestMemory_Guards(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Insert(ctx, "orders")
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = m.Insert(ctx, "orders", Row{"a": 1}, Row{"b": 2})
	assert.ErrorIs(t, err, ErrColumnMismatch)

	_, err = m.Update(ctx, "orders", Row{"a": 1}, All())
	assert.ErrorIs(t, err, ErrEmptyFilter)

	_, err = m.Select(ctx, "Orders!", All())
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}
