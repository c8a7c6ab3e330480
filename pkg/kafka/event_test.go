package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "ecommerce.item.insert", Topic("item", "insert"))
	assert.Equal(t, "ecommerce.item.delete", Topic("item", "delete"))
}

func TestEvent_RoundTrip(t *testing.T) {
	e, err := NewEvent("item.update", "42", map[string]int64{"id": 42})
	require.NoError(t, err)
	assert.NotEmpty(t, e.EventID)
	assert.False(t, e.Timestamp.IsZero())

	b, err := e.Marshal()
	require.NoError(t, err)

	got, err := ParseEvent(b)
	require.NoError(t, err)
	assert.Equal(t, e.EventID, got.EventID)
	assert.Equal(t, "item.update", got.EventType)
	assert.Equal(t, "42", got.AggregateID)

	var data struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, got.DecodeData(&data))
	assert.Equal(t, int64(42), data.ID)
}

func TestParseEvent_Errors(t *testing.T) {
	_, err := ParseEvent(nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = ParseEvent([]byte("not json"))
	assert.Error(t, err)
}

func TestEvent_DecodeData_Empty(t *testing.T) {
	e, err := NewEvent("item.delete", "1", nil)
	require.NoError(t, err)
	var target map[string]any
	assert.ErrorIs(t, e.DecodeData(&target), ErrEmptyPayload)
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("x", "1", make(chan int))
	assert.Error(t, err)
}
