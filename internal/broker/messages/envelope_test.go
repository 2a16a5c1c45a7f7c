package messages

import (
	"testing"
	"time"

	"github.com/BearBump/OrderSync/internal/models"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	e := NewEnvelope(TypeOrderCreated, "main", []byte(`{"id":"42"}`), now)
	require.NotEmpty(t, e.ID)
	require.Equal(t, []byte("main"), e.Key())
	require.Equal(t, time.UTC, e.ReceivedAt.Location())

	b, err := e.Marshal()
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, e.ID, got.ID)
	require.JSONEq(t, `{"id":"42"}`, string(got.Payload))
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte(`nope`))
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = Decode([]byte(`{"type":"order.created"}`))
	require.ErrorIs(t, err, models.ErrValidation)
}
