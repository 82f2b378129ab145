package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// serializerTestEvent is a test event for serializer tests
type serializerTestEvent struct {
	shared.BaseDomainEvent
	Data    string `json:"data"`
	Counter int    `json:"counter"`
}

func newSerializerTestEvent() *serializerTestEvent {
	return &serializerTestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("SerializerTestEvent", "TestAggregate", uuid.New()),
		Data:            "test data",
		Counter:         42,
	}
}

func TestEventSerializer_Register(t *testing.T) {
	serializer := NewEventSerializer()

	serializer.Register("SerializerTestEvent", &serializerTestEvent{})

	assert.True(t, serializer.IsRegistered("SerializerTestEvent"))
	assert.False(t, serializer.IsRegistered("UnknownEvent"))
}

func TestEventSerializer_RegisteredTypes(t *testing.T) {
	serializer := NewEventSerializer()

	serializer.Register("Event1", &serializerTestEvent{})
	serializer.Register("Event2", &serializerTestEvent{})

	types := serializer.RegisteredTypes()
	assert.Len(t, types, 2)
	assert.Contains(t, types, "Event1")
	assert.Contains(t, types, "Event2")
}

func TestEventSerializer_Serialize(t *testing.T) {
	serializer := NewEventSerializer()
	event := newSerializerTestEvent()

	data, err := serializer.Serialize(event)

	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Contains(t, string(data), `"data":"test data"`)
	assert.Contains(t, string(data), `"counter":42`)
}

func TestEventSerializer_Deserialize(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("SerializerTestEvent", &serializerTestEvent{})

	original := newSerializerTestEvent()
	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	deserialized, err := serializer.Deserialize("SerializerTestEvent", data)
	require.NoError(t, err)

	event, ok := deserialized.(*serializerTestEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventType(), event.EventType())
	assert.Equal(t, original.Data, event.Data)
	assert.Equal(t, original.Counter, event.Counter)
}

func TestEventSerializer_Deserialize_UnknownType(t *testing.T) {
	serializer := NewEventSerializer()

	_, err := serializer.Deserialize("UnknownEvent", []byte(`{}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestEventSerializer_Deserialize_InvalidJSON(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("SerializerTestEvent", &serializerTestEvent{})

	_, err := serializer.Deserialize("SerializerTestEvent", []byte(`invalid json`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}

func TestRegisterAllEvents_RoundTrip(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)

	buyer := uuid.New()
	tx, err := payment.NewSaleTransaction(buyer, uuid.New(), uuid.New(), "cs_test", 2050)
	require.NoError(t, err)
	_, err = tx.Complete("pi_test", "", "card", time.Now())
	require.NoError(t, err)
	original := tx.PullDomainEvents()[0].(*payment.PaymentCompletedEvent)

	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	deserialized, err := serializer.Deserialize(payment.EventTypePaymentCompleted, data)
	require.NoError(t, err)

	event, ok := deserialized.(*payment.PaymentCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), event.EventID())
	assert.Equal(t, original.AggregateID(), event.AggregateID())
	assert.Equal(t, payment.AggregateTypeTransaction, event.AggregateType())
	assert.Equal(t, int64(2050), event.Amount)
	assert.Equal(t, int64(1947), event.ArtistAmount)
	require.NotNil(t, event.BuyerID)
	assert.Equal(t, buyer, *event.BuyerID)
}

func TestRegisterAllEvents_CoversDomainEvents(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)

	for _, eventType := range []string{
		identity.EventTypeUserRegistered,
		identity.EventTypeUserVerified,
		identity.EventTypeVerificationOTPReissued,
		identity.EventTypePasswordResetRequested,
		catalog.EventTypeArtworkCreated,
		catalog.EventTypeArtworkApproved,
		catalog.EventTypeArtworkRejected,
		catalog.EventTypeArtworkDeleted,
		catalog.EventTypeArtworkSold,
		payment.EventTypePaymentCompleted,
		payment.EventTypePaymentFailed,
		payment.EventTypeRefundRequired,
	} {
		assert.True(t, serializer.IsRegistered(eventType), eventType)
	}
}

func TestRegisterAllEvents_RefundRequired(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)

	tx, err := payment.NewSaleTransaction(uuid.New(), uuid.New(), uuid.New(), "cs_late", 9900)
	require.NoError(t, err)
	_, err = tx.Complete("pi_late", "", "card", time.Now())
	require.NoError(t, err)
	tx.RequireRefund("ARTWORK_SOLD")
	events := tx.PullDomainEvents()
	require.Len(t, events, 1)

	data, err := serializer.Serialize(events[0])
	require.NoError(t, err)
	deserialized, err := serializer.Deserialize(payment.EventTypeRefundRequired, data)
	require.NoError(t, err)

	refund, ok := deserialized.(*payment.RefundRequiredEvent)
	require.True(t, ok)
	assert.Equal(t, "ARTWORK_SOLD", refund.Reason)
	assert.Equal(t, "pi_late", refund.PaymentIntentID)
	assert.Equal(t, int64(9900), refund.Amount)
	assert.Equal(t, *tx.BuyerID, refund.Payer())
}
