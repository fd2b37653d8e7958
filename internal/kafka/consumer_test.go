package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"reservation-service/internal/commands"
	"reservation-service/internal/domain"
	"reservation-service/internal/events"
	"reservation-service/internal/ledger"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) ProcessEvent(ctx context.Context, eventType string, eventData []byte) error {
	return m.Called(ctx, eventType, eventData).Error(0)
}

type fakeSession struct {
	ctx    context.Context
	marked []*sarama.ConsumerMessage
}

func (s *fakeSession) Claims() map[string][]int32 { return nil }
func (s *fakeSession) MemberID() string { return "member" }
func (s *fakeSession) GenerationID() int32 { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string) {}
func (s *fakeSession) Commit() {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) { s.marked = append(s.marked, msg) }
func (s *fakeSession) Context() context.Context { return s.ctx }

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string { return "catalog.items" }
func (c *fakeClaim) Partition() int32 { return 0 }
func (c *fakeClaim) InitialOffset() int64 { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64 { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func message(eventType string, payload interface{}) *sarama.ConsumerMessage {
	data, _ := json.Marshal(payload)
	msg := &sarama.ConsumerMessage{Topic: "catalog.items", Value: data}
	if eventType != "" {
		msg.Headers = []*sarama.RecordHeader{{Key: []byte("event-type"), Value: []byte(eventType)}}
	}
	return msg
}

func newProcessor(t *testing.T) (*CatalogProcessor, *ledger.Ledger) {
	t.Helper()
	l := ledger.New(zap.NewNop())
	require.NoError(t, l.LoadCatalog([]domain.Item{domain.NewItem(1, "Combo", 5)}))
	svc := commands.NewService(l, nil, nil, events.NewInMemoryEventPublisher(zap.NewNop()), nil, zap.NewNop())
	return NewCatalogProcessor(svc, zap.NewNop()), l
}

func TestProcessEvent_UpsertAddsItem(t *testing.T) {
	p, l := newProcessor(t)
	data, _ := json.Marshal(events.CatalogItemUpsertedEvent{
		ItemID:            2,
		Name:              "Fries",
		StockEnabled:      true,
		CommittedQuantity: 7,
		ParentID:          domain.ParentRef(1),
	})

	require.NoError(t, p.ProcessEvent(context.Background(), events.TypeCatalogItemUpserted, data))

	item, ok := l.Item(2)
	require.True(t, ok)
	assert.Equal(t, "Fries", item.Name)
	assert.Equal(t, domain.ItemID(1), *item.ParentID)
}

func TestProcessEvent_DeleteIsIdempotent(t *testing.T) {
	p, l := newProcessor(t)
	data, _ := json.Marshal(events.CatalogItemDeletedEvent{ItemID: 1})

	require.NoError(t, p.ProcessEvent(context.Background(), events.TypeCatalogItemDeleted, data))
	require.NoError(t, p.ProcessEvent(context.Background(), events.TypeCatalogItemDeleted, data))

	_, ok := l.Item(1)
	assert.False(t, ok)
}

func TestProcessEvent_PermanentFailures(t *testing.T) {
	p, _ := newProcessor(t)
	invalidParent, _ := json.Marshal(events.CatalogItemUpsertedEvent{ItemID: 3, ParentID: domain.ParentRef(42)})

	testCases := []struct {
		name      string
		eventType string
		data      []byte
	}{
		{name: "unknown type", eventType: "SomethingElse", data: []byte(`{}`)},
		{name: "bad json", eventType: events.TypeCatalogItemUpserted, data: []byte(`{`)},
		{name: "invalid parent", eventType: events.TypeCatalogItemUpserted, data: invalidParent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := p.ProcessEvent(context.Background(), tc.eventType, tc.data)
			require.Error(t, err)
			assert.True(t, IsPermanent(err))
		})
	}
}

func TestProcessWithRetry_RecoversFromTransientError(t *testing.T) {
	processor := new(MockProcessor)
	processor.On("ProcessEvent", mock.Anything, "X", mock.Anything).Return(errors.New("db locked")).Once()
	processor.On("ProcessEvent", mock.Anything, "X", mock.Anything).Return(nil).Once()
	h := newConsumerGroupHandler(processor, 3, time.Millisecond, zap.NewNop())

	require.NoError(t, h.processWithRetry(context.Background(), "X", nil))
	processor.AssertNumberOfCalls(t, "ProcessEvent", 2)
}

func TestProcessWithRetry_GivesUp(t *testing.T) {
	processor := new(MockProcessor)
	processor.On("ProcessEvent", mock.Anything, "X", mock.Anything).Return(errors.New("db locked"))
	h := newConsumerGroupHandler(processor, 2, time.Millisecond, zap.NewNop())

	err := h.processWithRetry(context.Background(), "X", nil)

	assert.ErrorContains(t, err, "failed after 3 attempts")
	processor.AssertNumberOfCalls(t, "ProcessEvent", 3)
}

func TestProcessWithRetry_PermanentIsNotRetried(t *testing.T) {
	processor := new(MockProcessor)
	processor.On("ProcessEvent", mock.Anything, "X", mock.Anything).Return(permanent(errors.New("bad payload")))
	h := newConsumerGroupHandler(processor, 5, time.Millisecond, zap.NewNop())

	err := h.processWithRetry(context.Background(), "X", nil)

	assert.True(t, IsPermanent(err))
	processor.AssertNumberOfCalls(t, "ProcessEvent", 1)
}

func TestConsumeClaim_MarksEveryMessage(t *testing.T) {
	p, l := newProcessor(t)
	h := newConsumerGroupHandler(p, 0, time.Millisecond, zap.NewNop())

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 3)}
	claim.messages <- message(events.TypeCatalogItemUpserted, events.CatalogItemUpsertedEvent{ItemID: 1, Name: "Combo", StockEnabled: true, CommittedQuantity: 9})
	claim.messages <- message("", map[string]int{"item_id": 1})
	claim.messages <- message(events.TypeCatalogItemUpserted, map[string]interface{}{"item_id": -1})
	close(claim.messages)
	session := &fakeSession{ctx: context.Background()}

	require.NoError(t, h.ConsumeClaim(session, claim))

	assert.Len(t, session.marked, 3)
	item, _ := l.Item(1)
	assert.Equal(t, 9, item.CommittedQuantity)
}
