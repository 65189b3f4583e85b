package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "revenuehub/pkg/domain"
	audit "revenuehub/pkg/platform/audit"
	"revenuehub/pkg/platform/audit/store/memory"
	"revenuehub/pkg/requestcontext"
)

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (s *recordingSink) Publish(_ context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Action: audit.ActionPaymentRecorded, District: "Accra Metropolitan"})
	require.NoError(t, err)

	events, err := pub.Search(context.Background(), audit.Query{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionPaymentRecorded, events[0].Action)
	assert.Equal(t, audit.CategoryFinancial, events[0].Category)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
}

func TestPublisher_EnrichesFromRequestContext(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := id.UserID(uuid.New())
	ctx := requestcontext.WithPrincipal(context.Background(), userID, id.RoleCollector, "Accra Metropolitan", "Greater Accra")
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithClientMetadata(ctx, "41.66.0.1", "curl/8.0", "curl on Unknown OS")

	require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionBusinessUpdated}))

	events, err := store.Search(ctx, audit.Query{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, userID.String(), e.ActorID)
	assert.Equal(t, "collector", e.ActorRole)
	assert.Equal(t, "req-42", e.RequestID)
	assert.Equal(t, "41.66.0.1", e.IPAddress)
	assert.Equal(t, audit.CategoryAdministrative, e.Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionUserCreated}))
	}
	pub.Close()

	events, err := store.Search(context.Background(), audit.Query{})
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFullDoesNotPanic(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{Action: audit.ActionUserCreated})
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionLogout, Timestamp: customTime}))

	events, err := store.Search(context.Background(), audit.Query{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_SinkFailureDoesNotFailEmit(t *testing.T) {
	store := memory.NewInMemoryStore()
	sink := &recordingSink{err: errors.New("broker unavailable")}
	pub := NewPublisher(store, WithSinks(sink))
	defer pub.Close()

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionPaymentValidated}))

	assert.Len(t, sink.events, 1)
	events, err := store.Search(context.Background(), audit.Query{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestPublisher_SinkCircuitOpensAndRecovers(t *testing.T) {
	store := memory.NewInMemoryStore()
	rs := &recordingSink{err: errors.New("broker unavailable")}
	pub := NewPublisher(store, WithSinks(rs))
	defer pub.Close()
	ctx := context.Background()

	for range 6 {
		require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionPaymentRecorded}))
	}
	require.Len(t, pub.sinks, 1)
	assert.True(t, pub.sinks[0].breaker.IsOpen())
	assert.Len(t, rs.events, 6, "open circuit still calls the sink")

	rs.mu.Lock()
	rs.err = nil
	rs.mu.Unlock()
	for range 2 {
		require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionPaymentRecorded}))
	}
	assert.False(t, pub.sinks[0].breaker.IsOpen())
}
