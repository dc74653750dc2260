package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funplay.vn/light-engine/internal/common"
	"funplay.vn/light-engine/internal/pplp"
)

// fakeReader отдаёт сообщения по очереди и отменяет контекст, когда они кончились.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	done      context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		r.done()
		return kafka.Message{}, context.Canceled
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeRecorder struct {
	mu       sync.Mutex
	seen     map[string]bool
	stored   []pplp.ActionEvent
	failures int
}

func (f *fakeRecorder) Record(_ context.Context, ev pplp.ActionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset")
	}
	if ev.EventID == "" {
		return fmt.Errorf("%w: пустой event_id", common.ErrInvalidEvent)
	}
	if f.seen[ev.EventID] {
		return common.ErrDuplicateEvent
	}
	f.seen[ev.EventID] = true
	f.stored = append(f.stored, ev)
	return nil
}

func message(offset int64, value string) kafka.Message {
	return kafka.Message{Offset: offset, Value: []byte(value)}
}

func runConsumer(t *testing.T, rec *fakeRecorder, msgs ...kafka.Message) *fakeReader {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{queue: msgs, done: cancel}
	c := newActionConsumer(reader, rec, time.Second)
	c.retryDelay = time.Millisecond

	err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	return reader
}

const validAction = `{"event_id":"e1","user_id":"ly","action_type":"post","occurred_at":"2025-03-14T09:00:00Z","content_type":"post","rating":{"average":4,"count":12}}`

func TestConsumerStoresAndCommits(t *testing.T) {
	rec := &fakeRecorder{seen: map[string]bool{}}
	reader := runConsumer(t, rec,
		message(1, validAction),
		message(2, `{not json`),
		message(3, validAction),
		message(4, `{"user_id":"ly","action_type":"like","occurred_at":"2025-03-14T09:00:00Z"}`),
	)

	require.Len(t, rec.stored, 1)
	ev := rec.stored[0]
	assert.Equal(t, "ly", ev.UserID)
	assert.Equal(t, pplp.ActionPost, ev.Type)
	require.NotNil(t, ev.Rating)
	assert.Equal(t, 12, ev.Rating.Count)

	// Все сообщения, включая битые и дубли, зафиксированы.
	assert.Equal(t, []int64{1, 2, 3, 4}, reader.committed)
}

func TestConsumerRetriesStorageErrors(t *testing.T) {
	rec := &fakeRecorder{seen: map[string]bool{}, failures: 2}
	reader := runConsumer(t, rec, message(7, validAction))

	require.Len(t, rec.stored, 1)
	assert.Equal(t, []int64{7}, reader.committed)
}

func TestDecodeAction(t *testing.T) {
	ev, err := DecodeAction([]byte(`{"event_id":" e9 ","user_id":" minh ","action_type":"vote","occurred_at":"2025-03-14T09:00:00+07:00"}`))
	require.NoError(t, err)
	assert.Equal(t, "e9", ev.EventID)
	assert.Equal(t, "minh", ev.UserID)
	assert.Equal(t, time.Date(2025, time.March, 14, 2, 0, 0, 0, time.UTC), ev.OccurredAt.UTC())

	_, err = DecodeAction([]byte(`[]`))
	require.Error(t, err)
}

func TestNewActionConsumerValidates(t *testing.T) {
	_, err := NewActionConsumer(Config{Topic: "t", GroupID: "g"}, &fakeRecorder{})
	require.Error(t, err)
	_, err = NewActionConsumer(Config{Brokers: []string{"kafka:9092"}, GroupID: "g"}, &fakeRecorder{})
	require.Error(t, err)
}
