package actions

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funplay.vn/light-engine/internal/common"
	"funplay.vn/light-engine/internal/pplp"
)

type fakeStore struct {
	events  map[string]pplp.ActionEvent
	signals map[string]*Signals
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: map[string]pplp.ActionEvent{}, signals: map[string]*Signals{}}
}

func (f *fakeStore) InsertEvent(_ context.Context, ev pplp.ActionEvent) (bool, error) {
	if _, ok := f.events[ev.EventID]; ok {
		return false, nil
	}
	f.events[ev.EventID] = ev
	return true, nil
}

func (f *fakeStore) GetSignals(_ context.Context, userID string) (*Signals, error) {
	if s, ok := f.signals[userID]; ok {
		return s, nil
	}
	return DefaultSignals(userID), nil
}

func (f *fakeStore) UpsertSignals(_ context.Context, s *Signals) error {
	f.signals[s.UserID] = s
	return nil
}

func validEvent() pplp.ActionEvent {
	return pplp.ActionEvent{
		EventID:    "evt-1",
		UserID:     "ly",
		Type:       pplp.ActionPost,
		OccurredAt: time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestRecord(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, validEvent()))
	assert.Len(t, store.events, 1)

	err := svc.Record(ctx, validEvent())
	require.ErrorIs(t, err, common.ErrDuplicateEvent)
	assert.Len(t, store.events, 1)
}

func TestValidateEvent(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ev *pplp.ActionEvent)
	}{
		{"no event id", func(ev *pplp.ActionEvent) { ev.EventID = " " }},
		{"no user", func(ev *pplp.ActionEvent) { ev.UserID = "" }},
		{"no type", func(ev *pplp.ActionEvent) { ev.Type = "" }},
		{"no time", func(ev *pplp.ActionEvent) { ev.OccurredAt = time.Time{} }},
		{"NaN rating", func(ev *pplp.ActionEvent) {
			ev.Rating = &pplp.CommunityRating{Average: math.NaN(), Count: 1}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validEvent()
			tt.mutate(&ev)
			require.ErrorIs(t, ValidateEvent(ev), common.ErrInvalidEvent)
		})
	}

	// Неизвестный тип действия допустим: движок посчитает его нулём.
	ev := validEvent()
	ev.Type = "teleport"
	require.NoError(t, ValidateEvent(ev))
}

func TestUpdateSignals(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	def, err := svc.Signals(ctx, "ly")
	require.NoError(t, err)
	assert.Equal(t, 0, def.ViolationLevel)

	sig := &Signals{UserID: "ly", ReputationScore: 3, SuspiciousScore: 0.05, CompletedSteps: []string{"first_post"}, TotalSteps: 5}
	require.NoError(t, svc.UpdateSignals(ctx, sig))

	got, err := svc.Signals(ctx, "ly")
	require.NoError(t, err)
	assert.Equal(t, sig, got)

	require.ErrorIs(t, svc.UpdateSignals(ctx, &Signals{UserID: "ly", ViolationLevel: -1}), common.ErrInvalidSignals)
	require.ErrorIs(t, svc.UpdateSignals(ctx, &Signals{UserID: "ly", SuspiciousScore: math.Inf(1)}), common.ErrInvalidSignals)
	require.ErrorIs(t, svc.UpdateSignals(ctx, nil), common.ErrInvalidSignals)
}
