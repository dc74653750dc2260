package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funplay.vn/light-engine/internal/features/epochs"
	"funplay.vn/light-engine/internal/pplp"
)

type fakeScorer struct {
	days []time.Time
}

func (f *fakeScorer) ScoreDay(_ context.Context, day time.Time) (int, error) {
	f.days = append(f.days, day)
	return 0, errors.New("partial failure")
}

type fakeCloser struct {
	calls []time.Time
}

func (f *fakeCloser) CloseFinished(_ context.Context, now time.Time) ([]*epochs.CloseResult, error) {
	f.calls = append(f.calls, now)
	return []*epochs.CloseResult{{Epoch: pplp.Epoch{ID: "2025-02"}}}, nil
}

func TestRunDailyScoringUsesYesterday(t *testing.T) {
	ict := time.FixedZone("ICT", 7*3600)
	scorer := &fakeScorer{}
	s := NewScheduler(ict, Schedule{}, scorer, nil)
	// 17:30 UTC 14 марта — уже 00:30 15 марта по UTC+7.
	s.now = func() time.Time { return time.Date(2025, time.March, 14, 17, 30, 0, 0, time.UTC) }

	s.RunDailyScoring(context.Background())

	require.Len(t, scorer.days, 1)
	assert.Equal(t, time.Date(2025, time.March, 14, 0, 0, 0, 0, ict), scorer.days[0])
}

func TestRunEpochClose(t *testing.T) {
	closer := &fakeCloser{}
	now := time.Date(2025, time.March, 1, 0, 30, 0, 0, time.UTC)
	s := NewScheduler(time.UTC, Schedule{}, nil, closer)
	s.now = func() time.Time { return now }

	s.RunEpochClose(context.Background())
	assert.Equal(t, []time.Time{now}, closer.calls)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(time.UTC, Schedule{DailyScore: "every day"}, &fakeScorer{}, nil)
	require.Error(t, s.Start(context.Background()))
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(time.UTC, Schedule{DailyScore: "10 0 * * *", EpochClose: "30 0 1 * *"}, &fakeScorer{}, &fakeCloser{})
	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
}
