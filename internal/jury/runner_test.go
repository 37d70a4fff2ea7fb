package jury

import (
	"context"
	"errors"
	"testing"
	"time"

	"heylon/internal/store/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJuror struct {
	id      string
	enabled bool
	vote    Vote
	err     error
	delay   time.Duration
}

func (s *stubJuror) ID() string    { return s.id }
func (s *stubJuror) Enabled() bool { return s.enabled }

func (s *stubJuror) Vote(ctx context.Context, _ Ballot) (Vote, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return VoteWait, ctx.Err()
		}
	}
	return s.vote, s.err
}

type fakeDecisionStore struct {
	rows map[string]*model.DecisionState
}

func newFakeDecisionStore() *fakeDecisionStore {
	return &fakeDecisionStore{rows: map[string]*model.DecisionState{}}
}

func (f *fakeDecisionStore) GetDecision(_ context.Context, symbol string) (*model.DecisionState, error) {
	rec, ok := f.rows[symbol]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeDecisionStore) EnsureDecision(_ context.Context, symbol string) (*model.DecisionState, error) {
	if rec, ok := f.rows[symbol]; ok {
		cp := *rec
		return &cp, nil
	}
	rec := &model.DecisionState{Symbol: symbol, Stage: model.StageIdle, Decision: model.DecisionIdle}
	f.rows[symbol] = rec
	cp := *rec
	return &cp, nil
}

func (f *fakeDecisionStore) Mutate(_ context.Context, symbol string, fn func(*model.DecisionState) error) (*model.DecisionState, error) {
	rec, ok := f.rows[symbol]
	if !ok {
		return nil, errors.New("decision state not found")
	}
	cp := *rec
	if err := fn(&cp); err != nil {
		return nil, err
	}
	cp.Version++
	cp.UpdatedAtUnix = time.Now().UnixMilli()
	f.rows[symbol] = &cp
	out := cp
	return &out, nil
}

func (f *fakeDecisionStore) ListDecisions(_ context.Context) ([]model.DecisionState, error) {
	out := make([]model.DecisionState, 0, len(f.rows))
	for _, rec := range f.rows {
		out = append(out, *rec)
	}
	return out, nil
}

type fakeLearningStore struct {
	logs []model.LearningLog
}

func (f *fakeLearningStore) AppendLearningLog(_ context.Context, rec *model.LearningLog) error {
	f.logs = append(f.logs, *rec)
	return nil
}

func (f *fakeLearningStore) ListLearningLogs(_ context.Context, _, _ string, _ int) ([]model.LearningLog, error) {
	return f.logs, nil
}

func (f *fakeLearningStore) UpdateLearningOutcome(_ context.Context, _ int64, _, _ string) error {
	return nil
}

type fakeNotificationStore struct {
	rows []model.Notification
}

func (f *fakeNotificationStore) InsertNotification(_ context.Context, rec *model.Notification) error {
	f.rows = append(f.rows, *rec)
	return nil
}

func (f *fakeNotificationStore) RecentNotifications(_ context.Context, _ int) ([]model.Notification, error) {
	return f.rows, nil
}

func newTestRunner(decisions *fakeDecisionStore, learning *fakeLearningStore, notifications *fakeNotificationStore, jurors []Juror) *Runner {
	return NewRunner(decisions, learning, notifications, jurors, 200*time.Millisecond, 2)
}

func TestDeliberateCommitsMajorityVerdict(t *testing.T) {
	ctx := context.Background()
	decisions := newFakeDecisionStore()
	learning := &fakeLearningStore{}
	notifications := &fakeNotificationStore{}
	_, err := decisions.EnsureDecision(ctx, "NQ")
	require.NoError(t, err)

	jurors := []Juror{
		&stubJuror{id: "openai", enabled: true, vote: VoteBuy},
		&stubJuror{id: "gemini", enabled: true, vote: VoteBuy},
		&stubJuror{id: "perplexity", enabled: true, vote: VoteWait},
	}
	r := newTestRunner(decisions, learning, notifications, jurors)

	r.Deliberate(ctx, Task{Symbol: "NQ", Direction: model.DirectionBullish, Stage: model.StageFinal, Version: 0})

	rec, err := decisions.GetDecision(ctx, "NQ")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.DecisionBuy, rec.Decision)
	assert.Equal(t, model.StageFinal, rec.Stage)
	assert.Equal(t, 0.9, rec.Confidence)
	assert.Equal(t, "BUY", rec.JuryConsensus)
	assert.Equal(t, map[string]string{"openai": "BUY", "gemini": "BUY", "perplexity": "WAIT"}, rec.VoteMap())
	assert.Contains(t, rec.JuryExplanation, "Jury Verdict (FINAL): BUY")
	assert.Contains(t, rec.JuryExplanation, "Openai(BUY), Gemini(BUY), Perplexity(WAIT)")

	require.Len(t, learning.logs, 1)
	assert.Equal(t, "BUY", learning.logs[0].Decision)
	assert.Equal(t, model.OutcomeNeutral, learning.logs[0].Outcome)

	require.Len(t, notifications.rows, 1)
	assert.Equal(t, "CRITICAL", notifications.rows[0].Severity)
}

func TestDeliberateFailedJurorDegradesToWait(t *testing.T) {
	ctx := context.Background()
	decisions := newFakeDecisionStore()
	learning := &fakeLearningStore{}
	notifications := &fakeNotificationStore{}
	_, err := decisions.EnsureDecision(ctx, "ES")
	require.NoError(t, err)

	jurors := []Juror{
		&stubJuror{id: "openai", enabled: true, vote: VoteSell},
		&stubJuror{id: "gemini", enabled: true, err: errors.New("upstream 500")},
		&stubJuror{id: "perplexity", enabled: false},
	}
	r := newTestRunner(decisions, learning, notifications, jurors)

	r.Deliberate(ctx, Task{Symbol: "ES", Direction: model.DirectionBearish, Stage: model.StageFinal, Version: 0})

	rec, err := decisions.GetDecision(ctx, "ES")
	require.NoError(t, err)
	assert.Equal(t, model.DecisionWait, rec.Decision)
	assert.Equal(t, 0.3, rec.Confidence)
	assert.Equal(t, map[string]string{"openai": "SELL", "gemini": "WAIT", "perplexity": "WAIT"}, rec.VoteMap())
}

func TestDeliberateTimeoutDegradesToWait(t *testing.T) {
	ctx := context.Background()
	decisions := newFakeDecisionStore()
	_, err := decisions.EnsureDecision(ctx, "NQ")
	require.NoError(t, err)

	jurors := []Juror{
		&stubJuror{id: "openai", enabled: true, vote: VoteBuy},
		&stubJuror{id: "gemini", enabled: true, vote: VoteBuy, delay: 5 * time.Second},
		&stubJuror{id: "perplexity", enabled: true, vote: VoteWait},
	}
	r := newTestRunner(decisions, &fakeLearningStore{}, &fakeNotificationStore{}, jurors)

	r.Deliberate(ctx, Task{Symbol: "NQ", Direction: model.DirectionBullish, Stage: model.StageFinal, Version: 0})

	rec, err := decisions.GetDecision(ctx, "NQ")
	require.NoError(t, err)
	assert.Equal(t, model.DecisionWait, rec.Decision)
}

func TestDeliberateStaleVersionCommitsNothing(t *testing.T) {
	ctx := context.Background()
	decisions := newFakeDecisionStore()
	learning := &fakeLearningStore{}
	_, err := decisions.EnsureDecision(ctx, "NQ")
	require.NoError(t, err)

	// A reset lands between enqueue and verdict.
	_, err = decisions.Mutate(ctx, "NQ", func(rec *model.DecisionState) error {
		rec.Decision = model.DecisionIdle
		rec.Stage = model.StageIdle
		return nil
	})
	require.NoError(t, err)

	jurors := []Juror{
		&stubJuror{id: "openai", enabled: true, vote: VoteBuy},
		&stubJuror{id: "gemini", enabled: true, vote: VoteBuy},
		&stubJuror{id: "perplexity", enabled: true, vote: VoteBuy},
	}
	r := newTestRunner(decisions, learning, &fakeNotificationStore{}, jurors)

	r.Deliberate(ctx, Task{Symbol: "NQ", Direction: model.DirectionBullish, Stage: model.StageFinal, Version: 0})

	rec, err := decisions.GetDecision(ctx, "NQ")
	require.NoError(t, err)
	assert.Equal(t, model.DecisionIdle, rec.Decision)
	assert.Equal(t, model.StageIdle, rec.Stage)
	assert.Empty(t, learning.logs)
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	r := newTestRunner(newFakeDecisionStore(), &fakeLearningStore{}, &fakeNotificationStore{}, nil)
	assert.True(t, r.Enqueue(Task{Symbol: "NQ"}))
	assert.True(t, r.Enqueue(Task{Symbol: "NQ"}))
	assert.False(t, r.Enqueue(Task{Symbol: "NQ"}))
}

func TestParseVerdict(t *testing.T) {
	v, err := parseVerdict(`{"verdict":"BUY","confidence":"HIGH","explanation":"clean tap"}`)
	require.NoError(t, err)
	assert.Equal(t, VoteBuy, v)

	v, err = parseVerdict("```json\n{\"verdict\": \"sell\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, VoteSell, v)

	v, err = parseVerdict(`{"verdict":"HOLD"}`)
	assert.Error(t, err)
	assert.Equal(t, VoteWait, v)

	v, err = parseVerdict("")
	assert.Error(t, err)
	assert.Equal(t, VoteWait, v)
}
