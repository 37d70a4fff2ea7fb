package jury

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"heylon/internal/logger"
	"heylon/internal/store"
	"heylon/internal/store/model"

	"golang.org/x/sync/errgroup"
)

// Notifier receives the verdict notification for push delivery. The runner
// records the in-app row itself.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// Runner owns the deliberation queue. The engine enqueues tasks without
// blocking; a single consumer goroutine convenes the panel, tallies the
// votes and commits the verdict.
type Runner struct {
	decisions     store.DecisionStore
	learning      store.LearningStore
	notifications store.NotificationStore
	notifier      Notifier

	jurors  []Juror
	timeout time.Duration
	tasks   chan Task

	nowFn func() time.Time
}

func NewRunner(decisions store.DecisionStore, learning store.LearningStore, notifications store.NotificationStore, jurors []Juror, timeout time.Duration, queueSize int) *Runner {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Runner{
		decisions:     decisions,
		learning:      learning,
		notifications: notifications,
		jurors:        jurors,
		timeout:       timeout,
		tasks:         make(chan Task, queueSize),
		nowFn:         time.Now,
	}
}

// SetNotifier attaches the optional push sink.
func (r *Runner) SetNotifier(n Notifier) { r.notifier = n }

// SetNow overrides the clock. Tests use this.
func (r *Runner) SetNow(fn func() time.Time) { r.nowFn = fn }

// Enqueue hands a task to the consumer without blocking the caller. A full
// queue drops the task; the decision row keeps its pre-jury verdict, which is
// already a safe non-executable state.
func (r *Runner) Enqueue(t Task) bool {
	select {
	case r.tasks <- t:
		return true
	default:
		logger.Warnf("[jury] queue full, dropping task for %s (stage %s)", t.Symbol, t.Stage)
		return false
	}
}

// Start runs the consumer loop until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-r.tasks:
				r.Deliberate(ctx, t)
			}
		}
	}()
}

// Deliberate convenes the panel for one task and commits the outcome.
func (r *Runner) Deliberate(ctx context.Context, t Task) {
	logger.Infof("[jury] convening for %s (stage %s, trace %s)", t.Symbol, t.Stage, t.TraceID)

	votes := r.gather(ctx, t.Ballot())
	ordered := make([]Vote, 0, len(votes))
	for _, j := range r.jurors {
		ordered = append(ordered, votes[j.ID()])
	}
	consensus := Tally(ordered)
	executability, confidence := Grade(t.Stage, consensus)
	explanation := renderExplanation(t.Stage, consensus, r.jurors, votes)

	committed, err := r.commit(ctx, t, consensus, confidence, explanation, votes)
	if err != nil {
		logger.Errorf("[jury] commit failed for %s: %v", t.Symbol, err)
		return
	}
	if !committed {
		return
	}
	logger.Infof("[jury] %s verdict=%s executability=%s confidence=%s", t.Symbol, consensus, executability, confidence)

	r.recordLearning(ctx, t.Symbol, consensus, explanation)
	r.notify(ctx, t.Symbol, consensus, executability, explanation)
}

// gather runs every juror in parallel under the per-juror timeout. Failures
// and disabled seats degrade to WAIT so the panel always has a full roster.
func (r *Runner) gather(ctx context.Context, b Ballot) map[string]Vote {
	results := make([]Vote, len(r.jurors))
	var g errgroup.Group
	for i, j := range r.jurors {
		i, j := i, j
		results[i] = VoteWait
		if !j.Enabled() {
			logger.Debugf("[jury:%s] disabled, voting WAIT", j.ID())
			continue
		}
		g.Go(func() error {
			voteCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			vote, err := j.Vote(voteCtx, b)
			if err != nil {
				logger.Warnf("[jury:%s] vote failed, degrading to WAIT: %v", j.ID(), err)
				vote = VoteWait
			}
			results[i] = vote
			return nil
		})
	}
	_ = g.Wait()

	votes := make(map[string]Vote, len(r.jurors))
	for i, j := range r.jurors {
		votes[j.ID()] = results[i]
	}
	return votes
}

// commit writes the verdict into the decision row, unless the row's version
// advanced past the one pinned at enqueue time. A reset or a newer signal
// between enqueue and verdict makes this deliberation stale; stale verdicts
// commit nothing.
var errStaleTask = fmt.Errorf("decision state advanced past task version")

func (r *Runner) commit(ctx context.Context, t Task, consensus Vote, confidence, explanation string, votes map[string]Vote) (bool, error) {
	_, err := r.decisions.Mutate(ctx, t.Symbol, func(rec *model.DecisionState) error {
		if rec.Version != t.Version {
			return errStaleTask
		}
		voteMap := make(map[string]string, len(votes))
		for id, v := range votes {
			voteMap[id] = string(v)
		}
		rec.Decision = string(consensus)
		rec.Stage = model.StageFinal
		rec.Confidence = ConfidenceScore(confidence)
		rec.SetVoteMap(voteMap)
		rec.JuryConsensus = string(consensus)
		rec.JuryExplanation = explanation
		rec.JuryLastVote = r.nowFn().UnixMilli()
		rec.Analysis = explanation
		return nil
	})
	if errors.Is(err, errStaleTask) {
		logger.Warnf("[jury] stale verdict for %s (version %d), discarding", t.Symbol, t.Version)
		return false, nil
	}
	return err == nil, err
}

func (r *Runner) recordLearning(ctx context.Context, symbol string, consensus Vote, explanation string) {
	if r.learning == nil {
		return
	}
	rec := model.LearningLog{
		Symbol:        symbol,
		Decision:      string(consensus),
		Outcome:       model.OutcomeNeutral,
		Notes:         explanation,
		CreatedAtUnix: r.nowFn().UnixMilli(),
	}
	if err := r.learning.AppendLearningLog(ctx, &rec); err != nil {
		logger.Errorf("[jury] learning log append failed for %s: %v", symbol, err)
	}
}

func (r *Runner) notify(ctx context.Context, symbol string, consensus Vote, executability, explanation string) {
	severity := "INFO"
	if consensus != VoteWait {
		severity = "CRITICAL"
	}
	n := model.Notification{
		Symbol:        symbol,
		Category:      "SIGNAL",
		Severity:      severity,
		Title:         fmt.Sprintf("%s: %s (%s)", symbol, consensus, executability),
		Body:          explanation,
		Tag:           "jury-" + strings.ToLower(symbol),
		CreatedAtUnix: r.nowFn().UnixMilli(),
	}
	if r.notifications != nil {
		if err := r.notifications.InsertNotification(ctx, &n); err != nil {
			logger.Warnf("[jury] notification insert failed for %s: %v", symbol, err)
		}
	}
	if r.notifier != nil {
		r.notifier.Notify(ctx, n)
	}
}

func renderExplanation(stage string, consensus Vote, jurors []Juror, votes map[string]Vote) string {
	parts := make([]string, 0, len(votes))
	if len(jurors) > 0 {
		for _, j := range jurors {
			parts = append(parts, fmt.Sprintf("%s(%s)", titleCase(j.ID()), votes[j.ID()]))
		}
	} else {
		for id, v := range votes {
			parts = append(parts, fmt.Sprintf("%s(%s)", titleCase(id), v))
		}
		sort.Strings(parts)
	}
	return fmt.Sprintf("Jury Verdict (%s): %s. Votes: %s. Authority: 2/3 Rule applied.", stage, consensus, strings.Join(parts, ", "))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
