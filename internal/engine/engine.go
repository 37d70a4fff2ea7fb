package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"heylon/internal/config"
	"heylon/internal/jury"
	"heylon/internal/logger"
	"heylon/internal/signal"
	"heylon/internal/store"
	"heylon/internal/store/model"
	"heylon/internal/viability"

	"github.com/google/uuid"
)

// Deliberator accepts jury tasks without blocking. *jury.Runner satisfies it.
type Deliberator interface {
	Enqueue(t jury.Task) bool
}

// Engine is the per-symbol decision state machine. It receives normalized
// signals from the normalizer and applies the transition rules: ZONE_BROKEN
// resets, TAP assesses viability, MSS/SETUP walks the gate chain and convenes
// the jury.
type Engine struct {
	cfg           *config.Manager
	decisions     store.DecisionStore
	contexts      store.ContextStore
	notifications store.NotificationStore
	jury          Deliberator

	nowFn func() time.Time
}

func New(cfg *config.Manager, decisions store.DecisionStore, contexts store.ContextStore, notifications store.NotificationStore, deliberator Deliberator) *Engine {
	return &Engine{
		cfg:           cfg,
		decisions:     decisions,
		contexts:      contexts,
		notifications: notifications,
		jury:          deliberator,
		nowFn:         time.Now,
	}
}

// SetNow overrides the clock. Tests use this.
func (e *Engine) SetNow(fn func() time.Time) { e.nowFn = fn }

// ProcessSignal implements signal.Sink. Settings are read fresh on every
// transition so a toggle flip applies to the next signal immediately.
func (e *Engine) ProcessSignal(ctx context.Context, sig model.Signal, p signal.Payload) error {
	if _, err := e.decisions.EnsureDecision(ctx, sig.Symbol); err != nil {
		return fmt.Errorf("ensuring decision state for %s: %w", sig.Symbol, err)
	}
	cfg := e.cfg.Current()
	e.emitSignalNotification(ctx, sig)

	switch sig.Type {
	case model.SignalZoneBroken:
		return e.reset(ctx, sig.Symbol)
	case model.SignalZoneCreated:
		logger.Debugf("[engine] %s zone created, awareness only", sig.Symbol)
		return nil
	case model.SignalTap:
		return e.handleTap(ctx, sig, p)
	case model.SignalMSS, model.SignalSetup:
		return e.handleConfirmation(ctx, cfg, sig, p)
	default:
		logger.Debugf("[engine] %s ignoring signal type %s", sig.Symbol, sig.Type)
		return nil
	}
}

// reset clears the decision back to IDLE. Fires on ZONE_BROKEN from any state.
func (e *Engine) reset(ctx context.Context, symbol string) error {
	_, err := e.decisions.Mutate(ctx, symbol, func(rec *model.DecisionState) error {
		rec.Decision = model.DecisionIdle
		rec.Stage = model.StageIdle
		rec.Confidence = 0
		rec.ViabilityScore = nil
		rec.TriggerType = model.TriggerNone
		rec.TriggerEventID = ""
		rec.Analysis = "Zone Broken. Resetting state."
		return nil
	})
	if err != nil {
		return fmt.Errorf("resetting %s: %w", symbol, err)
	}
	logger.Infof("[engine] %s reset to IDLE (zone broken)", symbol)
	return nil
}

// handleTap runs the viability assessment and parks the decision in WAIT with
// the assessment attached. The environmental veto is advisory here; it notes
// the block but never hard-stops a tap.
func (e *Engine) handleTap(ctx context.Context, sig model.Signal, p signal.Payload) error {
	snap, err := e.contexts.ActiveSnapshot(ctx, sig.Symbol)
	if err != nil {
		logger.Warnf("[engine] %s context lookup failed, assessing without context: %v", sig.Symbol, err)
		snap = nil
	}
	in := viability.Input{VolumeScore: p.VolumeScore, HasContext: snap != nil}
	if snap != nil {
		in.NewsScore = snap.NewsScore
	}
	assessment := viability.Assess(in)

	analysis := fmt.Sprintf("Zone Tapped. Viability: %s.", assessment.Label)
	if assessment.Components.EnvironmentalVeto == viability.VetoVeto {
		analysis += " BLOCKED by Environment."
	}

	_, err = e.decisions.Mutate(ctx, sig.Symbol, func(rec *model.DecisionState) error {
		rec.Decision = model.DecisionWait
		rec.Stage = model.StagePreliminary
		score := assessment.Score
		rec.ViabilityScore = &score
		rec.TriggerType = model.TriggerTap
		rec.TriggerEventID = strconv.FormatInt(sig.ID, 10)
		rec.Analysis = analysis
		rec.AppendSupportingFactors(assessment.Reasons...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("recording tap for %s: %w", sig.Symbol, err)
	}
	logger.Infof("[engine] %s tapped, viability %.2f (%s)", sig.Symbol, assessment.Score, assessment.Label)
	return nil
}

// handleConfirmation walks the MSS gate chain in order. Each failing gate
// stops the transition; only a full pass produces a directional decision and
// a jury task.
func (e *Engine) handleConfirmation(ctx context.Context, cfg *config.Config, sig model.Signal, p signal.Payload) error {
	structural := p.IsStructural()
	if structural && !cfg.Trading.StructuralMSS {
		logger.Debugf("[engine] ignored structural MSS on %s (toggle off)", sig.Symbol)
		return nil
	}
	if !structural && !cfg.Trading.MicroMSS {
		logger.Debugf("[engine] ignored micro MSS on %s (toggle off)", sig.Symbol)
		return nil
	}

	if cfg.ForceWaitActive() {
		_, err := e.decisions.Mutate(ctx, sig.Symbol, func(rec *model.DecisionState) error {
			rec.Decision = model.DecisionWait
			rec.Analysis = "MSS Received but Force Wait is ON."
			return nil
		})
		if err != nil {
			return fmt.Errorf("force-wait hold for %s: %w", sig.Symbol, err)
		}
		return nil
	}

	session := sessionActive(e.nowFn(), cfg.Trading)

	var (
		confirmed bool
		direction string
	)
	updated, err := e.decisions.Mutate(ctx, sig.Symbol, func(rec *model.DecisionState) error {
		if blockers := rec.BlockingFactors(); len(blockers) > 0 {
			rec.Analysis = "MSS Received but Blocked by: " + strings.Join(blockers, ", ")
			return nil
		}
		if !session.active {
			rec.Decision = model.DecisionWait
			rec.Analysis = fmt.Sprintf("MSS Valid but OUTSIDE SESSION. (%s). Monitoring.", session.reason)
			return nil
		}

		direction = model.DirectionBearish
		rec.Decision = model.DecisionSell
		if p.BullishBias() {
			direction = model.DirectionBullish
			rec.Decision = model.DecisionBuy
		}
		rec.Confidence = 80
		if rec.ViabilityScore != nil {
			rec.Confidence = *rec.ViabilityScore * 100
		}
		rec.TriggerType = model.TriggerMSS
		rec.TriggerEventID = strconv.FormatInt(sig.ID, 10)
		rec.Analysis = fmt.Sprintf("MSS Confirmed (%s). execution_status: OPEN", rec.Decision)
		confirmed = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("applying MSS for %s: %w", sig.Symbol, err)
	}
	if !confirmed {
		return nil
	}
	logger.Infof("[engine] %s MSS confirmed %s (confidence %.0f), convening jury", sig.Symbol, updated.Decision, updated.Confidence)

	snap, err := e.contexts.ActiveSnapshot(ctx, sig.Symbol)
	if err != nil {
		logger.Warnf("[engine] %s context lookup failed: %v", sig.Symbol, err)
		snap = nil
	}
	if snap == nil {
		logger.Warnf("[engine] skipping jury for %s: no context snapshot", sig.Symbol)
		return nil
	}
	task := jury.Task{
		Symbol:    sig.Symbol,
		Direction: direction,
		Stage:     model.StageFinal,
		Snapshot:  *snap,
		Supports:  updated.SupportingFactors(),
		Blockers:  updated.BlockingFactors(),
		Version:   updated.Version,
		TraceID:   uuid.NewString(),
	}
	if e.jury != nil {
		e.jury.Enqueue(task)
	}
	return nil
}

func (e *Engine) emitSignalNotification(ctx context.Context, sig model.Signal) {
	if e.notifications == nil {
		return
	}
	severity := "INFO"
	if sig.Type == model.SignalMSS || sig.Type == model.SignalSetup {
		severity = "WARNING"
	}
	n := model.Notification{
		Symbol:        sig.Symbol,
		Category:      "SIGNAL",
		Severity:      severity,
		Title:         fmt.Sprintf("%s: %s", sig.Symbol, sig.Type),
		Body:          sig.Summary,
		Tag:           "signal-" + strings.ToLower(sig.Symbol),
		CreatedAtUnix: e.nowFn().UnixMilli(),
	}
	if err := e.notifications.InsertNotification(ctx, &n); err != nil {
		logger.Warnf("[engine] notification insert failed for %s: %v", sig.Symbol, err)
	}
}
