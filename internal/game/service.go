package game

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/gauntlet/internal/channel"
	"github.com/ashureev/gauntlet/internal/domain"
	"github.com/ashureev/gauntlet/internal/level"
	"github.com/ashureev/gauntlet/internal/reasoner"
	"github.com/ashureev/gauntlet/internal/store"
)

// Config tunes the game service.
type Config struct {
	// SessionTimeout is the inactivity duration after which a session
	// must be resumed.
	SessionTimeout time.Duration

	// MaxHistory caps the number of log entries handed to the reasoner.
	MaxHistory int

	// ForceRuleEval downgrades judge-evaluated levels to deterministic
	// rule evaluation (set when no reasoner endpoint is configured).
	ForceRuleEval bool
}

// Service orchestrates one turn per inbound message: lifecycle
// classification, pipeline execution, progression, persistence and
// delivery. Turns for the same identity are serialized; different
// identities run fully in parallel.
type Service struct {
	store     store.Store
	deliverer channel.Deliverer
	levels    *level.Table
	lifecycle *Lifecycle
	pipeline  *Pipeline
	locks     *identityLocks
	cfg       Config

	now func() time.Time
}

// NewService wires the game core from its collaborators.
func NewService(st store.Store, r reasoner.Service, d channel.Deliverer, levels *level.Table, cfg Config) *Service {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 20
	}
	return &Service{
		store:     st,
		deliverer: d,
		levels:    levels,
		lifecycle: NewLifecycle(st, cfg.SessionTimeout),
		pipeline: NewPipeline(
			InputGate{},
			NewGenerateStage(r),
			NewEvaluateStage(r, cfg.ForceRuleEval),
			NewRenderStage(levels),
		),
		locks: newIdentityLocks(),
		cfg:   cfg,
		now:   time.Now,
	}
}

// HandleInbound processes one inbound message end to end. It is the
// channel's entry point and implements channel.Handler.
func (s *Service) HandleInbound(ctx context.Context, in channel.Inbound) error {
	mu := s.locks.get(in.Identity)
	mu.Lock()
	defer mu.Unlock()

	// The turn commits to completion even if the caller disconnects: a
	// recorded user message must never be left without its state
	// transition.
	ctx = context.WithoutCancel(ctx)
	now := s.now()

	sess, event, err := s.lifecycle.Ensure(ctx, in.Identity, now)
	if err != nil {
		// Nothing was written; the sender can safely retry the turn.
		return fmt.Errorf("ensure session: %w", err)
	}

	switch event {
	case EventNew:
		return s.welcome(ctx, in.Identity, now)
	case EventExpired:
		return s.resume(ctx, sess, in, now)
	}

	if in.ActionID != "" {
		return s.handleAction(ctx, sess, in.ActionID, now)
	}

	return s.runTurn(ctx, sess, in.Text, now)
}

func (s *Service) welcome(ctx context.Context, id string, now time.Time) error {
	text := welcomeText(s.levels.Max())
	if err := s.store.AppendMessage(ctx, id, domain.RoleAssistant, text, now); err != nil {
		return fmt.Errorf("record welcome: %w", err)
	}
	if err := s.deliverer.Deliver(ctx, id, text, welcomeActions()); err != nil {
		slog.Warn("Failed to deliver welcome", "identity", id, "error", err)
	}
	slog.Info("New participant joined", "identity", id)
	return nil
}

func (s *Service) resume(ctx context.Context, sess *domain.Session, in channel.Inbound, now time.Time) error {
	if strings.TrimSpace(in.Text) != "" {
		if err := s.store.AppendMessage(ctx, sess.Identity, domain.RoleUser, in.Text, now); err != nil {
			return fmt.Errorf("record resume message: %w", err)
		}
	}

	text := expiredText(sess.Level, s.levels.Max())
	if err := s.store.AppendMessage(ctx, sess.Identity, domain.RoleAssistant, text, now); err != nil {
		slog.Warn("Failed to record resume reply", "identity", sess.Identity, "error", err)
	}
	if err := s.deliverer.Deliver(ctx, sess.Identity, text, resumeActions()); err != nil {
		slog.Warn("Failed to deliver resume message", "identity", sess.Identity, "error", err)
	}
	slog.Info("Session resumed", "identity", sess.Identity, "level", sess.Level)
	return nil
}

func (s *Service) runTurn(ctx context.Context, sess *domain.Session, text string, now time.Time) error {
	id := sess.Identity

	if err := s.store.AppendMessage(ctx, id, domain.RoleUser, text, now); err != nil {
		return fmt.Errorf("record user message: %w", err)
	}
	// Mirror the append's side effects on the local snapshot.
	sess.Attempts++
	sess.LastActiveAt = now
	sess.SessionWarned = false

	history, err := s.store.Messages(ctx, id, s.cfg.MaxHistory)
	if err != nil {
		s.deliverBestEffort(ctx, id, tryAgainText())
		return fmt.Errorf("load history: %w", err)
	}

	tc := &TurnContext{
		Identity: id,
		Text:     text,
		Session:  sess,
		Level:    s.levels.Lookup(sess.Level),
		History:  history,
	}

	out, err := s.pipeline.Run(ctx, tc)
	if err != nil {
		s.deliverBestEffort(ctx, id, tryAgainText())
		return fmt.Errorf("run pipeline: %w", err)
	}

	newLevel, won := Advance(sess.Level, out.Passed, s.levels.Max())
	won = won || sess.Won
	introduced := max(sess.IntroducedLevel, out.IntroducedLevel)

	if err := s.store.ApplyTurnResult(ctx, id, newLevel, won, introduced, now); err != nil {
		s.deliverBestEffort(ctx, id, tryAgainText())
		return fmt.Errorf("apply turn result: %w", err)
	}

	justWon := won && !sess.Won
	if justWon {
		elapsed := int(sess.Elapsed(now).Seconds())
		if err := s.store.RecordWinner(ctx, id, sess.Attempts, elapsed, now); err != nil {
			// Redundant recording is a no-op by contract; a real failure
			// here must not lose the turn, the next pass can retry.
			slog.Error("Failed to record winner", "identity", id, "error", err)
		}
	}

	if err := s.store.AppendMessage(ctx, id, domain.RoleAssistant, out.Response, now); err != nil {
		slog.Warn("Failed to record reply", "identity", id, "error", err)
	}

	var actions []channel.Action
	if justWon {
		actions = prizeActions()
	}
	if err := s.deliverer.Deliver(ctx, id, out.Response, actions); err != nil {
		slog.Warn("Failed to deliver turn response", "identity", id, "error", err)
	}

	slog.Info("Turn completed",
		"identity", id,
		"level", sess.Level,
		"new_level", newLevel,
		"passed", out.Passed,
		"detected_rule", out.DetectedRule,
		"won", won,
		"notes", out.InternalNotes)
	return nil
}

func (s *Service) handleAction(ctx context.Context, sess *domain.Session, actionID string, now time.Time) error {
	id := sess.Identity

	switch {
	case actionID == ActionContinue:
		lvl := s.levels.Lookup(sess.Level)
		introduced := max(sess.IntroducedLevel, sess.Level)
		if err := s.store.ApplyTurnResult(ctx, id, sess.Level, sess.Won, introduced, now); err != nil {
			return fmt.Errorf("mark level introduced: %w", err)
		}
		return s.deliverer.Deliver(ctx, id, introText(lvl), nil)

	case actionID == ActionHowToPlay:
		return s.deliverer.Deliver(ctx, id, howToPlayText(s.levels.Max()), nil)

	case actionID == ActionProgress:
		lvl := s.levels.Lookup(sess.Level)
		return s.deliverer.Deliver(ctx, id, progressText(lvl, sess.Attempts, s.levels.Max(), sess.Won), nil)

	case strings.HasPrefix(actionID, actionPrizePfx):
		if !sess.Won {
			return s.deliverer.Deliver(ctx, id, "Beat all the guardians first, then pick your prize!", nil)
		}
		choice := strings.TrimPrefix(actionID, actionPrizePfx)
		if err := s.store.SetPrizeChoice(ctx, id, choice); err != nil {
			s.deliverBestEffort(ctx, id, tryAgainText())
			return fmt.Errorf("set prize choice: %w", err)
		}
		return s.deliverer.Deliver(ctx, id, fmt.Sprintf("Locked in: %s. You're in the draw - good luck!", choice), nil)

	default:
		slog.Debug("Ignoring unknown action", "identity", id, "action_id", actionID)
		return nil
	}
}

func (s *Service) deliverBestEffort(ctx context.Context, id, text string) {
	if err := s.deliverer.Deliver(ctx, id, text, nil); err != nil {
		slog.Debug("Best-effort delivery failed", "identity", id, "error", err)
	}
}
