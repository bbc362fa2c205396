package orchestrator

import (
	"context"
	"fmt"

	"github.com/compozy/changelog/internal/domain"
	"github.com/compozy/changelog/internal/repository"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// CompensateFunc undoes a completed step from the data it recorded.
type CompensateFunc func(ctx context.Context, rollbackData map[string]any) error

// SagaStep represents a single step in the saga workflow
type SagaStep struct {
	Name       string
	Type       domain.OperationType
	Execute    func(ctx context.Context) (rollbackData map[string]any, err error)
	Compensate CompensateFunc
}

// SagaExecutor runs steps in order and replays the compensations of the
// completed ones, newest first, when a step fails. With persistence enabled
// the session is saved after every transition so a later process can roll
// it back.
type SagaExecutor struct {
	stateRepo repository.StateRepository
	session   *domain.ReleaseSession
	steps     []SagaStep
	persist   bool
	logger    *zap.Logger
}

// NewSagaExecutor creates an executor for a new session.
func NewSagaExecutor(
	stateRepo repository.StateRepository,
	changelogFile string,
	persist bool,
	logger *zap.Logger,
) *SagaExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	session := domain.NewReleaseSession(uuid.New().String(), changelogFile)
	return &SagaExecutor{
		stateRepo: stateRepo,
		session:   session,
		persist:   persist && stateRepo != nil,
		logger:    logger.With(zap.String("session_id", session.SessionID)),
	}
}

// LoadExistingSaga restores a persisted session for rollback. Compensations
// have to be registered again with RegisterCompensation.
func LoadExistingSaga(
	ctx context.Context,
	stateRepo repository.StateRepository,
	sessionID string,
	logger *zap.Logger,
) (*SagaExecutor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	session, err := stateRepo.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load saga state: %w", err)
	}
	return &SagaExecutor{
		stateRepo: stateRepo,
		session:   session,
		persist:   true,
		logger:    logger.With(zap.String("session_id", sessionID)),
	}, nil
}

// AddStep appends a step and registers its pending operation.
func (s *SagaExecutor) AddStep(step SagaStep) {
	s.steps = append(s.steps, step)
	s.session.AddOperation(step.Type)
}

// RegisterCompensation attaches a compensation to an already recorded
// operation type without adding a new operation.
func (s *SagaExecutor) RegisterCompensation(opType domain.OperationType, compensate CompensateFunc) {
	s.steps = append(s.steps, SagaStep{Name: string(opType), Type: opType, Compensate: compensate})
}

// Execute runs the saga workflow with automatic rollback on failure
func (s *SagaExecutor) Execute(ctx context.Context) error {
	s.session.Status = domain.WorkflowStatusRunning
	if s.persist {
		if err := s.saveState(ctx); err != nil {
			return fmt.Errorf("failed to save initial state: %w", err)
		}
	}
	for _, step := range s.steps {
		err := s.executeStep(ctx, step)
		if err == nil {
			continue
		}
		s.session.Fail(step.Type, err)
		if !s.persist {
			return fmt.Errorf("step '%s' failed: %w", step.Name, err)
		}
		s.bestEffortSave(ctx, "before rollback")
		// Rollback must complete even if the workflow context was canceled.
		rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RollbackTimeout)
		rollbackErr := s.rollback(rollbackCtx)
		cancel()
		if rollbackErr != nil {
			return fmt.Errorf("step '%s' failed: %w, rollback also failed: %v", step.Name, err, rollbackErr)
		}
		return fmt.Errorf("step '%s' failed: %w", step.Name, err)
	}
	s.session.Status = domain.WorkflowStatusCompleted
	if s.persist {
		s.bestEffortSave(ctx, "at completion")
	}
	return nil
}

func (s *SagaExecutor) executeStep(ctx context.Context, step SagaStep) error {
	s.session.Start(step.Type)
	if s.persist {
		s.bestEffortSave(ctx, "after start")
	}
	s.logger.Debug("executing step", zap.String("step", step.Name))
	var rollbackData map[string]any
	err := retry.Do(ctx, newBackoff(), func(retryCtx context.Context) error {
		if err := retryCtx.Err(); err != nil {
			return err
		}
		data, execErr := step.Execute(retryCtx)
		if execErr != nil {
			if isPermanent(execErr) {
				return execErr
			}
			s.logger.Debug("step attempt failed", zap.String("step", step.Name), zap.Error(execErr))
			return retry.RetryableError(execErr)
		}
		rollbackData = data
		return nil
	})
	if err != nil {
		return err
	}
	s.session.Complete(step.Type, rollbackData)
	if s.persist {
		s.bestEffortSave(ctx, "after completion")
	}
	return nil
}

// Rollback executes compensating actions for completed operations
func (s *SagaExecutor) Rollback(ctx context.Context) error {
	return s.rollback(ctx)
}

func (s *SagaExecutor) rollback(ctx context.Context) error {
	completed := s.session.Completed()
	if len(completed) == 0 {
		s.logger.Info("no operations to roll back")
		return nil
	}
	s.logger.Info("starting rollback", zap.Int("operations", len(completed)))
	for _, op := range completed {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rollback canceled: %w", err)
		}
		step := s.findStepByType(op.Type)
		if step == nil || step.Compensate == nil {
			continue
		}
		s.logger.Info("rolling back step", zap.String("step", step.Name))
		if err := s.executeCompensation(ctx, step, op.RollbackData); err != nil {
			return fmt.Errorf("rollback failed for %s: %w", step.Name, err)
		}
		s.session.MarkRolledBack(op.Type)
		if s.persist {
			s.bestEffortSave(ctx, "during rollback")
		}
	}
	s.session.Status = domain.WorkflowStatusRolledBack
	if s.persist {
		s.bestEffortSave(ctx, "after rollback")
	}
	s.logger.Info("rollback completed")
	return nil
}

func (s *SagaExecutor) executeCompensation(ctx context.Context, step *SagaStep, rollbackData map[string]any) error {
	return retry.Do(ctx, newBackoff(), func(retryCtx context.Context) error {
		if err := retryCtx.Err(); err != nil {
			return err
		}
		if err := step.Compensate(retryCtx, rollbackData); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (s *SagaExecutor) findStepByType(opType domain.OperationType) *SagaStep {
	for i := range s.steps {
		if s.steps[i].Type == opType {
			return &s.steps[i]
		}
	}
	return nil
}

func (s *SagaExecutor) saveState(ctx context.Context) error {
	return s.stateRepo.Save(ctx, s.session)
}

func (s *SagaExecutor) bestEffortSave(ctx context.Context, when string) {
	if err := s.saveState(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to save release session", zap.String("when", when), zap.Error(err))
	}
}

func newBackoff() retry.Backoff {
	return retry.WithMaxRetries(DefaultRetryCount, retry.NewExponential(DefaultRetryDelay))
}

// Session returns the session driven by this executor.
func (s *SagaExecutor) Session() *domain.ReleaseSession {
	return s.session
}

// SessionID returns the id of the session.
func (s *SagaExecutor) SessionID() string {
	return s.session.SessionID
}
