package domain

import (
	"time"
)

// WorkflowStatus is the overall status of a release session.
type WorkflowStatus string

const (
	WorkflowStatusPending    WorkflowStatus = "pending"
	WorkflowStatusRunning    WorkflowStatus = "running"
	WorkflowStatusCompleted  WorkflowStatus = "completed"
	WorkflowStatusFailed     WorkflowStatus = "failed"
	WorkflowStatusRolledBack WorkflowStatus = "rolled_back"
)

// OperationStatus is the status of one step of a release session.
type OperationStatus string

const (
	OperationStatusPending    OperationStatus = "pending"
	OperationStatusRunning    OperationStatus = "running"
	OperationStatusCompleted  OperationStatus = "completed"
	OperationStatusFailed     OperationStatus = "failed"
	OperationStatusRolledBack OperationStatus = "rolled_back"
)

// OperationType identifies a release step.
type OperationType string

const (
	OperationTypeCheckChanges     OperationType = "check_changes"
	OperationTypeCalculateVersion OperationType = "calculate_version"
	OperationTypeCreateBranch     OperationType = "create_branch"
	OperationTypeUpdateChangelog  OperationType = "update_changelog"
	OperationTypeCommitChanges    OperationType = "commit_changes"
	OperationTypeCreateTag        OperationType = "create_tag"
	OperationTypePush             OperationType = "push"
	OperationTypeCreatePR         OperationType = "create_pr"
	OperationTypePublishRelease   OperationType = "publish_release"
)

// ReleaseSession is the persisted progress of a release run. It is what a
// later rollback reads to know which compensations to replay.
type ReleaseSession struct {
	SessionID      string            `json:"session_id"`
	StartedAt      time.Time         `json:"started_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	ChangelogFile  string            `json:"changelog_file"`
	Version        string            `json:"version"`
	BranchName     string            `json:"branch_name,omitempty"`
	TagName        string            `json:"tag_name,omitempty"`
	OriginalBranch string            `json:"original_branch,omitempty"`
	Operations     []OperationRecord `json:"operations"`
	Status         WorkflowStatus    `json:"status"`
	Error          string            `json:"error,omitempty"`
}

// OperationRecord is one step of a session.
type OperationRecord struct {
	ID           string          `json:"id"`
	Type         OperationType   `json:"type"`
	Status       OperationStatus `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	RollbackData map[string]any  `json:"rollback_data,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// NewReleaseSession creates a pending session.
func NewReleaseSession(sessionID, changelogFile string) *ReleaseSession {
	now := time.Now()
	return &ReleaseSession{
		SessionID:     sessionID,
		StartedAt:     now,
		UpdatedAt:     now,
		ChangelogFile: changelogFile,
		Operations:    []OperationRecord{},
		Status:        WorkflowStatusPending,
	}
}

// AddOperation registers a pending step.
func (s *ReleaseSession) AddOperation(opType OperationType) *OperationRecord {
	now := time.Now()
	s.Operations = append(s.Operations, OperationRecord{
		ID:        string(opType) + "_" + now.Format("20060102150405.000"),
		Type:      opType,
		Status:    OperationStatusPending,
		StartedAt: now,
	})
	s.UpdatedAt = now
	return &s.Operations[len(s.Operations)-1]
}

// operation returns the first record of opType in status, or nil.
func (s *ReleaseSession) operation(opType OperationType, status OperationStatus) *OperationRecord {
	for i := range s.Operations {
		if s.Operations[i].Type == opType && s.Operations[i].Status == status {
			return &s.Operations[i]
		}
	}
	return nil
}

// Start moves the pending record of opType to running.
func (s *ReleaseSession) Start(opType OperationType) {
	op := s.operation(opType, OperationStatusPending)
	if op == nil {
		return
	}
	op.Status = OperationStatusRunning
	op.StartedAt = time.Now()
	s.UpdatedAt = op.StartedAt
}

// Complete marks the running record of opType as done and stores the data
// its compensation needs.
func (s *ReleaseSession) Complete(opType OperationType, rollbackData map[string]any) {
	op := s.operation(opType, OperationStatusRunning)
	if op == nil {
		return
	}
	now := time.Now()
	op.Status = OperationStatusCompleted
	op.CompletedAt = &now
	op.RollbackData = rollbackData
	s.UpdatedAt = now
}

// Fail marks the running record of opType and the whole session as failed.
func (s *ReleaseSession) Fail(opType OperationType, err error) {
	now := time.Now()
	if op := s.operation(opType, OperationStatusRunning); op != nil {
		op.Status = OperationStatusFailed
		op.CompletedAt = &now
		op.Error = err.Error()
	}
	s.Status = WorkflowStatusFailed
	s.Error = err.Error()
	s.UpdatedAt = now
}

// MarkRolledBack flags a completed record as compensated.
func (s *ReleaseSession) MarkRolledBack(opType OperationType) {
	if op := s.operation(opType, OperationStatusCompleted); op != nil {
		op.Status = OperationStatusRolledBack
		s.UpdatedAt = time.Now()
	}
}

// Completed returns the completed records, most recent first.
func (s *ReleaseSession) Completed() []OperationRecord {
	var out []OperationRecord
	for i := len(s.Operations) - 1; i >= 0; i-- {
		if s.Operations[i].Status == OperationStatusCompleted {
			out = append(out, s.Operations[i])
		}
	}
	return out
}

// Last returns the most recent record, or nil.
func (s *ReleaseSession) Last() *OperationRecord {
	if len(s.Operations) == 0 {
		return nil
	}
	return &s.Operations[len(s.Operations)-1]
}
