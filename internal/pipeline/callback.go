package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rivergate/invoiceflow/internal/domain"
	"github.com/rivergate/invoiceflow/internal/sessions"
	"go.uber.org/zap"
)

// CallbackAction is the inline-button choice a user makes on a duplicate
// warning, per spec.md §4.4.
type CallbackAction string

const (
	ActionKeepBoth  CallbackAction = "keep_both"
	ActionDeleteNew CallbackAction = "delete_new"
)

// Callback is the inbound inline-button event spec.md §4.4 describes.
type Callback struct {
	UpdateID  string
	JobID     string
	MessageID string // the previously sent warning message, to edit
	Action    CallbackAction
}

// HandleCallback resolves a pending duplicate decision per spec.md §4.4.
func (p *Pipeline) HandleCallback(ctx context.Context, cb Callback) error {
	now := time.Now()

	if err := p.callbacks.MarkProcessed(ctx, cb.UpdateID, now); err != nil {
		if errors.Is(err, sessions.ErrAlreadyProcessed) {
			return nil
		}
		p.logger.Warn("failed to record callback dedup", zap.Error(err))
	}

	job, err := p.jobs.Get(ctx, cb.JobID)
	if err != nil {
		return fmt.Errorf("load job for callback: %w", err)
	}
	if job.Status != domain.JobPendingDecision {
		p.logger.Warn("callback for job not in pending_decision, ignoring",
			zap.String("job_id", job.ID), zap.String("status", string(job.Status)))
		return nil
	}

	var resolutionText string
	switch cb.Action {
	case ActionDeleteNew:
		if job.Result.DriveFileID != "" {
			if err := p.objects.Delete(job.Result.DriveFileID); err != nil {
				return fmt.Errorf("delete duplicate original: %w", err)
			}
		}
		job.Result.DriveFileID = ""
		job.Result.DriveLink = ""
		resolutionText = "Kept the existing invoice, discarded this upload."

	case ActionKeepBoth:
		cfg, err := p.tenants.GetBusinessConfig(ctx, job.TenantID)
		if err != nil {
			return fmt.Errorf("load business config for callback: %w", err)
		}
		if err := p.appendRow(cfg, job); err != nil {
			return fmt.Errorf("append duplicate row: %w", err)
		}
		resolutionText = "Recorded both invoices."

	default:
		return fmt.Errorf("unknown callback action: %s", cb.Action)
	}

	job.Status = domain.JobProcessed
	job.UpdatedAt = now
	if err := p.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("persist callback resolution: %w", err)
	}

	if cb.MessageID != "" {
		content := fmt.Sprintf(`{"text":%q}`, resolutionText)
		if err := p.chat.EditMessage(ctx, cb.MessageID, "text", content); err != nil {
			p.logger.Warn("failed to edit duplicate warning message", zap.Error(err))
		}
	}
	return nil
}

// CancelDuplicateDecision clears a pending_decision session without side
// effects, per spec.md §4.4's cancellation variant.
func (p *Pipeline) CancelDuplicateDecision(ctx context.Context, jobID string) error {
	job, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job for cancellation: %w", err)
	}
	if job.Status != domain.JobPendingDecision {
		return nil
	}
	job.Status = domain.JobPendingRetry
	job.UpdatedAt = time.Now()
	return p.jobs.Update(ctx, job)
}
