// Package router implements the ingest router spec.md §4.1 names: webhook
// secret-path verification, update-envelope parsing, classification into one
// of {callback, onboard command, invoice command, conversational message,
// photo, document, ignored}, and task enqueue. Grounded on the teacher's
// internal/webhook/handler.go dispatch-by-event-type shape, generalized
// from the teacher's fixed approval-card/message event set to spec.md's
// chat-update classification table.
package router

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rivergate/invoiceflow/internal/cache"
	"github.com/rivergate/invoiceflow/internal/docstore"
	"github.com/rivergate/invoiceflow/internal/pipeline"
	"github.com/rivergate/invoiceflow/internal/queue"
	"github.com/rivergate/invoiceflow/internal/sessions"
	"github.com/rivergate/invoiceflow/internal/tenantstore"
	"go.uber.org/zap"
)

// MaxAttachmentBytes mirrors pipeline.MaxAttachmentBytes, checked before
// a task is even enqueued so oversized uploads never reach the queue.
const MaxAttachmentBytes = pipeline.MaxAttachmentBytes

// Action is the outcome the webhook handler reports back to the caller,
// per spec.md §6's response action enum.
type Action string

const (
	ActionEnqueued          Action = "enqueued"
	ActionCallbackEnqueued  Action = "callback_enqueued"
	ActionIgnored           Action = "ignored"
	ActionIgnoredCommand    Action = "ignored_command"
	ActionRejectedSizeLimit Action = "rejected_size_limit"
)

// Update is the chat-platform webhook envelope, trimmed to the fields the
// router's classification table needs.
type Update struct {
	UpdateID string `json:"update_id"`
	TenantID string `json:"tenant_id" binding:"required"`

	ChatTitle         string `json:"chat_title"`
	UserID            string `json:"user_id"`
	UploaderUsername  string `json:"uploader_username"`
	UploaderFirstName string `json:"uploader_first_name"`

	Text string `json:"text"`

	Photo    *Attachment `json:"photo"`
	Document *Attachment `json:"document"`

	Callback *CallbackQuery `json:"callback_query"`
}

// Attachment is an inbound photo or document reference.
type Attachment struct {
	FileID    string `json:"file_id"`
	MessageID string `json:"message_id"`
	MIMEType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// CallbackQuery is an inline-button click.
type CallbackQuery struct {
	CallbackID string `json:"callback_id"`
	MessageID  string `json:"message_id"`
	Data       string `json:"data"`
}

// Router classifies and enqueues inbound webhook updates. It holds no
// business logic of its own — spec.md §4.1: "the router never executes
// business logic."
type Router struct {
	secret      string
	queue       *queue.InProcess
	tenants     *tenantstore.Store
	onboarding  *sessions.OnboardingStore
	approvedTTL *cache.TTLCache
	onboardTTL  *cache.TTLCache
	logger      *zap.Logger
}

// Deps bundles Router's collaborators for construction.
type Deps struct {
	Secret      string
	Queue       *queue.InProcess
	Tenants     *tenantstore.Store
	Onboarding  *sessions.OnboardingStore
	ApprovedTTL *cache.TTLCache
	OnboardTTL  *cache.TTLCache
	Logger      *zap.Logger
}

// New builds a Router.
func New(d Deps) *Router {
	return &Router{
		secret: d.Secret, queue: d.Queue, tenants: d.Tenants, onboarding: d.Onboarding,
		approvedTTL: d.ApprovedTTL, onboardTTL: d.OnboardTTL, logger: d.Logger,
	}
}

// VerifySecretPath performs the constant-time comparison spec.md §4.1
// requires so the configured secret path cannot be brute-forced via a
// timing side channel.
func (r *Router) VerifySecretPath(path string) bool {
	return subtle.ConstantTimeCompare([]byte(path), []byte(r.secret)) == 1
}

// errSchema marks a malformed update body (maps to HTTP 400 at the
// httpapi layer).
type errSchema struct{ err error }

func (e *errSchema) Error() string { return e.err.Error() }
func (e *errSchema) Unwrap() error  { return e.err }

// HandleWebhook parses, classifies, and enqueues body per spec.md §4.1's
// classification table, returning the action taken.
func (r *Router) HandleWebhook(ctx context.Context, body []byte, now time.Time) (Action, error) {
	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		return "", &errSchema{err: fmt.Errorf("parse update: %w", err)}
	}
	if update.TenantID == "" {
		return "", &errSchema{err: fmt.Errorf("missing tenant_id")}
	}

	if update.Callback != nil {
		return r.enqueueCallback(update)
	}

	text := strings.TrimSpace(update.Text)
	switch {
	case strings.HasPrefix(text, "/onboard"):
		return r.enqueueOnboardCommand(update)
	case strings.HasPrefix(text, "/invoice"), strings.HasPrefix(text, "/report"):
		return r.enqueueInvoiceCommand(update)
	}

	if r.isActiveOnboarding(ctx, update.TenantID, update.UserID) {
		return r.enqueueOnboardMessage(update)
	}

	if !r.isApprovedTenant(ctx, update.TenantID) {
		return ActionIgnored, nil
	}

	if text != "" {
		// Falls through to the invoice-gen conversational path; the worker
		// decides whether a session is actually in progress.
		return r.enqueueInvoiceMessage(update)
	}

	if update.Photo != nil {
		if update.Photo.SizeBytes > MaxAttachmentBytes {
			return ActionRejectedSizeLimit, nil
		}
		return r.enqueueIngest(update, *update.Photo, now)
	}
	if update.Document != nil && update.Document.MIMEType == "application/pdf" {
		if update.Document.SizeBytes > MaxAttachmentBytes {
			return ActionRejectedSizeLimit, nil
		}
		return r.enqueueIngest(update, *update.Document, now)
	}

	return ActionIgnored, nil
}

// isApprovedTenant checks the TTL cache before falling through to the
// document store; cache and store failures fail safe by assuming "not
// approved", per spec.md §4.1.
func (r *Router) isApprovedTenant(ctx context.Context, tenantID string) bool {
	if v, ok := r.approvedTTL.Get(tenantID); ok {
		approved, _ := v.(bool)
		return approved
	}
	tenant, err := r.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			r.logger.Warn("tenant lookup failed, failing safe", zap.Error(err))
		}
		return false
	}
	approved := tenant.IsActive()
	r.approvedTTL.Set(tenantID, approved)
	return approved
}

// isActiveOnboarding checks the TTL cache before falling through to the
// document store; failures fail safe by assuming "not in onboarding", per
// spec.md §4.1.
func (r *Router) isActiveOnboarding(ctx context.Context, tenantID, userID string) bool {
	key := tenantID + ":" + userID
	if v, ok := r.onboardTTL.Get(key); ok {
		active, _ := v.(bool)
		return active
	}
	_, err := r.onboarding.Get(ctx, tenantID, userID)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			r.logger.Warn("onboarding lookup failed, failing safe", zap.Error(err))
		}
		r.onboardTTL.Set(key, false)
		return false
	}
	r.onboardTTL.Set(key, true)
	return true
}

func (r *Router) enqueue(kind string, payload any) (Action, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal task payload: %w", err)
	}
	task := queue.Task{ID: uuid.NewString(), Kind: kind, Payload: body, Enqueued: time.Now()}
	if err := r.queue.Enqueue(task); err != nil {
		return "", fmt.Errorf("enqueue %s task: %w", kind, err)
	}
	return ActionEnqueued, nil
}

func (r *Router) enqueueCallback(u Update) (Action, error) {
	_, err := r.enqueue("callback", map[string]string{
		"update_id":   u.UpdateID,
		"callback_id": u.Callback.CallbackID,
		"tenant_id":   u.TenantID,
		"message_id":  u.Callback.MessageID,
		"data":        u.Callback.Data,
		"user_id":     u.UserID,
	})
	if err != nil {
		return "", err
	}
	return ActionCallbackEnqueued, nil
}

func (r *Router) enqueueOnboardCommand(u Update) (Action, error) {
	return r.enqueue("onboard", map[string]string{
		"tenant_id": u.TenantID, "chat_title": u.ChatTitle,
		"user_id": u.UserID, "text": u.Text,
	})
}

func (r *Router) enqueueOnboardMessage(u Update) (Action, error) {
	if u.Photo != nil {
		return r.enqueue("onboard-photo", map[string]string{
			"tenant_id": u.TenantID, "user_id": u.UserID, "file_id": u.Photo.FileID,
			"message_id": u.Photo.MessageID, "mime_type": u.Photo.MIMEType,
		})
	}
	return r.enqueue("onboard-message", map[string]string{
		"tenant_id": u.TenantID, "user_id": u.UserID, "text": u.Text,
	})
}

func (r *Router) enqueueInvoiceCommand(u Update) (Action, error) {
	return r.enqueue("invoice-command", map[string]string{
		"tenant_id": u.TenantID, "user_id": u.UserID, "text": u.Text,
	})
}

func (r *Router) enqueueInvoiceMessage(u Update) (Action, error) {
	return r.enqueue("invoice-message", map[string]string{
		"tenant_id": u.TenantID, "user_id": u.UserID, "text": u.Text,
	})
}

func (r *Router) enqueueIngest(u Update, att Attachment, now time.Time) (Action, error) {
	return r.enqueue("ingest", map[string]any{
		"tenant_id":           u.TenantID,
		"message_id":          att.MessageID,
		"file_id":             att.FileID,
		"mime_type":           att.MIMEType,
		"uploader_username":   u.UploaderUsername,
		"uploader_first_name": u.UploaderFirstName,
		"chat_title":          u.ChatTitle,
		"received_at":         now,
	})
}
