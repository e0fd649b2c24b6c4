package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rivergate/invoiceflow/internal/invoicegen"
	"github.com/rivergate/invoiceflow/internal/metrics"
	"github.com/rivergate/invoiceflow/internal/onboarding"
	"github.com/rivergate/invoiceflow/internal/pipeline"
	"github.com/rivergate/invoiceflow/internal/platform/lark"
	"go.uber.org/zap"
)

// WorkerDeps bundles every collaborator the worker's /tasks/* routes
// dispatch into.
type WorkerDeps struct {
	Pipeline   *pipeline.Pipeline
	Onboarding *onboarding.Controller
	InvoiceGen *invoicegen.Controller
	Chat       *lark.Client
	Metrics    *metrics.Reader
	Logger     *zap.Logger
}

// NewWorkerServer builds the worker service's gin engine: one POST route per
// task kind in spec.md §6's worker HTTP surface, plus GET /health and
// GET /metrics.
func NewWorkerServer(d WorkerDeps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.POST("/tasks/ingest", taskHandler(d.Logger, func(ctx context.Context, body []byte) error {
		var payload struct {
			TenantID          string    `json:"tenant_id"`
			MessageID         string    `json:"message_id"`
			FileID            string    `json:"file_id"`
			MIMEType          string    `json:"mime_type"`
			UploaderUsername  string    `json:"uploader_username"`
			UploaderFirstName string    `json:"uploader_first_name"`
			ChatTitle         string    `json:"chat_title"`
			ReceivedAt        time.Time `json:"received_at"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return err
		}
		return d.Pipeline.Process(ctx, pipeline.TaskPayload{
			TenantID: payload.TenantID, MessageID: payload.MessageID, FileID: payload.FileID,
			MIMEType: payload.MIMEType, UploaderUsername: payload.UploaderUsername,
			UploaderFirstName: payload.UploaderFirstName, ChatTitle: payload.ChatTitle,
			ReceivedAt: payload.ReceivedAt,
		})
	}))

	// /tasks/callback dispatches both flavors of inline-button click the
	// router can't tell apart without touching business logic itself:
	// a duplicate-invoice resolution (callback_id is the job id, data is
	// keep_both/delete_new) or an invoice-gen confirm/cancel (data is
	// confirm/cancel, tenant_id+user_id locate the session).
	engine.POST("/tasks/callback", taskHandler(d.Logger, func(ctx context.Context, body []byte) error {
		var payload struct {
			UpdateID   string `json:"update_id"`
			CallbackID string `json:"callback_id"`
			TenantID   string `json:"tenant_id"`
			MessageID  string `json:"message_id"`
			Data       string `json:"data"`
			UserID     string `json:"user_id"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return err
		}
		switch payload.Data {
		case string(pipeline.ActionKeepBoth), string(pipeline.ActionDeleteNew):
			return d.Pipeline.HandleCallback(ctx, pipeline.Callback{
				UpdateID: payload.UpdateID, JobID: payload.CallbackID, MessageID: payload.MessageID,
				Action: pipeline.CallbackAction(payload.Data),
			})
		case "confirm":
			reply, err := d.InvoiceGen.Confirm(ctx, payload.TenantID, payload.UserID, time.Now())
			if err != nil {
				return err
			}
			return d.reply(ctx, payload.TenantID, reply)
		case "cancel":
			if err := d.InvoiceGen.Cancel(ctx, payload.TenantID, payload.UserID); err != nil {
				return err
			}
			return d.reply(ctx, payload.TenantID, "Cancelled.")
		default:
			d.Logger.Warn("unknown callback data", zap.String("data", payload.Data))
			return nil
		}
	}))

	engine.POST("/tasks/onboard", taskHandler(d.Logger, func(ctx context.Context, body []byte) error {
		var payload struct {
			TenantID  string `json:"tenant_id"`
			ChatTitle string `json:"chat_title"`
			UserID    string `json:"user_id"`
			Text      string `json:"text"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return err
		}
		reply, err := d.Onboarding.StartCommand(ctx, payload.TenantID, payload.ChatTitle, payload.UserID, payload.Text, time.Now())
		if err != nil {
			return err
		}
		return d.reply(ctx, payload.TenantID, reply)
	}))

	engine.POST("/tasks/onboard-message", taskHandler(d.Logger, func(ctx context.Context, body []byte) error {
		var payload struct {
			TenantID string `json:"tenant_id"`
			UserID   string `json:"user_id"`
			Text     string `json:"text"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return err
		}
		reply, err := d.Onboarding.HandleMessage(ctx, payload.TenantID, payload.UserID, payload.Text, time.Now())
		if err != nil {
			return err
		}
		return d.reply(ctx, payload.TenantID, reply)
	}))

	engine.POST("/tasks/onboard-photo", taskHandler(d.Logger, func(ctx context.Context, body []byte) error {
		var payload struct {
			TenantID  string `json:"tenant_id"`
			UserID    string `json:"user_id"`
			FileID    string `json:"file_id"`
			MessageID string `json:"message_id"`
			MIMEType  string `json:"mime_type"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return err
		}
		logoBytes, err := d.Chat.DownloadFile(ctx, payload.MessageID, payload.FileID)
		if err != nil {
			return err
		}
		reply, err := d.Onboarding.HandleLogoUpload(ctx, payload.TenantID, payload.UserID, logoBytes, extFor(payload.MIMEType), time.Now())
		if err != nil {
			return err
		}
		return d.reply(ctx, payload.TenantID, reply)
	}))

	engine.POST("/tasks/invoice-command", taskHandler(d.Logger, func(ctx context.Context, body []byte) error {
		var payload struct {
			TenantID string `json:"tenant_id"`
			UserID   string `json:"user_id"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return err
		}
		reply, err := d.InvoiceGen.StartCommand(ctx, payload.TenantID, payload.UserID, time.Now())
		if err != nil {
			return err
		}
		return d.reply(ctx, payload.TenantID, reply)
	}))

	engine.POST("/tasks/invoice-message", taskHandler(d.Logger, func(ctx context.Context, body []byte) error {
		var payload struct {
			TenantID string `json:"tenant_id"`
			UserID   string `json:"user_id"`
			Text     string `json:"text"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return err
		}
		text := strings.TrimSpace(payload.Text)
		var reply string
		var err error
		switch text {
		case "/confirm":
			reply, err = d.InvoiceGen.Confirm(ctx, payload.TenantID, payload.UserID, time.Now())
		case "/cancel":
			err = d.InvoiceGen.Cancel(ctx, payload.TenantID, payload.UserID)
			reply = "Cancelled."
		default:
			reply, err = d.InvoiceGen.HandleMessage(ctx, payload.TenantID, payload.UserID, text, time.Now())
		}
		if err != nil {
			return err
		}
		return d.reply(ctx, payload.TenantID, reply)
	}))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok", "service": "worker",
			"uptime": time.Since(startedAt).String(), "timestamp": time.Now(),
		})
	})

	engine.GET("/metrics", func(c *gin.Context) {
		snap, err := d.Metrics.Snapshot(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute metrics"})
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	return engine
}

// reply sends a chat message back to a tenant's chat when one is produced;
// a blank reply, or a worker with no chat client configured, is a no-op.
func (d WorkerDeps) reply(ctx context.Context, chatID, text string) error {
	if text == "" || d.Chat == nil {
		return nil
	}
	_, err := d.Chat.SendText(ctx, chatID, text)
	return err
}

func extFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	default:
		return ".bin"
	}
}

// taskHandler adapts a task-processing func into a gin handler per spec.md
// §6's worker contract: 200 on success (including accepted-terminal
// outcomes the handler itself already recorded), 5xx on an error that
// should be retried by the dispatching queue.
func taskHandler(logger *zap.Logger, fn func(ctx context.Context, body []byte) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			return
		}
		if err := fn(c.Request.Context(), body); err != nil {
			logger.Warn("task failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "task failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
