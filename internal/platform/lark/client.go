// Package lark is the concrete chat-platform client named in spec.md §4.1:
// webhook signature/challenge verification, message send/edit, and file
// download by id. Grounded on the teacher's
// internal/lark/{client.go,message_api.go,attachment_handler.go} and
// internal/webhook/verifier.go, generalized from the teacher's
// approval-instance event handling to the spec's inbound-file /
// inline-button chat surface.
package lark

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Config holds the chat-platform client configuration.
type Config struct {
	AppID      string
	AppSecret  string
	APITimeout time.Duration
}

// Client wraps the Lark SDK client with the operations the ingest pipeline
// and conversational state machines need.
type Client struct {
	sdk        *lark.Client
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a chat-platform client with tenant-token caching enabled,
// matching the teacher's client construction.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	sdk := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)
	return &Client{
		sdk:        sdk,
		httpClient: &http.Client{Timeout: cfg.APITimeout},
		logger:     logger,
	}
}

// SendText sends a plain text message to a chat and returns the new
// message's id, used for the pipeline's acknowledgements and FSM prompts.
func (c *Client) SendText(ctx context.Context, chatID, text string) (string, error) {
	content := fmt.Sprintf(`{"text":%q}`, text)
	return c.send(ctx, chatID, "text", content)
}

// SendCard sends an interactive card (used for inline buttons: duplicate
// resolution, invoice-gen confirmation) and returns the new message's id.
func (c *Client) SendCard(ctx context.Context, chatID, cardJSON string) (string, error) {
	return c.send(ctx, chatID, "interactive", cardJSON)
}

func (c *Client) send(ctx context.Context, chatID, msgType, content string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("chat_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := c.sdk.Im.Message.Create(ctx, req)
	if err != nil {
		c.logger.Error("send message failed", zap.String("chat_id", chatID), zap.Error(err))
		return "", fmt.Errorf("send message: %w", err)
	}
	if !resp.Success() {
		c.logger.Error("send message rejected",
			zap.String("chat_id", chatID), zap.Int("code", resp.Code), zap.String("msg", resp.Msg))
		return "", fmt.Errorf("send message: code=%d msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	return messageID, nil
}

// EditMessage replaces the content of a previously sent message, used to
// collapse inline buttons after a callback is handled.
func (c *Client) EditMessage(ctx context.Context, messageID, msgType, content string) error {
	req := larkim.NewPatchMessageReqBuilder().
		MessageId(messageID).
		Body(larkim.NewPatchMessageReqBodyBuilder().
			Content(content).
			Build()).
		Build()

	resp, err := c.sdk.Im.Message.Patch(ctx, req)
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("edit message: code=%d msg=%s", resp.Code, resp.Msg)
	}
	return nil
}

// DownloadFile fetches a previously uploaded file's bytes by message id and
// file key, used by the pipeline's download step.
func (c *Client) DownloadFile(ctx context.Context, messageID, fileKey string) ([]byte, error) {
	req := larkim.NewGetMessageResourceReqBuilder().
		MessageId(messageID).
		FileKey(fileKey).
		Type("file").
		Build()

	resp, err := c.sdk.Im.MessageResource.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("download file: code=%d msg=%s", resp.Code, resp.Msg)
	}
	defer resp.File.Close()

	data, err := io.ReadAll(resp.File)
	if err != nil {
		return nil, fmt.Errorf("read downloaded file: %w", err)
	}
	return data, nil
}
