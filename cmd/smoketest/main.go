// Command smoketest is a minimal local dev tool for poking the LLM
// providers and chat-platform client directly, without standing up
// cmd/ingest or cmd/worker. Kept deliberately small per spec.md §1's
// non-goal of admin tooling beyond this.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rivergate/invoiceflow/internal/config"
	"github.com/rivergate/invoiceflow/internal/llm"
	"github.com/rivergate/invoiceflow/internal/llm/anthropicprovider"
	"github.com/rivergate/invoiceflow/internal/llm/openaiprovider"
	"github.com/rivergate/invoiceflow/internal/logging"
	"github.com/rivergate/invoiceflow/internal/platform/lark"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	mode := flag.String("mode", "extract", "extract | chat")
	imagePath := flag.String("image", "", "path to a JPEG page to send (extract mode)")
	chatID := flag.String("chat", "", "chat id to send a test message to (chat mode)")
	text := flag.String("text", "smoketest", "message text (chat mode)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: "debug", OutputPath: "stdout", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch *mode {
	case "extract":
		if *imagePath == "" {
			fmt.Fprintln(os.Stderr, "extract mode requires -image")
			os.Exit(1)
		}
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read image: %v\n", err)
			os.Exit(1)
		}

		primary := openaiprovider.New(cfg.LLM.PrimaryAPIKey, cfg.LLM.PrimaryModel, logger)
		fallback := anthropicprovider.New(cfg.LLM.FallbackAPIKey, cfg.LLM.FallbackModel, logger)
		policy := llm.NewPolicy(primary, fallback, cfg.LLM.PrimaryAPIKey != "", logger)

		fields, usage, provider, err := policy.Extract(ctx, []llm.Image{{JPEG: data}})
		if err != nil {
			fmt.Fprintf(os.Stderr, "extract: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("provider=%s vendor=%q invoice_number=%q confidence=%.2f cost_usd=%.4f\n",
			provider, fields.VendorName, fields.InvoiceNumber, fields.Confidence, usage.CostUSD)

	case "chat":
		if *chatID == "" {
			fmt.Fprintln(os.Stderr, "chat mode requires -chat")
			os.Exit(1)
		}
		client := lark.NewClient(lark.Config{
			AppID: cfg.Lark.AppID, AppSecret: cfg.Lark.AppSecret, APITimeout: cfg.Lark.APITimeout,
		}, logger)
		messageID, err := client.SendText(ctx, *chatID, *text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("sent message_id=%s\n", messageID)

	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want extract or chat)\n", *mode)
		os.Exit(1)
	}
}
