package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/satriahrh/cocoa-fruit/ragchat/client"
	"github.com/satriahrh/cocoa-fruit/ragchat/config"
	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
	"github.com/satriahrh/cocoa-fruit/ragchat/utils/log"
	"go.uber.org/zap"
)

// printer writes assistant text to stdout as the transcript grows.
type printer struct {
	printed map[string]string
}

func (p *printer) onChange(e domain.TranscriptEntry) {
	if e.Role != domain.AssistantRole {
		return
	}
	prev := p.printed[e.ID]
	if strings.HasPrefix(e.Text, prev) {
		fmt.Print(e.Text[len(prev):])
	} else {
		fmt.Print("\n" + e.Text)
	}
	p.printed[e.ID] = e.Text
}

func main() {
	defer log.Sync()

	cfg := config.Load()
	serverURL := os.Getenv("CHAT_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:" + cfg.Port
	}

	p := &printer{printed: make(map[string]string)}
	c := client.New(serverURL, client.NewTranscript(p.onChange), client.WithMode(cfg.ResponseMode))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.APIKey != "" {
		if err := c.Authenticate(ctx, cfg.APIKey, cfg.APISecret); err != nil {
			log.With().Fatal("Failed to authenticate", zap.Error(err), zap.String("server", serverURL))
		}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		reader := bufio.NewScanner(os.Stdin)
		for reader.Scan() {
			lines <- reader.Text()
		}
	}()

	fmt.Printf("Chatting with %s (%s mode). Type 'exit' to quit.\n", serverURL, cfg.ResponseMode)
	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down...")
			return
		case text, ok := <-lines:
			if !ok || text == "exit" {
				return
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			if err := c.Send(ctx, text); err != nil {
				log.With().Debug("Send failed", zap.Error(err))
			}
			fmt.Println()
		}
	}
}
