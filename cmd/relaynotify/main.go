// Package main pushes a message to a user through the relay notify endpoint, the same way
// the backend does after storing a message. Useful for checking a relay deployment.
//
// It reads SOCKET_SERVER_URL and INTERNAL_API_KEY like the backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"chatify/internal/app/message"
	"chatify/internal/app/notifier"
	"chatify/internal/configs"
	"chatify/internal/pkg/logx"
)

func main() {
	var (
		to      = flag.String("to", "", "Recipient user id (required)")
		from    = flag.String("from", "relay-check", "Sender user id shown to the recipient")
		text    = flag.String("text", "relay check", "Message text")
		timeout = flag.Duration("timeout", 5*time.Second, "Request timeout")
	)
	flag.Parse()

	if *to == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := configs.LoadNotifierConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.RelayURL == "" {
		fmt.Fprintln(os.Stderr, "FATAL: SOCKET_SERVER_URL is not set")
		os.Exit(1)
	}

	logx.InitGlobalLogger(true)

	now := time.Now().UTC()
	msg := message.Message{
		ID:         fmt.Sprintf("relay-check-%d", now.UnixNano()),
		Text:       text,
		SenderID:   *from,
		ReceiverID: *to,
		CreatedAt:  now.Format(time.RFC3339Nano),
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	delivered, err := notifier.New(cfg).Notify(ctx, *to, msg)
	if err != nil {
		logx.Fatal(err, "Notify failed", "relay_url", cfg.RelayURL)
	}

	logx.Info("Relay answered.", "recipient_id", *to, "delivered", delivered)
	if !delivered {
		os.Exit(3)
	}
}
