/*
Package main is a terminal Chatify client.

It authenticates against the backend with a session cookie copied from the browser,
keeps a relay connection open for presence and pushed messages, and reads commands
from stdin:

	/open <userId>   open the conversation with a user and print its history
	/online          list online users
	/sound           toggle the new-message bell
	/quit            disconnect and exit

Any other line is sent to the open conversation.
*/
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chatify/internal/app/event"
	"chatify/internal/app/message"
	"chatify/internal/app/user"
	"chatify/internal/client/api"
	"chatify/internal/client/bus"
	"chatify/internal/client/conn"
	"chatify/internal/client/store"
	"chatify/internal/configs"
	"chatify/internal/pkg/logx"
)

type stderrNotices struct{}

func (stderrNotices) Error(msg string) {
	fmt.Fprintf(os.Stderr, "! %s\n", msg)
}

type terminalBell struct{}

func (terminalBell) PlayNotification() {
	fmt.Print("\a")
}

func main() {
	var (
		requestTimeout = flag.Duration("timeout", 15*time.Second, "Per-request timeout for backend calls")
		verbose        = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	cfg, err := configs.LoadClientConfig()
	if err != nil {
		fatalf("load configuration: %v", err)
	}

	logx.InitGlobalLogger(cfg.Environment == configs.EnvDevelopment || *verbose)
	logx.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jar, err := sessionJar(cfg)
	if err != nil {
		fatalf("session cookie: %v", err)
	}

	backend := api.New(cfg.BackendURL, jar)

	authCtx, cancel := context.WithTimeout(ctx, *requestTimeout)
	me, err := backend.CheckAuth(authCtx)
	cancel()
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) && statusErr.Unauthorized() {
		fatalf("session rejected by the backend; copy a fresh cookie into CHATIFY_SESSION_COOKIE")
	}
	if err != nil {
		fatalf("check session: %v", err)
	}
	fmt.Printf("Logged in as %s (%s)\n", me.DisplayName(), me.ID)

	events := bus.New()
	chats := store.New(store.Deps{
		Backend: backend,
		Auth:    store.AuthFunc(func() (user.User, bool) { return me, true }),
		Bus:     events,
		Notices: stderrNotices{},
		Sound:   terminalBell{},
		Prefs:   store.FilePreferences{Path: cfg.PrefsPath},
	})
	if err := chats.Hydrate(); err != nil {
		logx.Warn("Ignoring unreadable preferences.", "path", cfg.PrefsPath, "error", err.Error())
	}
	chats.SubscribeToMessages()

	events.Subscribe(event.NewMessage, func(payload json.RawMessage) {
		var m message.Message
		if json.Unmarshal(payload, &m) != nil {
			return
		}
		if partner, ok := chats.SelectedUser(); ok && partner.ID == m.SenderID {
			printMessage(me, m)
			return
		}
		fmt.Printf("* new message from %s\n", m.SenderID)
	})

	relay, err := conn.New(cfg.SocketURL, jar, events, conn.Options{
		OnGiveUp: func(err error) {
			fmt.Fprintf(os.Stderr, "! relay unavailable, live updates stopped: %v\n", err)
		},
	})
	if err != nil {
		fatalf("relay: %v", err)
	}
	relay.Connect(ctx)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			shutdown(relay, chats, events)
			return
		case line, ok := <-lines:
			if !ok || !handleLine(ctx, strings.TrimSpace(line), me, chats, relay, *requestTimeout) {
				shutdown(relay, chats, events)
				return
			}
		}
	}
}

// handleLine runs one command and reports whether the client should keep running.
func handleLine(ctx context.Context, line string, me user.User, chats *store.Store, relay *conn.Manager, timeout time.Duration) bool {
	if line == "" {
		return true
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit":
		return false

	case "/online":
		online := relay.OnlineUsers()
		fmt.Printf("%d online (%s): %s\n", len(online), relay.State(), strings.Join(online, ", "))

	case "/sound":
		enabled, err := chats.ToggleSound()
		if err != nil {
			fmt.Fprintf(os.Stderr, "! could not save preference: %v\n", err)
		}
		fmt.Printf("Sound %s\n", onOff(enabled))

	case "/open":
		if arg == "" {
			fmt.Println("usage: /open <userId>")
			return true
		}
		chats.SetSelectedUser(&user.User{ID: arg})

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := chats.LoadMessages(reqCtx, arg); err != nil {
			return true
		}

		status := "offline"
		if relay.IsOnline(arg) {
			status = "online"
		}
		fmt.Printf("--- conversation with %s (%s) ---\n", arg, status)
		for _, m := range chats.Messages() {
			printMessage(me, m)
		}

	default:
		if _, ok := chats.SelectedUser(); !ok {
			fmt.Println("Open a conversation first: /open <userId>")
			return true
		}

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		_ = chats.SendMessage(reqCtx, message.Draft{Text: line})
	}

	return true
}

// shutdown stops the relay connection first so nothing is published while handlers go away.
func shutdown(relay *conn.Manager, chats *store.Store, events *bus.Bus) {
	relay.Disconnect()
	chats.Reset()
	events.Clear(event.NewMessage)
}

func printMessage(me user.User, m message.Message) {
	from := m.SenderID
	if from == me.ID {
		from = "you"
	}

	var parts []string
	if m.Text != nil {
		parts = append(parts, *m.Text)
	}
	if m.Image != nil {
		parts = append(parts, "[image] "+*m.Image)
	}
	if message.IsTemporaryID(m.ID) {
		parts = append(parts, "(sending)")
	}
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt, from, strings.Join(parts, " "))
}

// sessionJar seeds a cookie jar with the session cookie for both the backend and the relay.
func sessionJar(cfg *configs.ClientConfig) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if cfg.SessionCookie == "" {
		return nil, fmt.Errorf("CHATIFY_SESSION_COOKIE is not set")
	}

	cookies, err := http.ParseCookie(cfg.SessionCookie)
	if err != nil {
		return nil, err
	}

	for _, raw := range []string{cfg.BackendURL, cfg.SocketURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", raw, err)
		}
		jar.SetCookies(u, cookies)
	}
	return jar, nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", args...)
	os.Exit(1)
}
