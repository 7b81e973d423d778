package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"streamchat/internal/api"
	"streamchat/internal/chat"
	"streamchat/internal/heartbeat"
	"streamchat/internal/platform/config"
	"streamchat/internal/platform/logger"
	"streamchat/internal/realtime"
	"streamchat/internal/tui"
)

const lookupTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "streamer:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = config.Load()
	cfg := config.LoadClient()

	if cfg.UserID == "" {
		return errors.New("USER_ID is required")
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	log := logger.NewWithWriter(f, cfg.LogLevel, cfg.LogFormat)

	endpoint, err := realtime.EndpointURL(cfg.PageURL, cfg.RealtimePath)
	if err != nil {
		return err
	}
	client := api.NewClient(cfg.APIBaseURL, nil)
	dialer := realtime.Dialer{Endpoint: endpoint, Options: []realtime.Option{realtime.WithLogger(log)}}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var hb tui.HeartbeatStatus
	if cfg.Heartbeat {
		sender := heartbeat.NewSender(heartbeat.SenderConfig{Dialer: dialer, Fallback: client, Log: log})
		mgr := heartbeat.NewManager(heartbeat.Config{Lister: client, Beater: sender, Log: log})
		mgr.Start(ctx, cfg.UserID)
		defer mgr.Stop()
		hb = mgr
	}

	streamID := cfg.StreamID
	if streamID == "" {
		streamID, err = firstLiveStream(ctx, client, cfg.UserID)
		if err != nil {
			return err
		}
	}

	log.Info("streamer starting",
		"endpoint", endpoint,
		"stream_id", streamID,
		"user_id", cfg.UserID,
		"heartbeat", cfg.Heartbeat,
	)

	var p *tea.Program
	session := chat.NewSession(chat.Config{
		Dialer:   dialer,
		Profile:  chat.Profile{Username: cfg.Username, AvatarURL: cfg.AvatarURL},
		Currency: cfg.Currency,
		Log:      log,
		OnMessage: func(m chat.Message) {
			p.Send(tui.MessageMsg(m))
		},
	})
	defer session.Disconnect()

	p = tea.NewProgram(tui.New(tui.Options{
		Session:   session,
		StreamID:  streamID,
		UserID:    cfg.UserID,
		Heartbeat: hb,
		History:   loadHistory(ctx, client, streamID, cfg.ChatHistory, log),
	}), tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal ui: %w", err)
	}
	log.Info("streamer stopped")
	return nil
}

// firstLiveStream picks the user's first live stream so the chat has
// something to join when STREAM_ID is unset.
func firstLiveStream(ctx context.Context, client *api.Client, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	list, err := client.ListUserStreams(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list streams: %w", err)
	}
	for _, st := range list {
		if st.IsLive {
			return st.ID, nil
		}
	}
	return "", errors.New("no live stream found; set STREAM_ID")
}
