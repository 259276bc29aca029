package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hyejuteao/pineveilbot/dashboard"
	"github.com/hyejuteao/pineveilbot/internal/logutil"
	"github.com/hyejuteao/pineveilbot/internal/poller"
	"github.com/hyejuteao/pineveilbot/internal/templates"
	"github.com/hyejuteao/pineveilbot/relay"
	"github.com/hyejuteao/pineveilbot/telegram"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the relay: poll loop plus operator dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay(cmd.Context())
		},
	}

	cmd.Flags().String("telegram-bot-token", "", "Telegram bot token.")
	cmd.Flags().String("telegram-base-url", telegram.DefaultBaseURL, "Telegram API base URL.")
	cmd.Flags().Int64("operator-chat-id", 0, "Chat id of the single operator.")
	cmd.Flags().String("pseudonym-salt", "", "Salt for pseudonym derivation (keep stable across restarts).")
	cmd.Flags().Duration("poll-timeout", poller.DefaultPollTimeout, "Long-poll wait per fetch.")
	cmd.Flags().Duration("backoff", poller.DefaultBackoff, "Delay before retrying a failed fetch.")
	cmd.Flags().String("templates-path", "bot_templates.yaml", "Editable message template file.")
	cmd.Flags().String("dashboard-listen", "127.0.0.1:8080", "Dashboard listen address (empty disables).")

	_ = viper.BindPFlag("telegram.bot_token", cmd.Flags().Lookup("telegram-bot-token"))
	_ = viper.BindPFlag("telegram.base_url", cmd.Flags().Lookup("telegram-base-url"))
	_ = viper.BindPFlag("relay.operator_chat_id", cmd.Flags().Lookup("operator-chat-id"))
	_ = viper.BindPFlag("relay.pseudonym_salt", cmd.Flags().Lookup("pseudonym-salt"))
	_ = viper.BindPFlag("relay.poll_timeout", cmd.Flags().Lookup("poll-timeout"))
	_ = viper.BindPFlag("relay.backoff", cmd.Flags().Lookup("backoff"))
	_ = viper.BindPFlag("templates.path", cmd.Flags().Lookup("templates-path"))
	_ = viper.BindPFlag("dashboard.listen", cmd.Flags().Lookup("dashboard-listen"))

	return cmd
}

func runRelay(ctx context.Context) error {
	logger, err := logutil.LoggerFromViper()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	token := strings.TrimSpace(viper.GetString("telegram.bot_token"))
	if token == "" {
		return fmt.Errorf("missing telegram.bot_token (set via --telegram-bot-token or %s_TELEGRAM_BOT_TOKEN)", envPrefix)
	}
	operatorID := viper.GetInt64("relay.operator_chat_id")
	if operatorID == 0 {
		return fmt.Errorf("missing relay.operator_chat_id (set via --operator-chat-id or %s_RELAY_OPERATOR_CHAT_ID)", envPrefix)
	}

	client := telegram.NewClient(nil, viper.GetString("telegram.base_url"), token)
	registry := relay.NewRegistry(viper.GetString("relay.pseudonym_salt"), nil)
	store := relay.NewStore(registry, nil)

	tmpl, err := templates.Load(viper.GetString("templates.path"), logger)
	if err != nil {
		return err
	}

	router := relay.NewRouter(registry, store, client, tmpl, logger)
	machine, err := relay.NewMachine(relay.MachineOptions{
		Registry:   registry,
		Store:      store,
		Transport:  client,
		Templates:  tmpl,
		Router:     router,
		OperatorID: operatorID,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	p, err := poller.New(poller.Options{
		Source:      client,
		Handler:     machine,
		Logger:      logger,
		PollTimeout: viper.GetDuration("relay.poll_timeout"),
		Backoff:     viper.GetDuration("relay.backoff"),
	})
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if listen := strings.TrimSpace(viper.GetString("dashboard.listen")); listen != "" {
		srv = &http.Server{
			Addr:              listen,
			Handler:           dashboard.New(registry, store, router, tmpl, logger).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("dashboard_listen", "addr", listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("dashboard_serve_error", "error", err.Error())
				stop()
			}
		}()
	}

	err = p.Run(runCtx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if sErr := srv.Shutdown(shutdownCtx); sErr != nil {
			logger.Warn("dashboard_shutdown_error", "error", sErr.Error())
		}
	}
	return err
}
