package main

import (
	"context"
	"errors"
	"os"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wardenbot/internal/bot"
	"github.com/iamwavecut/wardenbot/internal/config"
	"github.com/iamwavecut/wardenbot/internal/db/sqlite"
	appealcommands "github.com/iamwavecut/wardenbot/internal/handlers/appeals"
	modcommands "github.com/iamwavecut/wardenbot/internal/handlers/moderation"
	"github.com/iamwavecut/wardenbot/internal/infra"
	"github.com/iamwavecut/wardenbot/internal/infrastructure/telegram"
	"github.com/iamwavecut/wardenbot/internal/lifecycle"
	"github.com/iamwavecut/wardenbot/internal/moderation"
	"github.com/iamwavecut/wardenbot/internal/observability"
	"github.com/iamwavecut/wardenbot/resources"
)

func main() {
	cfg := config.Get()
	log.SetFormatter(&config.WbFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := observability.Init(ctx); err != nil {
		log.WithError(err).Errorln("cant initialize observability")
	}

	go func() {
		if _, ok := <-infra.MonitorExecutable(ctx); ok {
			log.Errorln("executable file was modified, shutting down")
			cancel()
		}
	}()

	infra.GoRecoverable(-1, "process_updates", func() {
		run(ctx, cfg)
	})
}

func run(ctx context.Context, cfg config.Config) {
	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		log.WithError(err).Errorln("cant initialize bot api")
		time.Sleep(1 * time.Second)
		log.Fatalln("exiting")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	defer botAPI.StopReceivingUpdates()

	store, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(), "bot.db")
	if err != nil {
		log.WithError(err).Fatalln("cant open the database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Errorln("cant close the database")
		}
	}()

	ladder, err := moderation.LoadLadder(resources.FS, "escalation.yml")
	if err != nil {
		log.WithError(err).Fatalln("cant load the escalation ladder")
	}

	policies := moderation.NewPolicyService(store, cfg.Moderation)
	actuator := telegram.NewActuator(botAPI)
	notifier := telegram.NewNotifier(botAPI, policies)

	scheduler := moderation.NewMuteScheduler(store, actuator, notifier, nil, cfg.Moderation.RecoveryConcurrency)
	actions := moderation.NewModActions(store, actuator, scheduler, notifier, nil)
	engine := moderation.NewEscalationEngine(store, actions, notifier, policies, ladder, nil)
	workflow := moderation.NewAppealWorkflow(store, store, scheduler, actuator, notifier, policies, nil)

	components := lifecycle.NewRuntime(scheduler)
	if err := components.Start(ctx); err != nil {
		log.WithError(err).Fatalln("cant start components")
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := components.Stop(stopCtx); err != nil {
			log.WithError(err).Errorln("cant stop components")
		}
	}()

	bot.RegisterUpdateHandler("moderation", modcommands.NewCommands(botAPI, engine, actions, policies, cfg.Moderation))
	bot.RegisterUpdateHandler("appeals", appealcommands.NewCommands(botAPI, workflow))
	updateProcessor := bot.NewUpdateProcessor()

	updateConfig := api.NewUpdate(0)
	updateConfig.Timeout = 60
	updateChan, errorChan := bot.GetUpdatesChans(ctx, botAPI, updateConfig)

	for {
		select {
		case err := <-errorChan:
			if errors.Is(err, context.Canceled) {
				return
			}
			log.WithError(err).Fatalln("bot api get updates error")
		case update := <-updateChan:
			if err := updateProcessor.Process(ctx, &update); err != nil {
				log.WithError(err).Errorln("cant process update")
			}
		case <-ctx.Done():
			log.Errorln("no more updates")
			return
		}
	}
}
