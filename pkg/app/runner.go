package app

import (
	"fmt"
	"time"

	"github.com/ssMMiles/easy-roles/pkg/discord/commands/core"
	"github.com/ssMMiles/easy-roles/pkg/discord/commands/selfrole"
	"github.com/ssMMiles/easy-roles/pkg/discord/session"
	"github.com/ssMMiles/easy-roles/pkg/log"
	"github.com/ssMMiles/easy-roles/pkg/menu"
	"github.com/ssMMiles/easy-roles/pkg/roles"
	"github.com/ssMMiles/easy-roles/pkg/storage"
	"github.com/ssMMiles/easy-roles/pkg/task"
	"github.com/ssMMiles/easy-roles/pkg/util"
)

// Environment variable overriding the sqlite database location.
const dbPathEnv = "EASY_ROLES_DB_PATH"

// stateCleanupInterval is how often expired component state is pruned.
const stateCleanupInterval = time.Hour

// Run bootstraps the bot and blocks until shutdown. appName affects log
// paths; tokenEnv names the environment variable holding the bot token,
// read from the process environment first and then from the
// $HOME/.local/bin/.env fallback.
func Run(appName, tokenEnv string) error {
	started := time.Now()

	token, loadErr := util.LoadEnvWithLocalBinFallback(tokenEnv)

	if err := log.Setup(appName); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	defer log.CloseGlobal()

	if loadErr != nil {
		log.Warnf("Warning: %v", loadErr)
	}
	if token == "" {
		return fmt.Errorf("%s not set in environment or .env file", tokenEnv)
	}

	log.Infof("Starting %s...", appName)

	store := storage.NewStore(util.EnvOrDefault(dbPathEnv, "data/easy-roles.db"))
	if err := store.Init(); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	discordSession, err := session.NewDiscordSession(token)
	if err != nil {
		store.Close()
		return err
	}

	logger := log.Default()

	router := core.NewRouter(discordSession, store, logger)
	publisher := menu.NewPublisher(store, discordSession, logger)
	mutator := menu.NewMutator(store, discordSession, logger)
	effector := roles.NewEffector(discordSession, logger)
	gate := roles.NewGate(store, effector, logger)

	selfrole.New(router, store, publisher, mutator, gate, effector, logger).Register()

	discordSession.AddHandler(router.HandleInteraction)

	if err := router.Sync(); err != nil {
		discordSession.Close()
		store.Close()
		return err
	}

	scheduler := task.NewScheduler(logger)
	scheduler.Every("state-cleanup", stateCleanupInterval, store.CleanupExpiredStates)

	log.Infof("%s started in %s", appName, time.Since(started).Round(time.Millisecond))

	util.WaitForInterruptWithCallback(func() {
		log.Info("Shutting down...")
		scheduler.StopAll()
		if err := discordSession.Close(); err != nil {
			log.ErrorWithErr("Failed to close Discord session", err)
		}
		if err := store.Close(); err != nil {
			log.ErrorWithErr("Failed to close storage", err)
		}
	})

	return nil
}
