package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/fatih/color"
	"github.com/robfig/cron/v3"

	"github.com/chorushq/chorus/pkg/internal/web"

	pkg "github.com/chorushq/chorus/pkg/internal"
	"github.com/chorushq/chorus/pkg/internal/cache"
	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	color.New(color.FgCyan, color.Bold).Printf("Chorus v%s\n", pkg.AppVersion)

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Connect to database
	if err := database.NewSource(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Initialize cache
	if err := cache.NewCache(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when initializing cache.")
	}

	// Prepare attachment storage
	if blobs, err := services.NewLocalBlobStore(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when preparing attachment storage.")
	} else {
		services.Blobs = blobs
	}

	// Wire realtime fanout
	services.AddNotifyHook(services.PushChangeToSubscribers)

	// Server
	web.NewServer()
	go web.Listen()

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 60m", services.DoAutoDatabaseCleanup)
	quartz.Start()

	// Messages
	log.Info().Msgf("Chorus v%s is started...", pkg.AppVersion)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msgf("Chorus v%s is quitting...", pkg.AppVersion)

	quartz.Stop()
}
