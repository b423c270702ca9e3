package main

import (
	"context"
	"crawlstats/fetcher/backfill"
	"crawlstats/fetcher/processors"
	"crawlstats/fetcher/queue"
	"crawlstats/fetcher/requests"
	"crawlstats/fetcher/writer"
	"crawlstats/pkg/config"
	"crawlstats/pkg/database"
	"crawlstats/pkg/database/models"
	"crawlstats/pkg/logger"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Couldn't initialize the configuration: %v", err)
	}

	db, err := database.NewConnection(cfg.Database.DSN)
	if err != nil {
		log.Fatal(err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	opLogger, err := logger.CreateLogger(cfg.Bucket)
	if err != nil {
		log.Fatalf("Couldn't create the logger: %v", err)
	}

	// Create the services.
	logfileService := models.CreateLogfileService(db)
	playerService := models.CreatePlayerService(db)
	gameService := models.CreateGameService(db)
	streakService := models.CreateStreakService(db)

	if err := seedSources(cfg, logfileService); err != nil {
		log.Fatal(err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Wire the ingestion pipeline.
	ingestWriter := writer.CreateWriter(playerService, gameService)
	processor := processors.CreateLogfileProcessor(
		logfileService,
		ingestWriter,
		opLogger,
		cfg.Fetcher.MaxReadSpan,
	)

	downloader := requests.CreateDownloader(cfg.Fetcher.FetchHardTimeout, cfg.Fetcher.MaxRetries)
	fetchQueue := queue.CreateFetchQueue(
		queue.FetchQueueConfig{
			ScheduleWindow: cfg.Fetcher.ScheduleWindow,
			ShortTimeout:   cfg.Fetcher.ShortFetchTimeout,
			LongTimeout:    cfg.Fetcher.LongFetchTimeout,
			HardTimeout:    cfg.Fetcher.FetchHardTimeout,
		},
		logfileService,
		downloader,
		processor.Process,
		opLogger,
	)

	coordinator := backfill.CreateCoordinator(
		backfill.CoordinatorConfig{
			RecomputeTimeout: cfg.Fetcher.RecomputeTimeout,
			BackfillBatch:    cfg.Fetcher.BackfillBatchSize,
		},
		gameService,
		streakService,
		playerService,
		opLogger,
	)

	log.Println("Starting the ingestion workers.")
	go fetchQueue.Run(ctx)
	go coordinator.Run(ctx)
	go coordinator.RunBackfill(ctx)

	// Register the daily streak sweep.
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	_, err = scheduler.NewJob(
		gocron.DailyJob(
			1,
			gocron.NewAtTimes(
				gocron.NewAtTime(3, 0, 0),
			),
		),
		gocron.NewTask(func() {
			if err := coordinator.DailySweep(); err != nil {
				opLogger.Errorf("daily sweep failed: %v", err)
			}
		}),
		gocron.WithName("streak-daily-sweep"),
		gocron.WithTags("streaks"),
	)
	if err != nil {
		log.Fatalf("Failed to create the daily sweep job: %v", err)
	}

	// Ship the operational log once per day as well.
	_, err = scheduler.NewJob(
		gocron.DailyJob(
			1,
			gocron.NewAtTimes(
				gocron.NewAtTime(4, 0, 0),
			),
		),
		gocron.NewTask(func() {
			key := fmt.Sprintf("fetcher/%s.log", time.Now().UTC().Format("2006-01-02"))
			if err := opLogger.UploadToS3Bucket(ctx, key); err != nil {
				log.Printf("Couldn't upload the operational log: %v", err)
			}
		}),
		gocron.WithName("log-upload"),
		gocron.WithTags("logs"),
	)
	if err != nil {
		log.Fatalf("Failed to create the log upload job: %v", err)
	}

	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Printf("Error shutting down scheduler: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutting down fetcher...")
	stop()
}

// seedSources makes sure every configured server and logfile exists.
// Existing rows keep their cursor state.
func seedSources(cfg *config.Config, logfiles *models.LogfileService) error {
	sources, err := config.LoadSources(cfg.Fetcher.SourcesPath)
	if err != nil {
		return err
	}

	for _, source := range sources {
		server, err := logfiles.EnsureServer(source.Name, source.BaseURL, source.Dormant)
		if err != nil {
			return err
		}

		for _, file := range source.Logfiles {
			localName := server.Name
			if file.GameVersion != nil {
				localName += "-" + *file.GameVersion
			}
			localPath := filepath.Join(cfg.Fetcher.DataDir, localName+".log")

			if _, err := logfiles.EnsureLogfile(server, file.GameVersion, file.RemotePath, localPath); err != nil {
				return err
			}
		}
	}

	return nil
}
