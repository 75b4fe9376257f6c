package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classtrack/internal/attendance"
	"classtrack/internal/config"
	"classtrack/internal/metrics"
	"classtrack/internal/queue"
	"classtrack/internal/store"
	"classtrack/internal/weatherclient"
)

// Worker consumes check-in messages and fills in the weather on ledger rows
// that arrived without one.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		// A memory queue cannot see the API's messages; this mode only
		// exists so the binary starts in single-process dev setups.
		log.Println("warning: memory queue backend shares nothing with the API process")
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classtrack:checkins")
	}

	repo := attendance.NewRepository(db.Client)
	weather := weatherclient.New(cfg.WeatherURL, cfg.WeatherSkip)

	if !cfg.WeatherSkip {
		if err := weather.Health(ctx); err != nil {
			log.Printf("warning: weather service not reachable: %v", err)
		} else {
			log.Println("weather service connected")
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "checkin" {
			continue
		}
		enrich(ctx, repo, weather, msg.RecordID)
		time.Sleep(10 * time.Millisecond)
	}

	log.Println("worker stopped")
}

func enrich(ctx context.Context, repo *attendance.Repository, weather *weatherclient.Client, id string) {
	rec, err := repo.GetRecord(ctx, id)
	if err != nil {
		log.Printf("fetch record %s failed: %v", id, err)
		metrics.WeatherEnrichments.WithLabelValues("error").Inc()
		return
	}
	if rec == nil {
		log.Printf("record %s not found, skipping", id)
		metrics.WeatherEnrichments.WithLabelValues("skipped").Inc()
		return
	}
	if rec.Weather != attendance.WeatherUnknown {
		// The client already supplied a weather string.
		metrics.WeatherEnrichments.WithLabelValues("skipped").Inc()
		return
	}

	conditions, err := weather.Current(ctx, rec.Location.Lat, rec.Location.Lng)
	if err != nil {
		log.Printf("weather lookup failed for %s: %v", id, err)
		metrics.WeatherEnrichments.WithLabelValues("error").Inc()
		return
	}

	if err := repo.SetRecordWeather(ctx, id, conditions); err != nil {
		log.Printf("weather update failed for %s: %v", id, err)
		metrics.WeatherEnrichments.WithLabelValues("error").Inc()
		return
	}

	metrics.WeatherEnrichments.WithLabelValues("enriched").Inc()
	log.Printf("record %s enriched: %s", id, conditions)
}
