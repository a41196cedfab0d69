// The worker drains the notification queue and talks to users over the Bot
// API, keeping outbound messaging off the payment path.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"waveshop/internal/application/payment/ledger"
	"waveshop/internal/infrastructure/config"
	"waveshop/internal/infrastructure/queue"
	"waveshop/internal/infrastructure/telegram"
	"waveshop/internal/shared/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log := logger.NewLogger().With("component", "worker")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = redisClient.Ping(pingCtx).Err()
	pingCancel()
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	taskQueue := queue.NewRedisQueue(redisClient, "")
	botService := telegram.NewBotService(cfg.Telegram)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("worker started")

	for {
		task, payload, err := taskQueue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Infow("worker stopped")
				return nil
			}
			log.Errorw("failed to dequeue task", "error", err)
			time.Sleep(time.Second)
			continue
		}

		switch task {
		case ledger.TaskPaymentCompleted:
			if err := notifyPaymentCompleted(ctx, botService, payload); err != nil {
				log.Errorw("failed to deliver completion notification", "error", err)
			}
		default:
			log.Warnw("unknown task dropped", "task", task)
		}
	}
}

type paymentCompletedPayload struct {
	TransactionID string `json:"transaction_id"`
	UserID        int64  `json:"user_id"`
	DurationDays  int    `json:"duration_days"`
}

func notifyPaymentCompleted(ctx context.Context, bot *telegram.BotService, payload []byte) error {
	var p paymentCompletedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if p.UserID == 0 {
		return errors.New("payload missing user_id")
	}

	// User ids are Telegram chat ids: the shop sells through the bot.
	text := fmt.Sprintf("Payment confirmed. Your subscription is extended by %d days.", p.DurationDays)

	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return bot.SendMessage(sendCtx, p.UserID, text)
}
