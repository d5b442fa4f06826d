package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// Report cache keys shared by the chat handlers and the HTTP API.
const (
	ReportKeyRentals = "report:rentals:7d"
	ReportKeyIncome  = "report:income:30d"
)

// RentalEventsChannel carries rental lifecycle events for subscribers
// outside this process.
const RentalEventsChannel = "rental:events"

const (
	EventRentalOpened    = "rental_opened"
	EventRentalClosed    = "rental_closed"
	EventRentalCancelled = "rental_cancelled"
)

// RentalEvent is published on every rental lifecycle change.
type RentalEvent struct {
	Type      string `json:"type"`
	RentalID  uint   `json:"rentalId"`
	BikeID    uint   `json:"bikeId"`
	UserID    int64  `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	ctx := context.Background()
	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// CacheReport stores a report payload under key for ttl. A nil client
// turns this into a no-op so the bot runs without Redis.
func CacheReport(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if RedisClient == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return RedisClient.Set(ctx, key, data, ttl).Err()
}

// CachedReport loads a cached report into dest. It reports whether the
// key was present; a nil client or a miss is not an error.
func CachedReport(ctx context.Context, key string, dest interface{}) (bool, error) {
	if RedisClient == nil {
		return false, nil
	}

	data, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, err
	}
	return true, nil
}

// InvalidateReports drops the cached report payloads after a rental change.
func InvalidateReports(ctx context.Context) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Del(ctx, ReportKeyRentals, ReportKeyIncome).Err()
}

// PublishRentalEvent publishes a rental lifecycle event to Redis pub/sub.
func PublishRentalEvent(ctx context.Context, event RentalEvent) error {
	if RedisClient == nil {
		return nil
	}

	event.Timestamp = time.Now().Unix()
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, RentalEventsChannel, data).Err()
}
