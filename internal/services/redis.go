package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/civiclab/scenario-engine/pkg/scenario"
	"github.com/civiclab/scenario-engine/pkg/session"
)

// Sessions are ephemeral by contract; a day covers one classroom visit.
const sessionTTL = 24 * time.Hour

// RedisStorage implements the Storage interface using Redis for session
// state and the filesystem for scenario definitions.
type RedisStorage struct {
	client  *redis.Client
	logger  *slog.Logger
	dataDir string
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, dataDir string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	if dataDir == "" {
		dataDir = "./data"
	}

	return &RedisStorage{
		client:  rdb,
		logger:  logger,
		dataDir: dataDir,
	}
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	cmd := r.client.Ping(ctx)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// Session operations (Redis-backed)

func (r *RedisStorage) SaveSession(ctx context.Context, id uuid.UUID, st *session.State) error {
	st.UpdatedAt = time.Now()

	data, err := json.Marshal(st)
	if err != nil {
		r.logger.Error("Failed to marshal session", "uuid", id, "error", err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := "session:" + id.String()
	cmd := r.client.Set(ctx, key, string(data), sessionTTL)
	if err := cmd.Err(); err != nil {
		r.logger.Error("Failed to save session", "uuid", id, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (r *RedisStorage) LoadSession(ctx context.Context, id uuid.UUID) (*session.State, error) {
	key := "session:" + id.String()
	cmd := r.client.Get(ctx, key)
	if err := cmd.Err(); err != nil {
		if err == redis.Nil {
			r.logger.Warn("Session not found", "uuid", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load session", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var st session.State
	if err := json.Unmarshal([]byte(cmd.Val()), &st); err != nil {
		r.logger.Error("Failed to unmarshal session", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &st, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	key := "session:" + id.String()
	cmd := r.client.Del(ctx, key)
	if err := cmd.Err(); err != nil {
		r.logger.Error("Failed to delete session", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Scenario operations (filesystem-backed)

func (r *RedisStorage) ListScenarios(ctx context.Context) (map[string]string, error) {
	scenariosDir := filepath.Join(r.dataDir, "scenarios")
	scenarios := make(map[string]string)

	err := filepath.WalkDir(scenariosDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		file, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("Failed to read scenario file", "path", path, "error", err)
			return nil
		}

		var s scenario.Scenario
		if err := json.Unmarshal(file, &s); err != nil {
			r.logger.Warn("Failed to unmarshal scenario file", "path", path, "error", err)
			return nil
		}

		scenarios[s.Title] = filepath.Base(path)
		return nil
	})

	if err != nil {
		r.logger.Error("Failed to walk scenarios directory", "error", err)
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	return scenarios, nil
}

func (r *RedisStorage) GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error) {
	path := filepath.Join(r.dataDir, "scenarios", filename)

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scenario not found: %s", filename)
		}
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s scenario.Scenario
	if err := json.Unmarshal(file, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario: %w", err)
	}
	s.FileName = filename

	return &s, nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}
