package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"manimq/internal/task"
)

// Keys names the redis structures one store instance uses.
type Keys struct {
	// Queue is the pending-task list.
	Queue string
	// TaskPrefix prefixes per-task hashes.
	TaskPrefix string
	// Index is the creation-order sorted set backing retention cleanup.
	Index string
	// Channel is the pub/sub channel for events.
	Channel string
}

// DefaultKeys are the key names used in production.
func DefaultKeys() Keys {
	return Keys{
		Queue:      "manim_tasks",
		TaskPrefix: "task:",
		Index:      "manim_tasks:index",
		Channel:    "task_updates",
	}
}

// RedisStore is the production Store. Task records are hashes, the
// pending list is a redis list (LPUSH/BRPOP gives FIFO), and insertion
// order is kept in a sorted set scored by creation time.
type RedisStore struct {
	rdb  *redis.Client
	keys Keys
}

// NewRedisStore creates a store over an existing client.
func NewRedisStore(rdb *redis.Client, keys Keys) *RedisStore {
	if keys == (Keys{}) {
		keys = DefaultKeys()
	}
	return &RedisStore{rdb: rdb, keys: keys}
}

func (s *RedisStore) taskKey(id string) string {
	return s.keys.TaskPrefix + id
}

func (s *RedisStore) CreateTask(ctx context.Context, t *task.Task) error {
	fields := map[string]any{
		"code":        t.Code,
		"prompt_id":   t.PromptID,
		"scene_name":  t.SceneName,
		"webhook_url": t.WebhookURL,
		"status":      string(t.Status),
		"created_at":  t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, s.taskKey(t.ID), fields)
	pipe.ZAdd(ctx, s.keys.Index, redis.Z{
		Score:  float64(t.CreatedAt.UnixNano()),
		Member: t.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create task %s: %w", t.ID, err)
	}
	return nil
}

func (s *RedisStore) GetTask(ctx context.Context, id string) (*task.Task, error) {
	data, err := s.rdb.HGetAll(ctx, s.taskKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	t := &task.Task{
		ID:         id,
		Code:       data["code"],
		PromptID:   data["prompt_id"],
		SceneName:  data["scene_name"],
		WebhookURL: data["webhook_url"],
		Status:     task.Status(data["status"]),
		Error:      data["error"],
	}
	if raw := data["result"]; raw != "" {
		var res task.RenderResult
		if err := json.Unmarshal([]byte(raw), &res); err == nil {
			t.Result = &res
		}
	}
	if raw := data["created_at"]; raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			t.CreatedAt = ts
		}
	}
	return t, nil
}

func (s *RedisStore) UpdateStatus(ctx context.Context, id string, st task.Status, result *task.RenderResult, errMsg string) (bool, error) {
	exists, err := s.rdb.Exists(ctx, s.taskKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("update task %s: %w", id, err)
	}
	if exists == 0 {
		return false, nil
	}

	fields := map[string]any{"status": string(st)}
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return false, fmt.Errorf("marshal result for %s: %w", id, err)
		}
		fields["result"] = string(raw)
	}
	if errMsg != "" {
		fields["error"] = errMsg
	}

	if err := s.rdb.HSet(ctx, s.taskKey(id), fields).Err(); err != nil {
		return false, fmt.Errorf("update task %s: %w", id, err)
	}
	return true, nil
}

func (s *RedisStore) DeleteTask(ctx context.Context, id string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.taskKey(id))
	pipe.ZRem(ctx, s.keys.Index, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) TaskIDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.ZRange(ctx, s.keys.Index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list task ids: %w", err)
	}
	return ids, nil
}

func (s *RedisStore) PushPending(ctx context.Context, id string) error {
	if err := s.rdb.LPush(ctx, s.keys.Queue, id).Err(); err != nil {
		return fmt.Errorf("push pending %s: %w", id, err)
	}
	return nil
}

// PopPending relies on BRPOP's atomicity: each pushed ID is delivered to
// at most one blocked consumer.
func (s *RedisStore) PopPending(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := s.rdb.BRPop(ctx, timeout, s.keys.Queue).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("pop pending: %w", err)
	}
	if len(res) != 2 {
		return "", fmt.Errorf("unexpected BRPOP reply: %v", res)
	}
	return res[1], nil
}

func (s *RedisStore) TryPopPending(ctx context.Context) (string, error) {
	id, err := s.rdb.RPop(ctx, s.keys.Queue).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("pop pending: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.rdb.Publish(ctx, s.keys.Channel, raw).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
