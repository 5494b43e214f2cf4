// Package taskqueue stores background task state in Redis.
package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	redisc "github.com/slidehub/ai-service/internal/pkg/redis"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Finished reports whether the status is terminal.
func (s TaskStatus) Finished() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrTaskNotPending = errors.New("can only cancel pending tasks")
)

// Task is a unit of background work stored in Redis.
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    TaskStatus      `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	DedupKey  string          `json:"dedupKey,omitempty"`
	GroupKey  string          `json:"groupKey,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

const (
	keyPrefix   = "slidehub:task:"
	keyIndex    = "slidehub:tasks:index"  // sorted set: score=created_at, member=task_id
	keyDedupSet = "slidehub:tasks:dedup:" // hash: dedup_key -> task_id
	taskTTL     = 7 * 24 * time.Hour

	// DefaultStaleAfter bounds how long an unfinished task may go without an
	// update before it is considered abandoned by its runner.
	DefaultStaleAfter = 15 * time.Minute
)

// Service manages the Redis-backed task queue.
type Service struct {
	rc         *redisc.Client
	now        func() time.Time
	staleAfter time.Duration
}

func NewService(rc *redisc.Client) *Service {
	return &Service{rc: rc, now: time.Now, staleAfter: DefaultStaleAfter}
}

// stale reports whether an unfinished task has stopped making progress.
func (s *Service) stale(task *Task) bool {
	return !task.Status.Finished() && s.now().Sub(task.UpdatedAt) > s.staleAfter
}

func (s *Service) failStale(ctx context.Context, task *Task) error {
	msg := fmt.Sprintf("abandoned: no progress since %s", task.UpdatedAt.UTC().Format(time.RFC3339))
	return s.UpdateStatus(ctx, task.ID, TaskFailed, nil, msg)
}

func (s *Service) taskKey(id string) string { return keyPrefix + id }

// Enqueue creates a new task. While a task with the same dedupKey is
// unfinished, that task is returned instead, unless it has gone stale, in
// which case it is marked failed and replaced.
func (s *Service) Enqueue(ctx context.Context, taskType string, payload interface{}, dedupKey, groupKey string) (*Task, error) {
	if dedupKey != "" {
		existing, err := s.rc.Raw().HGet(ctx, keyDedupSet+taskType, dedupKey).Result()
		if err == nil && existing != "" {
			task, err := s.GetByID(ctx, existing)
			if err != nil {
				return nil, err
			}
			if task != nil && s.stale(task) {
				if err := s.failStale(ctx, task); err != nil {
					return nil, err
				}
			} else if task != nil && !task.Status.Finished() {
				return task, nil
			}
		}
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := &Task{
		ID:        uuid.New().String(),
		Type:      taskType,
		Payload:   payloadBytes,
		Status:    TaskPending,
		DedupKey:  dedupKey,
		GroupKey:  groupKey,
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}

	pipe := s.rc.Raw().TxPipeline()
	pipe.Set(ctx, s.taskKey(task.ID), data, taskTTL)
	pipe.ZAdd(ctx, keyIndex, redis.Z{
		Score:  float64(task.CreatedAt.UnixMilli()),
		Member: task.ID,
	})
	if dedupKey != "" {
		pipe.HSet(ctx, keyDedupSet+taskType, dedupKey, task.ID)
		pipe.Expire(ctx, keyDedupSet+taskType, taskTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return task, nil
}

// GetByID returns (nil, nil) when the task does not exist.
func (s *Service) GetByID(ctx context.Context, id string) (*Task, error) {
	data, err := s.rc.Raw().Get(ctx, s.taskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateStatus sets a task's status and optional result/error.
func (s *Service) UpdateStatus(ctx context.Context, id string, status TaskStatus, result interface{}, errMsg string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}

	task.Status = status
	task.UpdatedAt = s.now()
	task.Error = errMsg
	if result != nil {
		if task.Result, err = json.Marshal(result); err != nil {
			return fmt.Errorf("encode task result: %w", err)
		}
	}

	if status.Finished() && task.DedupKey != "" {
		s.rc.Raw().HDel(ctx, keyDedupSet+task.Type, task.DedupKey)
	}

	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.rc.Raw().Set(ctx, s.taskKey(id), data, taskTTL).Err()
}

// Touch refreshes UpdatedAt on an unfinished task. Runners call it
// periodically so long batches are not mistaken for abandoned ones.
func (s *Service) Touch(ctx context.Context, id string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}
	if task.Status.Finished() {
		return nil
	}
	task.UpdatedAt = s.now()
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.rc.Raw().Set(ctx, s.taskKey(id), data, taskTTL).Err()
}

// FailStale marks every stale pending or running task as failed and returns
// how many were changed.
func (s *Service) FailStale(ctx context.Context) (int, error) {
	ids, err := s.rc.Raw().ZRange(ctx, keyIndex, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	failed := 0
	for _, id := range ids {
		task, err := s.GetByID(ctx, id)
		if err != nil || task == nil || !s.stale(task) {
			continue
		}
		if err := s.failStale(ctx, task); err != nil {
			return failed, err
		}
		failed++
	}
	return failed, nil
}

// Cancel marks a task as cancelled if it is still pending.
func (s *Service) Cancel(ctx context.Context, id string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}
	if task.Status != TaskPending {
		return ErrTaskNotPending
	}
	return s.UpdateStatus(ctx, id, TaskCancelled, nil, "cancelled by user")
}

// DeleteFinished removes completed, failed and cancelled tasks created before
// the cutoff. It returns how many were removed.
func (s *Service) DeleteFinished(ctx context.Context, before time.Time) (int, error) {
	ids, err := s.rc.Raw().ZRangeByScore(ctx, keyIndex, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("(%d", before.UnixMilli()),
	}).Result()
	if err != nil {
		return 0, err
	}

	removed := 0
	pipe := s.rc.Raw().TxPipeline()
	for _, id := range ids {
		task, err := s.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if task == nil {
			// expired by TTL, drop the dangling index entry
			pipe.ZRem(ctx, keyIndex, id)
			continue
		}
		if !task.Status.Finished() {
			continue
		}
		pipe.Del(ctx, s.taskKey(id))
		pipe.ZRem(ctx, keyIndex, id)
		if task.DedupKey != "" {
			pipe.HDel(ctx, keyDedupSet+task.Type, task.DedupKey)
		}
		removed++
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}
