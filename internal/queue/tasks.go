// Package queue defines the background tasks run by cmd/worker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-content-platform/internal/config"
	"social-content-platform/internal/logger"
)

const (
	TaskInstagramSync = "instagram:sync"

	QueueDefault = "default"
	QueueLow     = "low"

	// syncUniqueFor collapses repeated sync requests for one user.
	syncUniqueFor = 10 * time.Minute
)

type InstagramSyncPayload struct {
	UserID string `json:"user_id"`
}

func NewInstagramSyncTask(userID primitive.ObjectID, queue string) (*asynq.Task, error) {
	payload, err := json.Marshal(InstagramSyncPayload{UserID: userID.Hex()})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskInstagramSync,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue(queue),
		asynq.Unique(syncUniqueFor),
	), nil
}

// RedisConnOpt converts the app's Redis settings into asynq connection options.
func RedisConnOpt(cfg *config.Config) (asynq.RedisClientOpt, error) {
	opt, err := config.RedisOptions(cfg)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

// Enqueuer schedules Instagram syncs.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueSync queues a media sync for userID. A sync already pending for the
// user counts as success.
func (e *Enqueuer) EnqueueSync(ctx context.Context, userID primitive.ObjectID, queue string) error {
	task, err := NewInstagramSyncTask(userID, queue)
	if err != nil {
		return err
	}

	info, err := e.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Debug("Instagram sync already queued", "user_id", userID.Hex())
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue instagram sync: %w", err)
	}

	logger.Debug("Instagram sync queued", "user_id", userID.Hex(), "task_id", info.ID, "queue", info.Queue)
	return nil
}

// UserSyncer is implemented by services.InstagramService.
type UserSyncer interface {
	SyncUser(ctx context.Context, userID primitive.ObjectID) (int, error)
}

type TaskProcessor struct {
	syncer UserSyncer
}

func NewTaskProcessor(syncer UserSyncer) *TaskProcessor {
	return &TaskProcessor{syncer: syncer}
}

func (p *TaskProcessor) ProcessInstagramSync(ctx context.Context, t *asynq.Task) error {
	var payload InstagramSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	userID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", payload.UserID, asynq.SkipRetry)
	}

	n, err := p.syncer.SyncUser(ctx, userID)
	if err != nil {
		return err
	}

	logger.Info("Instagram sync task finished", "user_id", payload.UserID, "media", n)
	return nil
}
