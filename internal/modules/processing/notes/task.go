package notes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/slidehub/ai-service/internal/pkg/apperr"
	"github.com/slidehub/ai-service/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

const (
	TaskTypeGenerateAll = "notes:generate-all"

	// defaultHeartbeat must stay well below taskqueue.DefaultStaleAfter.
	defaultHeartbeat = time.Minute
)

var (
	ErrTasksDisabled = errors.New("background tasks require redis")
	ErrShuttingDown  = errors.New("service is shutting down")
)

// TaskQueue is the subset of taskqueue.Service used for async batches.
type TaskQueue interface {
	Enqueue(ctx context.Context, taskType string, payload interface{}, dedupKey, groupKey string) (*taskqueue.Task, error)
	GetByID(ctx context.Context, id string) (*taskqueue.Task, error)
	UpdateStatus(ctx context.Context, id string, status taskqueue.TaskStatus, result interface{}, errMsg string) error
	Cancel(ctx context.Context, id string) error
	Touch(ctx context.Context, id string) error
}

// BatchResult is stored as the task result.
type BatchResult struct {
	NotesGenerated int `json:"notesGenerated"`
}

// EnqueueGenerateAll queues GenerateAll as a background task. A batch already
// queued or running for the same presentation is returned instead.
func (s *Service) EnqueueGenerateAll(ctx context.Context, req GenerateAllRequest) (*taskqueue.Task, error) {
	if s.tasks == nil {
		return nil, ErrTasksDisabled
	}
	req.PresentationID = strings.TrimSpace(req.PresentationID)
	if req.PresentationID == "" {
		return nil, apperr.Invalid("presentationId is required")
	}

	if s.isClosing() {
		return nil, ErrShuttingDown
	}

	task, err := s.tasks.Enqueue(ctx, TaskTypeGenerateAll, req, req.PresentationID, req.PresentationID)
	if err != nil {
		return nil, err
	}
	if task.Status == taskqueue.TaskPending && s.claim(task.ID) {
		go s.runGenerateAll(task.ID, req)
	}
	return task, nil
}

func (s *Service) GetTask(ctx context.Context, id string) (*taskqueue.Task, error) {
	if s.tasks == nil {
		return nil, ErrTasksDisabled
	}
	return s.tasks.GetByID(ctx, id)
}

// CancelTask stops a running batch after its current slide, or cancels a
// task that has not started yet.
func (s *Service) CancelTask(ctx context.Context, id string) error {
	if s.tasks == nil {
		return ErrTasksDisabled
	}
	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()
	if ok && cancel != nil {
		cancel()
		return nil
	}
	return s.tasks.Cancel(ctx, id)
}

// Shutdown cancels running batches, which record themselves as cancelled,
// and waits for them to finish or for ctx to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	for _, cancel := range s.running {
		if cancel != nil {
			cancel()
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// claim reserves id so a task is only started once per process.
func (s *Service) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	if _, ok := s.running[id]; ok {
		return false
	}
	s.running[id] = nil
	s.wg.Add(1)
	return true
}

// keepAlive touches the task until ctx is done.
func (s *Service) keepAlive(ctx context.Context, id string, log *zap.Logger) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.tasks.Touch(context.Background(), id); err != nil {
				log.Warn("task heartbeat failed", zap.Error(err))
			}
		}
	}
}

func (s *Service) runGenerateAll(id string, req GenerateAllRequest) {
	defer s.wg.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.mu.Lock()
	s.running[id] = cancel
	closing := s.closing
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
	}()

	log := s.logger.With(zap.String("task", id), zap.String("presentation", req.PresentationID))
	bg := context.Background()

	if closing {
		if err := s.tasks.UpdateStatus(bg, id, taskqueue.TaskCancelled, nil, "cancelled by shutdown"); err != nil {
			log.Error("update task status failed", zap.Error(err))
		}
		return
	}

	if task, err := s.tasks.GetByID(bg, id); err != nil || task == nil || task.Status != taskqueue.TaskPending {
		return
	}
	if err := s.tasks.UpdateStatus(bg, id, taskqueue.TaskRunning, nil, ""); err != nil {
		log.Error("mark task running failed", zap.Error(err))
		return
	}

	beat, stopBeat := context.WithCancel(ctx)
	beatDone := make(chan struct{})
	go func() {
		defer close(beatDone)
		s.keepAlive(beat, id, log)
	}()
	n, err := s.GenerateAll(ctx, req)
	// the final status must not be overwritten by a late heartbeat
	stopBeat()
	<-beatDone
	result := BatchResult{NotesGenerated: n}

	status, msg := taskqueue.TaskCompleted, ""
	switch {
	case errors.Is(err, context.Canceled) && s.isClosing():
		status, msg = taskqueue.TaskCancelled, "cancelled by shutdown"
	case errors.Is(err, context.Canceled):
		status, msg = taskqueue.TaskCancelled, "cancelled by user"
	case err != nil:
		status, msg = taskqueue.TaskFailed, err.Error()
	}
	if err := s.tasks.UpdateStatus(bg, id, status, result, msg); err != nil {
		log.Error("update task status failed", zap.Error(err))
	}
}
