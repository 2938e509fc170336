// Package worker consumes job ids from the queue, runs the requested tool and stores the result
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/UnendingLoop/DocMint/internal/metrics"
	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/UnendingLoop/DocMint/internal/service"
	"github.com/UnendingLoop/DocMint/internal/tools"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"
)

type JobWorkerService interface {
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Job) error
	Get(ctx context.Context, id string) (*model.Job, error)
}

// JobProcessor runs a tool over already downloaded sources
type JobProcessor interface {
	Run(ctx context.Context, job *model.Job, sources []tools.Source) (*model.Output, error)
}

// Committer подтверждает обработку сообщения очереди
type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

// toolError помечает ошибку самого инструмента: она сохраняется в задаче как failed,
// остальные ошибки (хранилище, БД) оставляют сообщение неподтвержденным
type toolError struct {
	err error
}

func (e *toolError) Error() string { return e.err.Error() }

func (e *toolError) Unwrap() error { return e.err }

type Worker struct {
	storage      service.FileStorage
	service      JobWorkerService
	processor    JobProcessor
	queue        <-chan kafkago.Message
	consumer     Committer
	resultPrefix string
}

func NewWorkerInstance(strg service.FileStorage, svc JobWorkerService, proc JobProcessor, q <-chan kafkago.Message, cons Committer, resPr string) *Worker {
	return &Worker{storage: strg, service: svc, processor: proc, queue: q, consumer: cons, resultPrefix: resPr}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				zlog.Logger.Info().Msg("Queue channel closed, stopping worker...")
				return
			}
			id := string(msg.Key)
			if err := w.initProcessor(ctx, id); err != nil && !errors.Is(err, model.ErrJobNotFound) {
				zlog.Logger.Error().Err(err).Str("job_uid", id).Msg("Task failed")
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				zlog.Logger.Error().Err(err).Str("job_uid", id).Msg("Failed to commit queue-message")
			}
		}
	}
}

// initProcessor returns an error when the job could not be processed for reasons outside
// the tool (storage, DB, shutdown); the job stays as is and the message is redelivered.
// A tool failure is stored on the job and the message counts as handled.
func (w *Worker) initProcessor(ctx context.Context, id string) error {
	// считать из базы задачу
	task, err := w.service.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("worker failed to fetch job %q from DB: %w", id, err)
	}
	// проверить статус
	switch task.Status {
	case model.StatusDone, model.StatusFailed:
		return nil
	case model.StatusInProgress:
		// подвисшую задачу сюда возвращает ReviveOrphans - берем заново
		zlog.Logger.Warn().Str("job_uid", id).Msg("Job is already in progress, restarting it")
	}

	// на всякий случай проверить поле с результатом
	if task.ResultKey != "" && strings.HasPrefix(task.ResultKey, w.resultPrefix) {
		if err := w.service.UpdateStatus(ctx, id, model.StatusDone); err != nil {
			return fmt.Errorf("failed to update status of already-done job in DB: %w", err)
		}
		return nil
	}

	if err := w.service.UpdateStatus(ctx, id, model.StatusInProgress); err != nil {
		return fmt.Errorf("failed to update status of job %q to `in_progress` in DB: %w", id, err)
	}

	start := time.Now()
	pErr := w.processTask(ctx, task)
	if pErr == nil {
		metrics.ObserveJob(string(task.Tool), string(model.StatusDone), time.Since(start))
		return nil
	}
	var tErr *toolError
	if !errors.As(pErr, &tErr) {
		return fmt.Errorf("job %q was not processed: %w", id, pErr)
	}
	metrics.ObserveJob(string(task.Tool), string(model.StatusFailed), time.Since(start))
	zlog.Logger.Warn().Err(pErr).Str("job_uid", id).Str("tool", string(task.Tool)).Msg("Job failed")

	task.Status = model.StatusFailed
	task.ResultKey, task.ResultName = "", ""
	task.Notes = append(task.Notes, "failed: "+pErr.Error())
	if sErr := w.service.SaveResult(ctx, task); sErr != nil {
		return fmt.Errorf("failed to set status of job %q to `failed` in DB: %w \nAFTER\n error while processing job: %w", id, sErr, pErr)
	}
	return nil
}

func (w *Worker) processTask(ctx context.Context, task *model.Job) error {
	// достать из storage исходники
	sources := make([]tools.Source, 0, len(task.SourceKeys))
	for i, key := range task.SourceKeys {
		data, err := w.readSource(ctx, key)
		if err != nil {
			return fmt.Errorf("worker failed to fetch source %q from storage: %w", key, err)
		}
		name := filepath.Base(key)
		if i < len(task.SourceNames) && task.SourceNames[i] != "" {
			name = task.SourceNames[i]
		}
		sources = append(sources, tools.Source{Name: name, Data: data})
	}

	out, err := w.processor.Run(ctx, task, sources)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("job interrupted: %w", err)
		}
		return &toolError{err: err}
	}

	// положить результат в сторедж
	ext := model.GetFileExt[out.ContentType]
	if ext == "" {
		ext = filepath.Ext(out.Name)
	}
	resKey := w.resultPrefix + task.UID.String() + ext
	if err := w.storage.Put(ctx, resKey, int64(len(out.Data)), out.ContentType, bytes.NewReader(out.Data)); err != nil {
		return fmt.Errorf("worker failed to put result to storage: %w", err)
	}

	task.Status = model.StatusDone
	task.ResultKey = resKey
	task.ResultName = out.Name
	task.Notes = out.Notes

	// обновить запись в БД
	if err := w.service.SaveResult(ctx, task); err != nil {
		return fmt.Errorf("worker failed to save result to DB: %w", err)
	}
	return nil
}

func (w *Worker) readSource(ctx context.Context, key string) ([]byte, error) {
	r, _, err := w.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer closeFileFlow(r)

	return io.ReadAll(r)
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}

	if err := res.Close(); err != nil {
		zlog.Logger.Warn().Err(err).Msg("Worker failed to close fileflow")
	}
}
