// Package service provides business-logic for the app
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/UnendingLoop/DocMint/internal/metrics"
	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/UnendingLoop/DocMint/internal/mwlogger"
	"github.com/UnendingLoop/DocMint/internal/repository"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/retry"
)

type JobService struct {
	repo            repository.JobRepo
	publisher       TaskPublisher
	storage         FileStorage
	srcKeyPrefix    string
	resultKeyPrefix string
}

func NewJobService(cfg *config.Config, repo repository.JobRepo, pub TaskPublisher, strg FileStorage) *JobService {
	return &JobService{
		repo:            repo,
		publisher:       pub,
		storage:         strg,
		srcKeyPrefix:    cfg.GetString("SOURCE_KEY"),
		resultKeyPrefix: cfg.GetString("RESULT_KEY"),
	}
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// FileStorage - контракт для работы с хранилищем
type FileStorage interface {
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

// Стратегия ретрая отправки в очередь
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

func (c JobService) Create(ctx context.Context, data *model.JobCreateData) (*model.Job, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	newJob := &model.Job{}

	// валидируем инструмент, параметры и количество файлов
	if err := validateNormalizeJob(data, newJob); err != nil {
		return nil, err
	}

	// проверяем реальный тип каждого файла по содержимому, а не по заголовку
	kind := model.ToolsMap[newJob.Tool]
	cTypes := make([]string, 0, len(data.Files))
	for _, f := range data.Files {
		cType, err := sniffContentType(f)
		if err != nil {
			logger.Warn().Err(err).Str("file", f.Name).Msg("Failed to sniff uploaded file")
			return nil, model.ErrEmptySource
		}
		if !acceptsContentType(kind, cType) {
			return nil, fmt.Errorf("%w: %q is %s", model.ErrUnsupportedFormat, f.Name, cType)
		}
		cTypes = append(cTypes, cType)
	}

	newJob.UID = uuid.New()

	// кладем в хранилище исходники
	for i, f := range data.Files {
		key := c.srcKeyPrefix + newJob.UID.String() + "_" + strconv.Itoa(i) + model.GetFileExt[cTypes[i]]
		if err := c.storage.Put(ctx, key, f.Size, cTypes[i], f.File); err != nil {
			logger.Error().Err(err).Str("file", f.Name).Msg("Failed to save source file in Storage")
			c.discardSources(ctx, newJob.SourceKeys)
			return nil, model.ErrCommon500
		}
		newJob.SourceKeys = append(newJob.SourceKeys, key)
		newJob.SourceNames = append(newJob.SourceNames, f.Name)
	}

	newJob.Status = model.StatusCreated
	now := time.Now().UTC()
	newJob.CreatedAt = &now

	if err := c.repo.Create(ctx, newJob); err != nil {
		logger.Error().Err(err).Msg("Failed to create job in DB")
		c.discardSources(ctx, newJob.SourceKeys)
		return nil, model.ErrCommon500
	}

	// кладем в очередь задач(в кафку)
	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(newJob.UID.String()), nil); err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to publish job %q to task-queue", newJob.UID))
		// клиент получает 500 - задача не должна всплыть позже через ReviveOrphans
		if dErr := c.repo.Delete(context.WithoutCancel(ctx), newJob.UID.String()); dErr != nil {
			logger.Error().Err(dErr).Msg(fmt.Sprintf("Failed to delete unpublished job %q from DB", newJob.UID))
		}
		c.discardSources(ctx, newJob.SourceKeys)
		return nil, model.ErrCommon500
	}
	metrics.IncCreated(string(newJob.Tool))

	return newJob, nil
}

// discardSources удаляет исходники задачи, которая так и не была создана
func (c JobService) discardSources(ctx context.Context, keys []string) {
	logger := mwlogger.LoggerFromContext(ctx)
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := c.storage.Delete(ctx, key); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to delete orphaned source from Storage")
		}
	}
}

func (c JobService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch jobs list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return nil, model.ErrJobNotFound
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch job %q from DB", id))
		return nil, model.ErrCommon500
	}

	return res, nil
}

// LoadResult returns the result stream with its content type and download name.
func (c JobService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	res, err := c.Get(ctx, id)
	if err != nil {
		return nil, "", "", err
	}
	switch res.Status {
	case model.StatusDone:
	case model.StatusFailed:
		return nil, "", "", model.ErrJobFailed
	default:
		return nil, "", "", model.ErrResultNotReady
	}

	// достаем из хранилища
	data, cType, err := c.storage.Get(ctx, res.ResultKey)
	if err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch result of job %q from Storage", id))
		return nil, "", "", model.ErrCommon500
	}
	return data, cType, res.ResultName, nil
}

func (c JobService) Delete(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)

	res, err := c.Get(ctx, id)
	if err != nil {
		return err
	}

	// удаляем из базы
	if err := c.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return model.ErrJobNotFound
		}
		logger.Error().Err(err).Msg("Failed to delete job from DB")
		return model.ErrCommon500
	}

	// запись уже удалена - ошибки хранилища только логируем
	keys := append([]string{}, res.SourceKeys...)
	if res.ResultKey != "" {
		keys = append(keys, res.ResultKey)
	}
	for _, key := range keys {
		if err := c.storage.Delete(ctx, key); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to delete object from Storage")
		}
	}

	return nil
}

func (c JobService) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}
	if !model.StatusMap[newStat] {
		return model.ErrIncorrectStatus
	}

	logger := mwlogger.LoggerFromContext(ctx)

	if err := c.repo.UpdateStatus(ctx, id, newStat); err != nil {
		switch {
		case errors.Is(err, model.ErrJobNotFound):
			return model.ErrJobNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to update job status in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c JobService) SaveResult(ctx context.Context, input *model.Job) error {
	logger := mwlogger.LoggerFromContext(ctx)
	t := time.Now().UTC()
	input.UpdatedAt = &t
	if err := c.repo.SaveResult(ctx, input); err != nil {
		switch {
		case errors.Is(err, model.ErrJobNotFound):
			return model.ErrJobNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to save job result in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

// ReviveOrphans republishes jobs that were never picked up or were abandoned mid-way.
func (c JobService) ReviveOrphans(ctx context.Context, limit int) {
	logger := mwlogger.LoggerFromContext(ctx)

	orphans, err := c.repo.FetchOrphans(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load orphans from DB")
		return
	}

	for _, v := range orphans {
		if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(v), nil); err != nil {
			logger.Error().Err(err).Str("job_uid", v).Msg("Failed to publish orphan to queue")
		}
	}
}

// sniffContentType detects the type by content and rewinds the file for the upload.
func sniffContentType(f model.UploadFile) (string, error) {
	if f.File == nil || f.Size <= 0 {
		return "", errors.New("empty file")
	}
	mt, err := mimetype.DetectReader(f.File)
	if err != nil {
		return "", err
	}
	if _, err := f.File.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return mt.String(), nil
}

func acceptsContentType(kind model.InputKind, cType string) bool {
	switch kind {
	case model.InputImages:
		return model.InImageTypeMap[cType]
	default:
		return cType == model.PDF
	}
}
