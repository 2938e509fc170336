// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/UnendingLoop/DocMint/internal/mwlogger"
	"github.com/wb-go/wbf/ginext"
)

type JobHandler struct {
	service        JobService
	maxUploadBytes int64
}

type JobService interface {
	Create(ctx context.Context, data *model.JobCreateData) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	Delete(ctx context.Context, id string) error                                        // удалить как в базе, так и в minio
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, string, error) // прям скачать результат
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error)           // получить список
}

func NewJobHandler(svc JobService, maxUploadBytes int64) *JobHandler {
	return &JobHandler{
		service:        svc,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h JobHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

// Create accepts multipart/form-data: "tool", tool parameters and one or more "files".
func (h JobHandler) Create(ctx *ginext.Context) {
	if h.maxUploadBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.maxUploadBytes)
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ctx.JSON(413, map[string]string{"error": "upload is too large"})
			return
		}
		ctx.JSON(400, map[string]string{"error": "invalid multipart form"})
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		ctx.JSON(400, map[string]string{"error": "at least one file is required"})
		return
	}

	params, err := parseParams(ctx.PostForm)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	// открываем все файлы
	files := make([]model.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			logger := mwlogger.LoggerFromContext(ctx.Request.Context())
			logger.Warn().Err(err).Str("file", fh.Filename).Msg("Failed to open uploaded file")
			ctx.JSON(400, map[string]string{"error": "failed to read uploaded file " + fh.Filename})
			return
		}
		defer closeFileFlow(f)
		files = append(files, model.UploadFile{Name: fh.Filename, Size: fh.Size, File: f})
	}

	res, err := h.service.Create(ctx.Request.Context(), &model.JobCreateData{
		Tool:   ctx.PostForm("tool"),
		Params: params,
		Files:  files,
	})
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h JobHandler) GetJob(ctx *ginext.Context) {
	res, err := h.service.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h JobHandler) GetAllJobs(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h JobHandler) LoadResult(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, cType, name, err := h.service.LoadResult(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	defer closeFileFlow(res)

	ctx.Writer.Header().Set("Content-Type", cType)
	if name != "" {
		ctx.Writer.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		logger := mwlogger.LoggerFromContext(ctx.Request.Context())
		logger.Error().Err(err).Str("job_uid", id).Msgf("Failed to write response at byte %d", n)
	}
}

func (h JobHandler) Delete(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.Delete(ctx.Request.Context(), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}
