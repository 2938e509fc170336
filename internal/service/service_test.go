package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/UnendingLoop/DocMint/internal/tools"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"
)

var (
	pngHead = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	pdfHead = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
)

// хелпер для создания загруженного файла
func newUpload(name string, content []byte) model.UploadFile {
	return model.UploadFile{
		Name: name,
		Size: int64(len(content)),
		File: &fakeMultipartFile{Reader: bytes.NewReader(content)},
	}
}

func okPublisher(t *testing.T) *mockPublisher {
	return &mockPublisher{
		sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
			require.NotEmpty(t, key)
			return nil
		},
	}
}

// CREATE - SUCCESS
func TestJobService_Create_OK(t *testing.T) {
	var putKeys []string
	var putBodies [][]byte

	repo := &mockRepo{
		createFn: func(ctx context.Context, j *model.Job) error {
			require.NotEmpty(t, j.UID)
			require.Equal(t, model.StatusCreated, j.Status)
			require.Equal(t, model.StringSlice{"a.pdf", "b.pdf"}, j.SourceNames)
			require.Len(t, j.SourceKeys, 2)
			return nil
		},
	}

	storage := &mockStorage{
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			require.Equal(t, model.PDF, ct)
			body, err := io.ReadAll(r)
			require.NoError(t, err)
			putKeys = append(putKeys, key)
			putBodies = append(putBodies, body)
			return nil
		},
	}

	svc := JobService{
		repo:         repo,
		storage:      storage,
		publisher:    okPublisher(t),
		srcKeyPrefix: "src/",
	}

	job, err := svc.Create(context.Background(), &model.JobCreateData{
		Tool:   "Merge_PDF",
		Params: model.Params{Width: 100, Order: []int{2}},
		Files:  []model.UploadFile{newUpload("a.pdf", pdfHead), newUpload("b.pdf", pdfHead)},
	})
	require.NoError(t, err)
	require.Equal(t, model.ToolMergePDF, job.Tool)
	// merge ничего из параметров не читает
	require.Equal(t, model.Params{}, job.Params)

	require.Len(t, putKeys, 2)
	require.True(t, strings.HasPrefix(putKeys[0], "src/"+job.UID.String()+"_0"))
	require.True(t, strings.HasSuffix(putKeys[1], "_1.pdf"))
	// после определения типа файл перемотан в начало
	require.Equal(t, pdfHead, putBodies[0])
}

// CREATE - VALIDATION FAIL
func TestJobService_Create_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    *model.JobCreateData
		wantErr error
	}{
		{
			name:    "unknown tool",
			data:    &model.JobCreateData{Tool: "rotate", Files: []model.UploadFile{newUpload("a.png", pngHead)}},
			wantErr: model.ErrIncorrectTool,
		},
		{
			name:    "no files",
			data:    &model.JobCreateData{Tool: string(model.ToolCompress)},
			wantErr: model.ErrEmptySource,
		},
		{
			name: "two files for organize",
			data: &model.JobCreateData{Tool: string(model.ToolOrganizePDF),
				Files: []model.UploadFile{newUpload("a.pdf", pdfHead), newUpload("b.pdf", pdfHead)}},
			wantErr: model.ErrTooManyFiles,
		},
		{
			name: "pdf given to image tool",
			data: &model.JobCreateData{Tool: string(model.ToolCompress),
				Files: []model.UploadFile{newUpload("a.png", pngHead), newUpload("b.pdf", pdfHead)}},
			wantErr: model.ErrUnsupportedFormat,
		},
		{
			name: "image given to pdf tool",
			data: &model.JobCreateData{Tool: string(model.ToolPDFToJPG),
				Files: []model.UploadFile{newUpload("a.png", pngHead)}},
			wantErr: model.ErrUnsupportedFormat,
		},
		{
			name: "empty file",
			data: &model.JobCreateData{Tool: string(model.ToolMergePDF),
				Files: []model.UploadFile{newUpload("a.pdf", nil)}},
			wantErr: model.ErrEmptySource,
		},
		{
			name: "bad unit",
			data: &model.JobCreateData{Tool: string(model.ToolCompress), Params: model.Params{WidthUnit: "inch"},
				Files: []model.UploadFile{newUpload("a.png", pngHead)}},
			wantErr: model.ErrIncorrectParams,
		},
		{
			name: "zero page in order",
			data: &model.JobCreateData{Tool: string(model.ToolOrganizePDF), Params: model.Params{Order: []int{1, 0}},
				Files: []model.UploadFile{newUpload("a.pdf", pdfHead)}},
			wantErr: model.ErrIncorrectOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := JobService{}
			_, err := svc.Create(context.Background(), tt.data)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// CREATE - STORAGE PUT FAIL
func TestJobService_Create_StorageError(t *testing.T) {
	storage := &mockStorage{
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			return errors.New("storage is down")
		},
	}

	svc := JobService{
		repo:         &mockRepo{},
		storage:      storage,
		srcKeyPrefix: "src/",
	}

	_, err := svc.Create(context.Background(), &model.JobCreateData{
		Tool:  string(model.ToolCompress),
		Files: []model.UploadFile{newUpload("a.png", pngHead)},
	})
	require.ErrorIs(t, err, model.ErrCommon500)
}

// CREATE - PUBLISH FAIL: запись и исходники убираются
func TestJobService_Create_PublishError(t *testing.T) {
	var createdID string
	var deletedRows, putKeys, deletedKeys []string

	svc := JobService{
		repo: &mockRepo{
			createFn: func(ctx context.Context, j *model.Job) error {
				createdID = j.UID.String()
				return nil
			},
			deleteFn: func(ctx context.Context, id string) error {
				deletedRows = append(deletedRows, id)
				return nil
			},
		},
		storage: &mockStorage{
			putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
				putKeys = append(putKeys, key)
				return nil
			},
			deleteFn: func(ctx context.Context, key string) error {
				deletedKeys = append(deletedKeys, key)
				return nil
			},
		},
		publisher: &mockPublisher{sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
			return errors.New("kafka down")
		}},
		srcKeyPrefix: "src/",
	}

	_, err := svc.Create(context.Background(), &model.JobCreateData{
		Tool:  string(model.ToolCompress),
		Files: []model.UploadFile{newUpload("a.png", pngHead), newUpload("b.png", pngHead)},
	})
	require.ErrorIs(t, err, model.ErrCommon500)
	require.Equal(t, []string{createdID}, deletedRows)
	require.Len(t, putKeys, 2)
	require.Equal(t, putKeys, deletedKeys)
}

// CREATE - DB FAIL: исходники убираются
func TestJobService_Create_RepoErrorDiscardsSources(t *testing.T) {
	var putKeys, deletedKeys []string

	svc := JobService{
		repo: &mockRepo{createFn: func(ctx context.Context, j *model.Job) error { return errors.New("db down") }},
		storage: &mockStorage{
			putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
				putKeys = append(putKeys, key)
				return nil
			},
			deleteFn: func(ctx context.Context, key string) error {
				deletedKeys = append(deletedKeys, key)
				return nil
			},
		},
	}

	_, err := svc.Create(context.Background(), &model.JobCreateData{
		Tool:  string(model.ToolCompress),
		Files: []model.UploadFile{newUpload("a.png", pngHead)},
	})
	require.ErrorIs(t, err, model.ErrCommon500)
	require.Len(t, putKeys, 1)
	require.Equal(t, putKeys, deletedKeys)
}

// GETLIST - SUCCESS
func TestJobService_GetList_OK(t *testing.T) {
	repo := &mockRepo{
		getListFn: func(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
			require.Equal(t, 1, req.Page)
			require.Equal(t, 30, req.Limit)
			require.Equal(t, "created_at", req.Sort)
			require.Equal(t, "DESC", req.Order)
			return []model.Job{{UID: uuid.New()}}, nil
		},
	}

	svc := JobService{repo: repo}

	res, err := svc.GetList(context.Background(), &model.ListRequest{})
	require.NoError(t, err)
	require.Len(t, res, 1)
}

func TestValidateQueryParams(t *testing.T) {
	req := &model.ListRequest{Page: 3, Limit: 500, Sort: " UID ", Order: "Ascend"}
	validateQueryParams(req)
	require.Equal(t, &model.ListRequest{Page: 3, Limit: 30, Sort: "job_uid", Order: "ASC"}, req)
}

// GET
func TestJobService_Get(t *testing.T) {
	id := uuid.New().String()

	tests := []struct {
		name    string
		id      string
		repoErr error
		wantErr error
	}{
		{"ok", id, nil, nil},
		{"invalid id", "bad-id", nil, model.ErrIncorrectID},
		{"not found", id, model.ErrJobNotFound, model.ErrJobNotFound},
		{"db error", id, errors.New("db down"), model.ErrCommon500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{
				getFn: func(ctx context.Context, uid string) (*model.Job, error) {
					if tt.repoErr != nil {
						return nil, tt.repoErr
					}
					return &model.Job{UID: uuid.MustParse(uid)}, nil
				},
			}
			svc := JobService{repo: repo}

			job, err := svc.Get(context.Background(), tt.id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, id, job.UID.String())
		})
	}
}

// LOADRESULT
func TestJobService_LoadResult(t *testing.T) {
	tests := []struct {
		name    string
		status  model.Status
		wantErr error
	}{
		{"done", model.StatusDone, nil},
		{"not ready", model.StatusInProgress, model.ErrResultNotReady},
		{"failed", model.StatusFailed, model.ErrJobFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{
				getFn: func(ctx context.Context, id string) (*model.Job, error) {
					return &model.Job{Status: tt.status, ResultKey: "res/x.zip", ResultName: "scan_jpg.zip"}, nil
				},
			}
			storage := &mockStorage{
				getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
					require.Equal(t, "res/x.zip", key)
					return io.NopCloser(bytes.NewReader([]byte("zip"))), model.ZIP, nil
				},
			}
			svc := JobService{repo: repo, storage: storage}

			rc, cType, name, err := svc.LoadResult(context.Background(), uuid.New().String())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, model.ZIP, cType)
			require.Equal(t, "scan_jpg.zip", name)
			require.NoError(t, rc.Close())
		})
	}
}

// DELETE - SUCCESS
func TestJobService_Delete_OK(t *testing.T) {
	var deleted []string

	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Job, error) {
			return &model.Job{
				Status:     model.StatusDone,
				SourceKeys: model.StringSlice{"src/1", "src/2"},
				ResultKey:  "res/1",
			}, nil
		},
		deleteFn: func(ctx context.Context, id string) error { return nil },
	}
	storage := &mockStorage{
		deleteFn: func(ctx context.Context, key string) error {
			deleted = append(deleted, key)
			if key == "src/2" {
				return errors.New("already gone")
			}
			return nil
		},
	}

	svc := JobService{repo: repo, storage: storage}
	require.NoError(t, svc.Delete(context.Background(), uuid.New().String()))
	require.Equal(t, []string{"src/1", "src/2", "res/1"}, deleted)
}

// DELETE - FAIL - NOT FOUND
func TestJobService_Delete_NotFound(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Job, error) {
			return nil, model.ErrJobNotFound
		},
	}

	svc := JobService{repo: repo}
	err := svc.Delete(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrJobNotFound)
}

// UPDATESTATUS
func TestJobService_UpdateStatus(t *testing.T) {
	repo := &mockRepo{
		updateStatusFn: func(ctx context.Context, id string, st model.Status) error {
			require.Equal(t, model.StatusDone, st)
			return nil
		},
	}

	svc := JobService{repo: repo}
	require.NoError(t, svc.UpdateStatus(context.Background(), uuid.New().String(), model.StatusDone))
	require.ErrorIs(t, svc.UpdateStatus(context.Background(), uuid.New().String(), "paused"), model.ErrIncorrectStatus)
	require.ErrorIs(t, svc.UpdateStatus(context.Background(), "bad", model.StatusDone), model.ErrIncorrectID)
}

// SAVERESULT - SUCCESS
func TestJobService_SaveResult_OK(t *testing.T) {
	repo := &mockRepo{
		saveResultFn: func(ctx context.Context, j *model.Job) error {
			require.NotNil(t, j.UpdatedAt)
			return nil
		},
	}

	svc := JobService{repo: repo}
	require.NoError(t, svc.SaveResult(context.Background(), &model.Job{}))
}

// REVIVEORPHANS - SUCCESS
func TestJobService_ReviveOrphans(t *testing.T) {
	var sent []string

	repo := &mockRepo{
		fetchOrphansFn: func(ctx context.Context, limit int) ([]string, error) {
			require.Equal(t, 10, limit)
			return []string{"id1", "id2"}, nil
		},
	}

	pub := &mockPublisher{
		sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
			sent = append(sent, string(key))
			return nil
		},
	}

	svc := JobService{repo: repo, publisher: pub}
	svc.ReviveOrphans(context.Background(), 10)

	require.Equal(t, []string{"id1", "id2"}, sent)
}

func TestNormalizeParams(t *testing.T) {
	tests := []struct {
		name    string
		tool    model.Tool
		in      model.Params
		want    model.Params
		wantErr error
	}{
		{
			name: "compress defaults unit to px",
			tool: model.ToolCompress,
			in:   model.Params{TargetBytes: 5000, Width: 10, HeightUnit: "CM", Paper: model.PaperA3},
			want: model.Params{TargetBytes: 5000, Width: 10, WidthUnit: model.UnitPx, HeightUnit: model.UnitCM},
		},
		{
			name: "images to pdf defaults",
			tool: model.ToolImagesToPDF,
			in:   model.Params{Concurrency: 3},
			want: model.Params{Paper: model.PaperA4, FitMode: model.FitContain},
		},
		{
			name: "images to pdf case-insensitive paper",
			tool: model.ToolImagesToPDF,
			in:   model.Params{Paper: "letter", FitMode: "Stretch", Margin: 12},
			want: model.Params{Paper: model.PaperLetter, FitMode: model.FitStretch, Margin: 12},
		},
		{
			name:    "unknown paper",
			tool:    model.ToolImagesToPDF,
			in:      model.Params{Paper: "B5"},
			wantErr: model.ErrIncorrectParams,
		},
		{
			name:    "negative margin",
			tool:    model.ToolImagesToPDF,
			in:      model.Params{Margin: -1},
			wantErr: model.ErrIncorrectParams,
		},
		{
			name: "pdf to jpg default concurrency",
			tool: model.ToolPDFToJPG,
			want: model.Params{Concurrency: tools.DefaultRenderConcurrency},
		},
		{
			name: "pdf to jpg clamps concurrency",
			tool: model.ToolPDFToJPG,
			in:   model.Params{Concurrency: 9},
			want: model.Params{Concurrency: tools.MaxRenderConcurrency},
		},
		{
			name:    "negative target",
			tool:    model.ToolCompress,
			in:      model.Params{TargetBytes: -1},
			wantErr: model.ErrIncorrectParams,
		},
		{
			name: "organize keeps order",
			tool: model.ToolOrganizePDF,
			in:   model.Params{Order: []int{3, 3, 1}},
			want: model.Params{Order: []int{3, 3, 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeParams(tt.tool, tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
