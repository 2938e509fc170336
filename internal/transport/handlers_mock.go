package transport

import (
	"context"
	"io"

	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/gin-gonic/gin"
)

type mockJobService struct {
	createFn     func(ctx context.Context, d *model.JobCreateData) (*model.Job, error)
	getFn        func(ctx context.Context, id string) (*model.Job, error)
	deleteFn     func(ctx context.Context, id string) error
	loadResultFn func(ctx context.Context, id string) (io.ReadCloser, string, string, error)
	getListFn    func(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
}

func (m *mockJobService) Create(ctx context.Context, d *model.JobCreateData) (*model.Job, error) {
	return m.createFn(ctx, d)
}

func (m *mockJobService) Get(ctx context.Context, id string) (*model.Job, error) {
	return m.getFn(ctx, id)
}

func (m *mockJobService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockJobService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, string, error) {
	return m.loadResultFn(ctx, id)
}

func (m *mockJobService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	return m.getListFn(ctx, req)
}

func init() {
	gin.SetMode(gin.TestMode)
}
