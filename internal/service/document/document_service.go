package document

import (
	"context"
	"io"
	"mime/multipart"

	"docrewriter/internal/models"
	"docrewriter/pkg/queue"
)

type DocumentRewriter interface {
	SubmitFile(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*models.ProcessingTask, error)
	SubmitBatch(ctx context.Context, files []*multipart.FileHeader) ([]*models.ProcessingTask, error)
	GetProcessingStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error)
	HandleRewrite(ctx context.Context, task *queue.Task) error
	GetResult(ctx context.Context, taskID string) (*models.Result, error)
	DownloadArtifact(ctx context.Context, taskID, kind string) (io.ReadCloser, string, error)
	CancelTask(ctx context.Context, taskID string) error
}
