package document

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docrewriter/config"
	"docrewriter/internal/models"
	"docrewriter/internal/utils/validator"
	"docrewriter/pkg/logger"
	"docrewriter/pkg/queue"
	"docrewriter/pkg/storage"
)

type RewriteService struct {
	pipeline  *Pipeline
	queue     queue.Queue
	storage   storage.Storage
	validator *validator.DocumentValidator
	logger    logger.Logger
	config    *ServiceConfig
}

type ServiceConfig struct {
	MaxFileSize     int64
	AllowedTypes    []string
	QueuePriority   int
	ProcessTimeout  time.Duration
	RetentionPeriod time.Duration
}

func NewService(
	pipeline *Pipeline,
	q queue.Queue,
	store storage.Storage,
	log logger.Logger,
	cfg *ServiceConfig,
) DocumentRewriter {
	if cfg == nil {
		cfg = &ServiceConfig{
			MaxFileSize:     50 * 1024 * 1024, // 50MB
			AllowedTypes:    []string{".docx", ".pdf"},
			ProcessTimeout:  30 * time.Minute,
			RetentionPeriod: 24 * time.Hour,
		}
	}

	return &RewriteService{
		pipeline:  pipeline,
		queue:     q,
		storage:   store,
		validator: validator.NewDocumentValidator(log, nil),
		logger:    log,
		config:    cfg,
	}
}

// GetService 按配置装配服务端模式的完整依赖
func GetService(cfg *config.Config, log logger.Logger) (DocumentRewriter, error) {
	store, err := storage.NewStorage(storage.StorageType(cfg.Storage.Type), cfg.Storage.LocalDir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	q, err := queue.GetQueue(cfg.Queue.RedisAddr, cfg.Queue.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	pipeline, err := NewPipelineFromConfig(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	return NewService(pipeline, q, store, log, nil), nil
}

// SubmitFile 接收上传文件并入队
func (s *RewriteService) SubmitFile(
	ctx context.Context,
	file multipart.File,
	header *multipart.FileHeader,
) (*models.ProcessingTask, error) {
	s.logger.Info("Starting file submission",
		logger.String("filename", header.Filename),
		logger.Int64("size", header.Size),
	)

	validation, err := s.validator.ValidateFile(header)
	if err != nil {
		return nil, fmt.Errorf("failed to validate file: %w", err)
	}
	if !validation.IsValid {
		s.logger.Error("File validation failed",
			logger.String("filename", header.Filename),
			logger.Any("errors", validation.Errors),
		)
		return nil, fmt.Errorf("file validation failed: %s", validation.Errors[0].Message)
	}

	taskID := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(header.Filename))

	task := &models.ProcessingTask{
		ID:        taskID,
		Status:    models.StatusPending,
		Type:      queue.TaskTypeRewriteDocument,
		Priority:  s.config.QueuePriority,
		Progress:  0,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Metadata: map[string]string{
			"filename": header.Filename,
			"size":     fmt.Sprintf("%d", header.Size),
			"type":     ext,
			"hash":     validation.FileInfo.Hash,
		},
	}

	// 上传键带任务ID，避免同名文件覆盖
	fileID, err := s.storage.Store(ctx, file, fmt.Sprintf("uploads/%s%s", taskID, ext))
	if err != nil {
		s.logger.Error("Failed to store file",
			logger.String("filename", header.Filename),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	queueTask := &queue.Task{
		ID:       taskID,
		Type:     task.Type,
		Priority: task.Priority,
		Payload: map[string]interface{}{
			"fileId":   fileID,
			"filename": header.Filename,
			"type":     ext,
		},
		Metadata:  task.Metadata,
		CreatedAt: task.CreatedAt,
	}

	if err := s.queue.Enqueue(ctx, queueTask); err != nil {
		s.logger.Error("Failed to enqueue task",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	initialStatus := &queue.TaskStatus{
		TaskID:    taskID,
		Status:    "pending",
		Progress:  0,
		StartedAt: time.Now(),
	}

	if err := s.queue.SaveFinalStatus(ctx, initialStatus); err != nil {
		s.logger.Error("Failed to save initial status",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
	}

	s.logger.Info("Rewrite task created",
		logger.String("taskId", taskID),
		logger.String("filename", header.Filename),
	)

	return task, nil
}

// SubmitBatch 批量提交文件
func (s *RewriteService) SubmitBatch(ctx context.Context, files []*multipart.FileHeader) ([]*models.ProcessingTask, error) {
	tasks := make([]*models.ProcessingTask, 0, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)

	for _, header := range files {
		header := header
		g.Go(func() error {
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("failed to open file %s: %w", header.Filename, err)
			}
			defer file.Close()

			task, err := s.SubmitFile(ctx, file, header)
			if err != nil {
				return fmt.Errorf("failed to submit file %s: %w", header.Filename, err)
			}

			mu.Lock()
			tasks = append(tasks, task)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return tasks, err
	}

	return tasks, nil
}

// HandleRewrite 队列 worker 的任务入口：取回上传文件，跑完整流水线，产物回传存储。
func (s *RewriteService) HandleRewrite(ctx context.Context, task *queue.Task) error {
	if task == nil || task.Payload == nil || task.Metadata == nil {
		return fmt.Errorf("invalid task: missing required data")
	}

	s.logger.Info("Rewriting document",
		logger.String("taskId", task.ID),
		logger.String("filename", task.Metadata["filename"]),
	)

	fileID, ok := task.Payload["fileId"].(string)
	if !ok || fileID == "" {
		return fmt.Errorf("invalid task: missing fileId")
	}

	reader, err := s.storage.Get(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}
	defer reader.Close()

	// 流水线按文件路径工作，先落到临时文件
	inputPath, err := s.stageInput(reader, task.Metadata["type"])
	if err != nil {
		return err
	}
	defer os.Remove(inputPath)

	result, err := s.pipeline.ProcessFile(ctx, inputPath)
	if err != nil {
		failed := &queue.TaskStatus{
			TaskID:     task.ID,
			Status:     "failed",
			Error:      err.Error(),
			StartedAt:  task.CreatedAt,
			FinishedAt: time.Now(),
		}
		if serr := s.queue.SaveFinalStatus(ctx, failed); serr != nil {
			s.logger.Error("Failed to save failed status",
				logger.String("taskId", task.ID),
				logger.Error(serr),
			)
		}
		return fmt.Errorf("failed to process document: %w", err)
	}

	// 产物回传存储，结果摘要里的路径换成存储键
	if result.DocxPath != "" {
		key, err := s.uploadArtifact(ctx, task.ID, result.DocxPath, "rewritten.docx")
		if err != nil {
			return err
		}
		result.DocxPath = key
	}
	if result.MarkdownPath != "" {
		key, err := s.uploadArtifact(ctx, task.ID, result.MarkdownPath, "rewritten.md")
		if err != nil {
			return err
		}
		result.MarkdownPath = key
	}

	if err := s.queue.SaveResult(ctx, task.ID, result); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	s.logger.Info("Document rewrite completed",
		logger.String("taskId", task.ID),
		logger.Int("totalBlocks", result.TotalBlocks),
		logger.Int("cacheHits", result.CacheHits),
		logger.Int("failed", result.Failed),
	)

	finalStatus := &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     "completed",
		Progress:   1.0,
		StartedAt:  task.CreatedAt,
		FinishedAt: time.Now(),
	}

	if err := s.queue.SaveFinalStatus(ctx, finalStatus); err != nil {
		s.logger.Error("Failed to save final status",
			logger.String("taskId", task.ID),
			logger.Error(err),
		)
	}

	return nil
}

// GetProcessingStatus 获取处理状态
func (s *RewriteService) GetProcessingStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error) {
	status, err := s.queue.GetTaskStatus(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task status: %w", err)
	}

	var taskStatus models.ProcessingStatus
	switch status.Status {
	case "pending":
		taskStatus = models.StatusPending
	case "running", "active":
		taskStatus = models.StatusRunning
	case "completed":
		taskStatus = models.StatusCompleted
	case "failed":
		taskStatus = models.StatusFailed
	case "cancelled":
		taskStatus = models.StatusCancelled
	default:
		taskStatus = models.StatusPending
	}

	return &models.ProcessingTask{
		ID:        status.TaskID,
		Status:    taskStatus,
		Type:      queue.TaskTypeRewriteDocument,
		Progress:  status.Progress,
		Error:     status.Error,
		Metadata:  make(map[string]string),
		CreatedAt: status.StartedAt,
		UpdatedAt: status.FinishedAt,
	}, nil
}

// GetResult 获取重写结果摘要
func (s *RewriteService) GetResult(ctx context.Context, taskID string) (*models.Result, error) {
	status, err := s.GetProcessingStatus(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if status.Status != models.StatusCompleted {
		return nil, fmt.Errorf("task is not completed: %s", status.Status)
	}

	return s.queue.GetResult(ctx, taskID)
}

// DownloadArtifact 下载产物，kind 取 docx 或 markdown
func (s *RewriteService) DownloadArtifact(ctx context.Context, taskID, kind string) (io.ReadCloser, string, error) {
	result, err := s.GetResult(ctx, taskID)
	if err != nil {
		return nil, "", err
	}

	var key string
	switch kind {
	case "docx":
		key = result.DocxPath
	case "markdown":
		key = result.MarkdownPath
	default:
		return nil, "", fmt.Errorf("unsupported artifact kind: %s", kind)
	}
	if key == "" {
		return nil, "", fmt.Errorf("no %s artifact for task %s", kind, taskID)
	}

	reader, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get artifact: %w", err)
	}

	return reader, filepath.Base(key), nil
}

// CancelTask 取消任务
func (s *RewriteService) CancelTask(ctx context.Context, taskID string) error {
	if err := s.queue.CancelTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}

	cancelled := &queue.TaskStatus{
		TaskID:     taskID,
		Status:     "cancelled",
		FinishedAt: time.Now(),
	}
	if err := s.queue.SaveFinalStatus(ctx, cancelled); err != nil {
		s.logger.Error("Failed to save cancelled status",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
	}

	s.logger.Info("Task cancelled",
		logger.String("taskId", taskID),
	)

	return nil
}

// CleanupTasks 清理过期任务
func (s *RewriteService) CleanupTasks(ctx context.Context) error {
	threshold := time.Now().Add(-s.config.RetentionPeriod)

	if err := s.storage.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("failed to cleanup storage: %w", err)
	}

	s.logger.Info("Completed tasks cleanup",
		logger.Time("threshold", threshold),
	)

	return nil
}

func (s *RewriteService) stageInput(reader io.Reader, ext string) (string, error) {
	if ext == "" {
		ext = ".docx"
	}
	tmp, err := os.CreateTemp("", "rewrite_*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to stage input file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return tmp.Name(), nil
}

func (s *RewriteService) uploadArtifact(ctx context.Context, taskID, path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact %s: %w", path, err)
	}
	defer f.Close()

	key, err := s.storage.Store(ctx, f, fmt.Sprintf("artifacts/%s/%s", taskID, name))
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}
	return key, nil
}
