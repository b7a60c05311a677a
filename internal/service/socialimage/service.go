package socialimage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"seo-assistant/internal/domain/content"
	appLogger "seo-assistant/internal/infra/logger"
	"seo-assistant/internal/infra/metrics"
	"seo-assistant/internal/repository"
)

// 渲染服务配置。目标站点地址必须显式配置，渲染服务与超时带默认值。
const (
	envServiceURL = "SEO_ASSISTANT_SOCIAL_SERVICE_URL"
	envTargetBase = "SEO_ASSISTANT_SOCIAL_TARGET"
	envTimeout    = "SEO_ASSISTANT_SOCIAL_TIMEOUT"
	envUploadDir  = "SEO_ASSISTANT_UPLOAD_DIR"

	defaultServiceURL     = "https://og-gen-pjqz.onrender.com/screenshot"
	defaultTimeoutSeconds = 30
	defaultUploadDir      = "data/uploads"

	maxImageBytes = 10 << 20
)

// 渲染链路错误，handler 据此映射 RENDERER_UNAVAILABLE。
var (
	ErrTargetNotConfigured = fmt.Errorf("social image target base url is not configured")
	ErrRendererFailed      = fmt.Errorf("social image renderer request failed")
)

// Service 调用外部截图服务为文章生成社交分享图，并落盘登记为附件。
type Service struct {
	posts       *repository.PostRepository
	attachments *repository.AttachmentRepository
	httpClient  *http.Client
	logger      *zap.SugaredLogger
}

func NewService(posts *repository.PostRepository, attachments *repository.AttachmentRepository) *Service {
	return &Service{
		posts:       posts,
		attachments: attachments,
		httpClient:  &http.Client{Timeout: timeoutFromEnv()},
		logger:      appLogger.S().With("component", "socialimage.service"),
	}
}

// SetHTTPClient 替换内部 HTTP 客户端，测试用。
func (s *Service) SetHTTPClient(client *http.Client) {
	if client != nil {
		s.httpClient = client
	}
}

// Generate 为指定文章渲染社交分享图。pageURL 非空时直接作为目标页面，
// 为空时由站点基础地址与文章 slug 拼接。
func (s *Service) Generate(ctx context.Context, postID uint, pageURL string) (*content.Attachment, error) {
	pageURL = strings.TrimSpace(pageURL)

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		metrics.RecordSocialImage("post_not_found")
		return nil, fmt.Errorf("load post %d: %w", postID, err)
	}

	if pageURL == "" {
		targetBase := strings.TrimSpace(os.Getenv(envTargetBase))
		if targetBase == "" {
			metrics.RecordSocialImage("not_configured")
			return nil, ErrTargetNotConfigured
		}
		pageURL = strings.TrimRight(targetBase, "/") + "/" + url.PathEscape(post.Slug)
	}
	requestURL := serviceURLFromEnv() + "?url=" + url.QueryEscape(pageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build renderer request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.RecordSocialImage("unreachable")
		return nil, fmt.Errorf("%w: %v", ErrRendererFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordSocialImage("renderer_error")
		return nil, fmt.Errorf("%w: status %d", ErrRendererFailed, resp.StatusCode)
	}

	image, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		metrics.RecordSocialImage("renderer_error")
		return nil, fmt.Errorf("%w: read body: %v", ErrRendererFailed, err)
	}
	if len(image) == 0 {
		metrics.RecordSocialImage("renderer_error")
		return nil, fmt.Errorf("%w: empty image", ErrRendererFailed)
	}

	attachment, err := s.store(ctx, post, image)
	if err != nil {
		metrics.RecordSocialImage("store_failed")
		return nil, err
	}

	metrics.RecordSocialImage("ok")
	s.logger.Infow("social image generated",
		"operation", "Generate",
		"post_id", postID,
		"file_name", attachment.FileName,
		"size_bytes", attachment.SizeBytes,
	)
	return attachment, nil
}

func (s *Service) store(ctx context.Context, post *content.Post, image []byte) (*content.Attachment, error) {
	dir := strings.TrimSpace(os.Getenv(envUploadDir))
	if dir == "" {
		dir = defaultUploadDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	fileName := fmt.Sprintf("social-%d-%s.png", post.ID, uuid.NewString())
	fullPath := filepath.Join(dir, fileName)
	if err := os.WriteFile(fullPath, image, 0o644); err != nil {
		return nil, fmt.Errorf("write image file: %w", err)
	}

	attachment := &content.Attachment{
		PostID:    post.ID,
		FileName:  fileName,
		URL:       "/uploads/" + fileName,
		MimeType:  "image/png",
		SizeBytes: int64(len(image)),
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, fmt.Errorf("register attachment: %w", err)
	}
	return attachment, nil
}

func serviceURLFromEnv() string {
	if v := strings.TrimSpace(os.Getenv(envServiceURL)); v != "" {
		return v
	}
	return defaultServiceURL
}

func timeoutFromEnv() time.Duration {
	seconds := defaultTimeoutSeconds
	if v := strings.TrimSpace(os.Getenv(envTimeout)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			seconds = parsed
		}
	}
	return time.Duration(seconds) * time.Second
}
