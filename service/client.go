package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"StoryToVideo-workspace/models"
)

const (
	DefaultBaseURL = "http://localhost:8000/api"
	maxErrorBody   = 2000
)

// TransportError 网络失败或后端返回非 2xx 状态。StatusCode 为 0 表示请求没有拿到响应
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: http %d", e.Op, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client 生成后端的 HTTP 客户端。所有请求只发一次，不重试
type Client struct {
	baseURL    string
	mediaHost  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option 客户端可选配置
type Option func(*Client)

// WithHTTPClient 替换默认的 http.Client，nil 时忽略
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout 单次请求的整体超时，0 表示不限制
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithMediaHost 覆盖拼接媒体地址用的 host
func WithMediaHost(host string) Option {
	return func(c *Client) {
		host = strings.TrimRight(strings.TrimSpace(host), "/")
		if host != "" {
			c.mediaHost = host
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		mediaHost:  originOf(baseURL),
		httpClient: &http.Client{},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// MediaURL 将后端返回的相对 file_url 拼成可访问地址
func (c *Client) MediaURL(fileURL string) string {
	fileURL = strings.TrimSpace(fileURL)
	if fileURL == "" {
		return ""
	}
	if strings.HasPrefix(fileURL, "http://") || strings.HasPrefix(fileURL, "https://") {
		return fileURL
	}
	if !strings.HasPrefix(fileURL, "/") {
		fileURL = "/" + fileURL
	}
	return c.mediaHost + fileURL
}

// UploadProject POST /upload-json，multipart 字段名为 file
func (c *Client) UploadProject(ctx context.Context, filename string, content io.Reader) (*models.ProjectData, error) {
	const op = "upload-json"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("build form: %w", err)}
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read upload: %w", err)}
	}
	if err := mw.Close(); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("build form: %w", err)}
	}

	data, err := c.do(ctx, op, "/upload-json", mw.FormDataContentType(), &body)
	if err != nil {
		return nil, err
	}
	return models.ParseProject(data)
}

// GenerateImage POST /generate-image
func (c *Client) GenerateImage(ctx context.Context, req models.ImageRequest) (*models.GeneratedFile, error) {
	return c.generate(ctx, "generate-image", "/generate-image", req)
}

// GenerateVideo POST /generate-video
func (c *Client) GenerateVideo(ctx context.Context, req models.VideoRequest) (*models.GeneratedFile, error) {
	return c.generate(ctx, "generate-video", "/generate-video", req)
}

func (c *Client) generate(ctx context.Context, op, path string, payload any) (*models.GeneratedFile, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}
	data, err := c.do(ctx, op, path, "application/json", bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	var file models.GeneratedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &file, nil
}

func (c *Client) do(ctx context.Context, op, path, contentType string, body io.Reader) ([]byte, error) {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("build url: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("backend request", slog.String("op", op), slog.String("url", endpoint))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := strings.TrimSpace(string(data))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody] + "..."
		}
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Body: text}
	}
	return data, nil
}
