// Package stubbackend 本地开发用的生成后端替身，接口与真实后端一致，返回占位图片和视频
package stubbackend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"StoryToVideo-workspace/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const maxUploadMemory = 32 << 20

var errInjected = errors.New("injected failure")

type Options struct {
	Store MediaStore
	// FilesDir 非空时在 /files/ 下提供该目录
	FilesDir string
	FailRate float64
	Latency  time.Duration
	Logger   *slog.Logger
	// Rand 返回 [0,1) 的随机数，测试时可替换
	Rand func() float64
}

type Server struct {
	store    MediaStore
	failRate float64
	latency  time.Duration
	logger   *slog.Logger
	rand     func() float64
	router   *mux.Router
}

func NewServer(opts Options) *Server {
	s := &Server{
		store:    opts.Store,
		failRate: opts.FailRate,
		latency:  opts.Latency,
		logger:   opts.Logger,
		rand:     opts.Rand,
	}
	if s.store == nil {
		s.store = LocalStore{Dir: "output"}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.rand == nil {
		s.rand = rand.Float64
	}

	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/upload-json", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/generate-image", s.handleGenerateImage).Methods(http.MethodPost)
	api.HandleFunc("/generate-video", s.handleGenerateVideo).Methods(http.MethodPost)
	if opts.FilesDir != "" {
		r.PathPrefix("/files/").Handler(http.StripPrefix("/files/", http.FileServer(http.Dir(opts.FilesDir)))).Methods(http.MethodGet, http.MethodHead)
	}
	s.router = r
	return s
}

// Handler 带 CORS 的完整处理器
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(s.router)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the StoryToVideo stub backend"})
}

// POST /api/upload-json
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing form field: file")
		return
	}
	defer file.Close()
	if !strings.EqualFold(filepath.Ext(header.Filename), ".json") {
		writeError(w, http.StatusBadRequest, "Only JSON files are allowed")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
		return
	}
	project, err := models.ParseProject(data)
	if err != nil {
		s.logger.Warn("project rejected", slog.String("file", header.Filename), slog.String("error", err.Error()))
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Error processing file: %v", err))
		return
	}
	ExpandProject(project)
	s.logger.Info("project processed",
		slog.String("file", header.Filename),
		slog.String("project", project.Project),
		slog.Int("shots", project.ShotCount()),
	)
	writeJSON(w, http.StatusOK, project)
}

// POST /api/generate-image
func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req models.ImageRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	frame, ok := models.ParseFrameType(req.FrameType)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid frame_type %q", req.FrameType))
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	data, err := placeholderImage(req.Prompt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	filename := fmt.Sprintf("%s_%s_%s.png", sanitize(req.SceneID), sanitize(req.ShotID), frame)
	s.generate(w, r, req.ProjectName, req.SceneID, req.ShotID, filename, models.FileTypeImage, data)
}

// POST /api/generate-video
func (s *Server) handleGenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req models.VideoRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	filename := fmt.Sprintf("%s_%s_video.mp4", sanitize(req.SceneID), sanitize(req.ShotID))
	s.generate(w, r, req.ProjectName, req.SceneID, req.ShotID, filename, models.FileTypeVideo, placeholderVideo(req.Prompt))
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, project, sceneID, shotID, filename, fileType string, data []byte) {
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-r.Context().Done():
			return
		}
	}
	if s.failRate > 0 && s.rand() < s.failRate {
		s.logger.Warn("generation failed", slog.String("file", filename), slog.String("error", errInjected.Error()))
		writeError(w, http.StatusInternalServerError, errInjected.Error())
		return
	}

	stored, err := s.store.Save(r.Context(), ObjectKey(project, sceneID, shotID, filename), data)
	if err != nil {
		s.logger.Error("save generated file", slog.String("file", filename), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("file generated", slog.String("path", stored.Path), slog.String("type", fileType))
	writeJSON(w, http.StatusOK, models.GeneratedFile{
		FileID:    uuid.NewString(),
		ShotID:    shotID,
		FileType:  fileType,
		FilePath:  stored.Path,
		FileURL:   stored.URL,
		FileName:  filepath.Base(filename),
		CreatedAt: models.Timestamp{Time: time.Now()},
		FileSize:  stored.Size,
	})
}

func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// placeholderImage 16:9 纯色 PNG，颜色由提示词决定
func placeholderImage(prompt string) ([]byte, error) {
	sum := crc32.ChecksumIEEE([]byte(prompt))
	fill := color.RGBA{R: uint8(sum >> 16), G: uint8(sum >> 8), B: uint8(sum), A: 0xff}
	img := image.NewRGBA(image.Rect(0, 0, 160, 90))
	for y := range 90 {
		for x := range 160 {
			img.SetRGBA(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

// placeholderVideo 只有 ftyp 头的 mp4，后面附上提示词方便排查
func placeholderVideo(prompt string) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x00, 0x00, 0x18})
	buf.WriteString("ftypisom")
	buf.Write([]byte{0x00, 0x00, 0x02, 0x00})
	buf.WriteString("isomiso2")
	buf.WriteString(prompt)
	return buf.Bytes()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.logger.Info("stub request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", wrapped.statusCode),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// responseWriter 记录状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// 错误体格式为 {"detail": "..."}
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
