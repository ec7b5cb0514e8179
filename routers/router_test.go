package routers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"StoryToVideo-workspace/logging"
	"StoryToVideo-workspace/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const scenarioProject = `{
  "project": "P",
  "scenes": [{
    "scene_id": "S1",
    "shots": [{"shot_id": "T1", "veo_3_1_prompt": "x"}]
  }]
}`

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeBackend struct {
	*httptest.Server
	fail        atomic.Bool
	videoCalls  atomic.Int32
	uploadCalls atomic.Int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload-json", func(w http.ResponseWriter, r *http.Request) {
		b.uploadCalls.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, scenarioProject)
	})
	mux.HandleFunc("POST /api/generate-video", func(w http.ResponseWriter, r *http.Request) {
		b.videoCalls.Add(1)
		if b.fail.Load() {
			http.Error(w, `{"detail":"veo quota exceeded"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"file_url":"/files/v1.mp4"}`)
	})
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func newTestRouter(t *testing.T) (*gin.Engine, *service.Workspace, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend(t)
	client := service.NewClient(backend.URL + "/api")
	ws := service.NewWorkspace(client, service.WorkspaceOptions{MaxUploadBytes: 1 << 20})
	return InitRouter(ws, logging.Discard(), nil), ws, backend
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = io.WriteString(part, content)
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	return serve(r, httptest.NewRequest(http.MethodGet, path, nil))
}

func post(r http.Handler, path string) *httptest.ResponseRecorder {
	return serve(r, httptest.NewRequest(http.MethodPost, path, nil))
}

func mustUpload(t *testing.T, r http.Handler) {
	t.Helper()
	w := serve(r, uploadRequest(t, "project.json", scenarioProject))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("upload: expected 303, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSingleShotVideoScenario(t *testing.T) {
	r, ws, backend := newTestRouter(t)

	w := get(r, "/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Upload Project JSON") {
		t.Fatalf("expected empty workspace page, got %d", w.Code)
	}

	mustUpload(t, r)
	page := get(r, "/").Body.String()
	if strings.Count(page, `action="/shots/S1/T1/video"`) != 1 {
		t.Fatalf("expected one video control:\n%s", page)
	}
	if strings.Contains(page, "Keyframes") {
		t.Fatal("did not expect keyframe controls")
	}

	w = post(r, "/api/tasks/S1/T1/video")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	ws.Wait()

	var update service.Update
	if err := json.Unmarshal(get(r, "/api/tasks").Body.Bytes(), &update); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(update.Tasks) != 1 || update.Tasks[0].ID != "S1-T1-video" || update.Tasks[0].Status != "completed" || update.Tasks[0].FileURL != "/files/v1.mp4" {
		t.Fatalf("unexpected tasks %+v", update.Tasks)
	}

	page = get(r, "/").Body.String()
	if !strings.Contains(page, `<video src="`+backend.URL+`/files/v1.mp4" controls>`) {
		t.Fatalf("expected inline video:\n%s", page)
	}

	if w := post(r, "/api/tasks/S1/T1/video"); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for completed task, got %d", w.Code)
	}
	if got := backend.videoCalls.Load(); got != 1 {
		t.Fatalf("expected 1 backend call, got %d", got)
	}
}

func TestRetryAfterFailure(t *testing.T) {
	r, ws, backend := newTestRouter(t)
	mustUpload(t, r)
	backend.fail.Store(true)

	if w := post(r, "/shots/S1/T1/video"); w.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", w.Code)
	}
	ws.Wait()
	page := get(r, "/").Body.String()
	if !strings.Contains(page, "Retry") || !strings.Contains(page, `action="/shots/S1/T1/video"`) {
		t.Fatalf("expected retry control:\n%s", page)
	}

	backend.fail.Store(false)
	if w := post(r, "/shots/S1/T1/video"); w.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", w.Code)
	}
	ws.Wait()
	if got := backend.videoCalls.Load(); got != 2 {
		t.Fatalf("expected retry to call backend again, got %d calls", got)
	}
	status, _ := ws.Session().Tracker.Snapshot().Status("S1-T1-video")
	if status != "completed" {
		t.Fatalf("expected completed after retry, got %q", status)
	}
}

func TestDispatchErrors(t *testing.T) {
	r, _, _ := newTestRouter(t)
	if w := post(r, "/api/tasks/S1/T1/video"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without project, got %d", w.Code)
	}
	mustUpload(t, r)

	tests := []struct {
		path   string
		status int
	}{
		{path: "/api/tasks/S1/T9/video", status: http.StatusNotFound},
		{path: "/api/tasks/S9/T1/video", status: http.StatusNotFound},
		{path: "/api/tasks/S1/T1/start", status: http.StatusNotFound},
		{path: "/api/tasks/S1/T1/audio", status: http.StatusBadRequest},
	}
	for _, tc := range tests {
		if w := post(r, tc.path); w.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.path, tc.status, w.Code)
		}
	}
}

func TestUploadFailures(t *testing.T) {
	r, ws, backend := newTestRouter(t)

	w := serve(r, uploadRequest(t, "notes.txt", scenarioProject))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `role="alert"`) || !strings.Contains(w.Body.String(), "Failed to upload JSON file") {
		t.Fatal("expected upload alert")
	}
	if backend.uploadCalls.Load() != 0 {
		t.Fatal("non-JSON file must not reach the backend")
	}
	if ws.Session() != nil {
		t.Fatal("failed upload must not create a session")
	}

	backend.Close()
	if w := serve(r, uploadRequest(t, "project.json", scenarioProject)); w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 when backend is down, got %d", w.Code)
	}
}

func TestHealthzAndRequestID(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := get(r, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	if got := serve(r, req).Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	r, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := serve(r, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("expected CORS allow origin header")
	}
}

func TestTaskWebSocketPushesTransitions(t *testing.T) {
	r, ws, _ := newTestRouter(t)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/tasks/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readUntil := func(match func(service.Update) bool) service.Update {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			var u service.Update
			if err := conn.ReadJSON(&u); err != nil {
				t.Fatalf("read: %v", err)
			}
			if match(u) {
				return u
			}
		}
	}

	first := readUntil(func(service.Update) bool { return true })
	if first.SessionID != "" {
		t.Fatalf("expected empty initial snapshot, got %+v", first)
	}

	mustUpload(t, r)
	loaded := readUntil(func(u service.Update) bool { return u.SessionID != "" })
	if loaded.Project != "P" {
		t.Fatalf("unexpected project in update %+v", loaded)
	}

	if w := post(r, "/api/tasks/S1/T1/video"); w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	done := readUntil(func(u service.Update) bool {
		return len(u.Tasks) == 1 && u.Tasks[0].Status == "completed"
	})
	if done.Tasks[0].FileURL != "/files/v1.mp4" {
		t.Fatalf("unexpected completed task %+v", done.Tasks[0])
	}
	ws.Wait()
}
