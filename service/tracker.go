package service

import (
	"errors"
	"maps"
	"slices"
	"sync"

	"StoryToVideo-workspace/models"
)

var (
	ErrTaskInFlight  = errors.New("task is already generating")
	ErrTaskCompleted = errors.New("task has already completed")
)

// Snapshot 某一时刻的任务状态，创建后不再修改
type Snapshot struct {
	version  uint64
	statuses map[models.TaskID]models.TaskStatus
	urls     map[models.TaskID]string
}

func (s Snapshot) Version() uint64 {
	return s.version
}

// Status 没有记录时返回 false（尚未开始）
func (s Snapshot) Status(id models.TaskID) (models.TaskStatus, bool) {
	status, ok := s.statuses[id]
	return status, ok
}

func (s Snapshot) URL(id models.TaskID) string {
	return s.urls[id]
}

func (s Snapshot) Len() int {
	return len(s.statuses)
}

// TaskView JSON 视图
type TaskView struct {
	ID      models.TaskID     `json:"id"`
	Status  models.TaskStatus `json:"status"`
	FileURL string            `json:"file_url,omitempty"`
}

// Tasks 按 TaskID 排序
func (s Snapshot) Tasks() []TaskView {
	ids := slices.Sorted(maps.Keys(s.statuses))
	out := make([]TaskView, 0, len(ids))
	for _, id := range ids {
		out = append(out, TaskView{ID: id, Status: s.statuses[id], FileURL: s.urls[id]})
	}
	return out
}

// Tracker 维护 TaskID -> 状态 和 TaskID -> 文件地址 两张表。
// 每次变更都整体替换成带有单个改动的新快照，读者不会看到更新到一半的表。
type Tracker struct {
	mu     sync.Mutex
	snap   Snapshot
	notify func(Snapshot)
}

// NewTracker notify 在每次状态变更后被调用（持有锁，必须不阻塞）
func NewTracker(notify func(Snapshot)) *Tracker {
	return &Tracker{
		snap: Snapshot{
			statuses: map[models.TaskID]models.TaskStatus{},
			urls:     map[models.TaskID]string{},
		},
		notify: notify,
	}
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Begin 标记为 generating。只有未开始或 failed 的任务可以开始
func (t *Tracker) Begin(id models.TaskID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.snap.statuses[id] {
	case models.TaskStatusGenerating:
		return ErrTaskInFlight
	case models.TaskStatusCompleted:
		return ErrTaskCompleted
	}
	t.replace(id, models.TaskStatusGenerating, "")
	return nil
}

// Complete 标记为 completed；fileURL 非空时同时覆盖之前的地址
func (t *Tracker) Complete(id models.TaskID, fileURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replace(id, models.TaskStatusCompleted, fileURL)
}

// Fail 标记为 failed，不保留错误信息
func (t *Tracker) Fail(id models.TaskID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replace(id, models.TaskStatusFailed, "")
}

func (t *Tracker) replace(id models.TaskID, status models.TaskStatus, fileURL string) {
	next := Snapshot{
		version:  t.snap.version + 1,
		statuses: maps.Clone(t.snap.statuses),
		urls:     t.snap.urls,
	}
	next.statuses[id] = status
	if fileURL != "" {
		next.urls = maps.Clone(t.snap.urls)
		next.urls[id] = fileURL
	}
	t.snap = next
	if t.notify != nil {
		t.notify(next)
	}
}
