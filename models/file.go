package models

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	FileTypeImage = "image"
	FileTypeVideo = "video"
)

// GeneratedFile 后端返回的生成结果，这里只关心 FileURL
type GeneratedFile struct {
	FileID    string    `json:"file_id"`
	ShotID    string    `json:"shot_id"`
	FileType  string    `json:"file_type"`
	FilePath  string    `json:"file_path"`
	FileURL   string    `json:"file_url,omitempty"`
	FileName  string    `json:"file_name"`
	CreatedAt Timestamp `json:"created_at"`
	FileSize  int64     `json:"file_size"`
}

// Timestamp 兼容带/不带时区的时间格式（后端返回的 datetime 没有时区）
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if tm, err := time.Parse(layout, s); err == nil {
			t.Time = tm
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}
