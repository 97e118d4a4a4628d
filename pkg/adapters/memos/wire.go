package memos

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/aretw0/memosync/pkg/core"
)

type wireMemo struct {
	Name        string         `json:"name"`
	Content     string         `json:"content"`
	Visibility  string         `json:"visibility"`
	CreateTime  time.Time      `json:"createTime"`
	UpdateTime  time.Time      `json:"updateTime"`
	Pinned      bool           `json:"pinned"`
	Resources   []wireResource `json:"resources"`
	Attachments []wireResource `json:"attachments"`
}

type wireResource struct {
	Name     string   `json:"name"`
	Filename string   `json:"filename"`
	Type     string   `json:"type"`
	Size     flexSize `json:"size"`
}

// flexSize accepts int64 values encoded either as numbers or as strings (protobuf JSON).
type flexSize int64

func (s *flexSize) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*s = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*s = flexSize(n)
	return nil
}

var _ json.Unmarshaler = (*flexSize)(nil)

func (w wireMemo) toCore() core.Memo {
	resources := w.Resources
	if len(resources) == 0 {
		resources = w.Attachments
	}

	m := core.Memo{
		Name:       w.Name,
		Content:    w.Content,
		Visibility: core.Visibility(w.Visibility),
		CreateTime: w.CreateTime,
		UpdateTime: w.UpdateTime,
		Pinned:     w.Pinned,
	}
	if m.UpdateTime.IsZero() {
		m.UpdateTime = m.CreateTime
	}
	for _, r := range resources {
		m.Resources = append(m.Resources, core.Resource{
			Name:     r.Name,
			Filename: r.Filename,
			Type:     r.Type,
			Size:     int64(r.Size),
		})
	}
	return m
}
