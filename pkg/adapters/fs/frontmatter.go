package fs

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/memosync/pkg/core"
)

// Frontmatter is the optional YAML header of a memo document.
type Frontmatter struct {
	MemoID     string    `yaml:"memo_id"`
	Created    time.Time `yaml:"created"`
	Updated    time.Time `yaml:"updated"`
	Tags       []string  `yaml:"tags,omitempty"`
	Visibility string    `yaml:"visibility,omitempty"`
}

func newFrontmatter(m core.Memo, tags []string) Frontmatter {
	return Frontmatter{
		MemoID:     m.Name,
		Created:    m.CreateTime.UTC(),
		Updated:    m.UpdateTime.UTC(),
		Tags:       tags,
		Visibility: string(m.Visibility),
	}
}

// encodeFrontmatter renders fm between "---" delimiters followed by body.
func encodeFrontmatter(fm Frontmatter, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(fm); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("---\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// parseFrontmatter splits a document into its header and body.
// ok is false when the document has no frontmatter.
func parseFrontmatter(data []byte) (fm Frontmatter, body []byte, ok bool, err error) {
	if !bytes.HasPrefix(data, []byte("---\n")) && !bytes.HasPrefix(data, []byte("---\r\n")) {
		return Frontmatter{}, data, false, nil
	}

	rest := data[bytes.IndexByte(data, '\n')+1:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return Frontmatter{}, data, false, errors.New("frontmatter started but no closing delimiter found")
	}

	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return Frontmatter{}, data, false, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	body = rest[end+len("\n---"):]
	body = bytes.TrimPrefix(body, []byte("\r"))
	body = bytes.TrimPrefix(body, []byte("\n"))
	return fm, body, true, nil
}
