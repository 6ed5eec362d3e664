package report

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/regdiag-cli/internal/utils"
)

// Format is an output encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat accepts markdown/md, json and yaml/yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported report format %q (markdown|json|yaml)", s)
}

// Ext is the file suffix for the format.
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	}
	return ".md"
}

// Document is any view that can render itself as Markdown.
type Document interface {
	Markdown() string
}

// Render encodes doc in the requested format.
func Render(doc Document, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		b, err := utils.PrettyJSON(doc)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case FormatYAML:
		b, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return b, nil
	case FormatMarkdown, "":
		return []byte(doc.Markdown()), nil
	}
	return nil, fmt.Errorf("unsupported report format %q", f)
}

// WriteFile renders doc into dir/base<ext>, adding a __N suffix instead of
// overwriting an existing report. It returns the path written.
func WriteFile(dir, base string, doc Document, f Format) (string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	b, err := Render(doc, f)
	if err != nil {
		return "", err
	}
	path, _ := utils.UniquePath(dir, base, ".report"+f.Ext())
	if err := utils.SafeWriteFile(path, b); err != nil {
		return "", err
	}
	return path, nil
}
