package component

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrUnparseable means no file map could be recovered from the oracle's
// response by any strategy.
var ErrUnparseable = errors.New("component: unparseable oracle response")

var fencedBlockRe = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9]*)?\\s*(?://|#|--)?\\s*([\\w./-]+\\.[\\w]+)\\n(.*?)```")

// ParseFileMap recovers a path->content map from an oracle response.
// Strategies, in order: direct unmarshal; unmarshal of the first '{' to the
// last '}' substring (strips markdown fences and prose); fenced code blocks
// whose first line names a file.
func ParseFileMap(raw json.RawMessage) (map[string]string, error) {
	text := string(raw)

	var files map[string]string
	if err := json.Unmarshal(raw, &files); err == nil && len(files) > 0 {
		return files, nil
	}

	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &files); err == nil && len(files) > 0 {
			return files, nil
		}
	}

	if files = extractFileBlocks(text); len(files) > 0 {
		return files, nil
	}
	return nil, ErrUnparseable
}

// extractFileBlocks pulls files out of markdown-style fenced blocks where
// the opening line carries a file path comment.
func extractFileBlocks(text string) map[string]string {
	matches := fencedBlockRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	files := make(map[string]string, len(matches))
	for _, m := range matches {
		path := strings.TrimSpace(m[1])
		content := strings.TrimSpace(m[2])
		if path == "" || content == "" {
			continue
		}
		files[path] = content + "\n"
	}
	return files
}

// MergeFiles overlays refined files onto the current set. Refined content
// replaces same-path files; new paths are added; untouched files survive.
func MergeFiles(current, refined map[string]string) map[string]string {
	out := make(map[string]string, len(current)+len(refined))
	for p, c := range current {
		out[p] = c
	}
	for p, c := range refined {
		out[p] = c
	}
	return out
}
