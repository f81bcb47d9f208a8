package file

import (
	"context"
	"fmt"
	"os"

	"proxyscraper/internal/collectors"
	"proxyscraper/internal/logger"
)

// FileCollector reads local dumps (saved pages, exported chats). Each file is
// one document.
type FileCollector struct{}

func (c *FileCollector) Collect(ctx context.Context, config map[string]interface{}) ([]string, error) {
	paths := collectors.Strings(config, "paths")
	if p := collectors.String(config, "path"); p != "" {
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("missing 'path' or 'paths' in collector config")
	}

	docs := make([]string, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		logger.Log.Debugf("Read %d bytes from %s", len(data), p)

		text := string(data)
		if decoded, ok := collectors.DecodeSubscription(text); ok {
			text = decoded
		}
		docs = append(docs, text)
	}
	return docs, nil
}

func init() {
	collectors.Register("file", func() collectors.Collector {
		return &FileCollector{}
	})
}
