package file

import (
	"fmt"
	"os"
	"path/filepath"

	"proxyscraper/internal/logger"
	"proxyscraper/internal/model"
	"proxyscraper/internal/publishers"
)

// Publisher writes the subscription to params.output, replacing the file
// atomically so readers never see a partial list.
type Publisher struct{}

func (p *Publisher) Publish(records []model.Proxy, config map[string]interface{}) error {
	output, _ := config["output"].(string)
	if output == "" {
		return fmt.Errorf("file publisher requires 'output'")
	}

	payload, err := publishers.GenerateSubscriptionPayload(records, config)
	if err != nil {
		return err
	}

	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(output)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(payload + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return fmt.Errorf("failed to replace %s: %w", output, err)
	}

	logger.Log.Debugf("Wrote subscription to %s", output)
	return nil
}

func init() {
	publishers.Register("file", func() publishers.Publisher { return &Publisher{} })
}
