package stdout

import (
	"fmt"
	"io"
	"os"

	"proxyscraper/internal/model"
	"proxyscraper/internal/publishers"
)

type Publisher struct {
	out io.Writer
}

func (p *Publisher) Publish(records []model.Proxy, config map[string]interface{}) error {
	payload, err := publishers.GenerateSubscriptionPayload(records, config)
	if err != nil {
		return err
	}

	w := p.out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, "========== PUBLISHED SUBSCRIPTION ==========")
	fmt.Fprintln(w, payload)
	fmt.Fprintln(w, "============================================")
	return nil
}

func init() {
	publishers.Register("stdout", func() publishers.Publisher { return &Publisher{} })
}
