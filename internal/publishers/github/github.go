package github

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"proxyscraper/internal/logger"
	"proxyscraper/internal/model"
	"proxyscraper/internal/publishers"

	"github.com/cenkalti/backoff/v4"
)

// Publisher commits the subscription to a repository through the contents
// API, creating the file or updating it in place.
type Publisher struct {
	// retryDelay is the pause between attempts; zero means one second.
	retryDelay time.Duration
}

type githubFileRequest struct {
	Message string `json:"message"`
	Content string `json:"content"` // Base64 encoded content
	Sha     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type githubFileResponse struct {
	Sha string `json:"sha"`
}

type target struct {
	apiURL  string
	token   string
	branch  string
	message string
	retries int
}

func parseTarget(config map[string]interface{}) (target, error) {
	token, _ := config["token"].(string)
	owner, _ := config["owner"].(string)
	repo, _ := config["repo"].(string)
	path, _ := config["path"].(string)
	if token == "" || owner == "" || repo == "" || path == "" {
		return target{}, fmt.Errorf("github publisher requires token, owner, repo, and path")
	}

	apiBase, _ := config["api_url"].(string)
	if apiBase == "" {
		apiBase = "https://api.github.com"
	}

	t := target{
		apiURL: fmt.Sprintf("%s/repos/%s/%s/contents/%s",
			strings.TrimRight(apiBase, "/"), owner, repo, strings.TrimPrefix(path, "/")),
		token: token,
	}
	t.branch, _ = config["branch"].(string)
	t.message, _ = config["message"].(string)
	if t.message == "" {
		t.message = "Update proxy subscription"
	}
	t.retries, _ = config["retries"].(int)
	return t, nil
}

func newClient(config map[string]interface{}) *http.Client {
	timeout := 30 * time.Second
	if secs, ok := config["timeout"].(int); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	client := &http.Client{Timeout: timeout}

	if proxyStr, _ := config["_proxy_url"].(string); proxyStr != "" {
		if u, err := url.Parse(proxyStr); err == nil {
			client.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
			logger.Log.Debugf("GitHub Publisher using proxy: %s", proxyStr)
		}
	}
	return client
}

func (p *Publisher) Publish(records []model.Proxy, config map[string]interface{}) error {
	payload, err := publishers.GenerateSubscriptionPayload(records, config)
	if err != nil {
		return err
	}
	t, err := parseTarget(config)
	if err != nil {
		return err
	}
	client := newClient(config)

	sha, err := p.currentSHA(client, t)
	if err != nil {
		return err
	}

	body, err := json.Marshal(githubFileRequest{
		Message: t.message,
		Content: base64.StdEncoding.EncodeToString([]byte(payload)),
		Sha:     sha,
		Branch:  t.branch,
	})
	if err != nil {
		return err
	}

	err = p.retry(t.retries, "upload", func() error {
		req, err := t.newRequest(http.MethodPut, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("status %d: %s", resp.StatusCode, string(msg))
			if permanentStatus(resp.StatusCode) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("github upload failed after retries: %w", err)
	}
	return nil
}

// currentSHA returns the blob SHA of the existing file, or "" when the file
// does not exist yet.
func (p *Publisher) currentSHA(client *http.Client, t target) (string, error) {
	var sha string
	err := p.retry(t.retries, "fetch file info", func() error {
		req, err := t.newRequest(http.MethodGet, nil)
		if err != nil {
			return err
		}
		if t.branch != "" {
			q := req.URL.Query()
			q.Add("ref", t.branch)
			req.URL.RawQuery = q.Encode()
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			var existing githubFileResponse
			if err := json.NewDecoder(resp.Body).Decode(&existing); err != nil {
				return fmt.Errorf("failed to parse github response: %w", err)
			}
			sha = existing.Sha
			logger.Log.Debugf("GitHub: File exists (SHA: %s), updating...", sha)
			return nil
		case http.StatusNotFound:
			logger.Log.Debugf("GitHub: File not found, creating new...")
			return nil
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	})
	if err != nil {
		return "", fmt.Errorf("github fetch failed after retries: %w", err)
	}
	return sha, nil
}

func (t target) newRequest(method string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, t.apiURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	return req, nil
}

// permanentStatus reports client errors that another attempt cannot fix.
// Conflicts and rate limits are retried.
func permanentStatus(code int) bool {
	if code == http.StatusConflict || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}

func (p *Publisher) retry(retries int, what string, fn func() error) error {
	delay := p.retryDelay
	if delay == 0 {
		delay = time.Second
	}
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(retries))

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		logger.Log.Debugf("GitHub: %s (Attempt %d/%d)", what, attempt, retries+1)
		return fn()
	}, policy)
}

func init() {
	publishers.Register("github", func() publishers.Publisher { return &Publisher{} })
}
