package github

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"proxyscraper/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var records = []model.Proxy{{URI: "ss://Zm9vOmJhcg==@h:2"}}

func TestPublishUpdatesExistingFile(t *testing.T) {
	var put githubFileRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/me/subs/contents/out/sub.txt", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "main", r.URL.Query().Get("ref"))
			json.NewEncoder(w).Encode(githubFileResponse{Sha: "abc123"})
		case http.MethodPut:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&put))
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	err := (&Publisher{}).Publish(records, map[string]interface{}{
		"api_url": srv.URL,
		"token":   "tok",
		"owner":   "me",
		"repo":    "subs",
		"path":    "/out/sub.txt",
		"branch":  "main",
	})
	require.NoError(t, err)

	assert.Equal(t, "abc123", put.Sha)
	assert.Equal(t, "main", put.Branch)
	content, err := base64.StdEncoding.DecodeString(put.Content)
	require.NoError(t, err)
	assert.Equal(t, "ss://Zm9vOmJhcg==@h:2", string(content))
}

func TestPublishRetriesAndCreates(t *testing.T) {
	var gets, puts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if gets.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			puts.Add(1)
			var body githubFileRequest
			json.NewDecoder(r.Body).Decode(&body)
			assert.Empty(t, body.Sha)
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer srv.Close()

	p := &Publisher{retryDelay: time.Millisecond}
	err := p.Publish(records, map[string]interface{}{
		"api_url": srv.URL, "token": "t", "owner": "o", "repo": "r", "path": "p", "retries": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), gets.Load())
	assert.Equal(t, int32(1), puts.Load())
}

func TestPublishFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	p := &Publisher{retryDelay: time.Millisecond}
	err := p.Publish(records, map[string]interface{}{
		"api_url": srv.URL, "token": "t", "owner": "o", "repo": "r", "path": "p",
	})
	assert.ErrorContains(t, err, "403")

	err = p.Publish(records, map[string]interface{}{"token": "t"})
	assert.ErrorContains(t, err, "requires")
}

func TestPublishDoesNotRetryClientErrors(t *testing.T) {
	var puts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if puts.Add(1) == 1 {
			w.WriteHeader(http.StatusConflict)
			return
		}
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := &Publisher{retryDelay: time.Millisecond}
	err := p.Publish(records, map[string]interface{}{
		"api_url": srv.URL, "token": "t", "owner": "o", "repo": "r", "path": "p", "retries": 5,
	})
	assert.ErrorContains(t, err, "401")
	assert.Equal(t, int32(2), puts.Load())
}
