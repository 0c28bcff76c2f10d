// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package client provides a synchronous OpenViking HTTP client SDK,
// mirroring pkg/server's routes one-to-one — VikingFS read/write,
// relations, find/search, and ingestion.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/openviking/openviking/pkg/retrieval"
	"github.com/openviking/openviking/pkg/vikingfs"
)

// Client is a synchronous client for the OpenViking HTTP surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a client option.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// NewClient creates a new OpenViking client against baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Ls lists a directory's immediate children.
func (c *Client) Ls(ctx context.Context, uri string) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	err := c.doJSON(ctx, "GET", "/api/v1/fs/ls?uri="+url.QueryEscape(uri), nil, &out)
	return out, err
}

// Read returns a leaf URI's content.
func (c *Client) Read(ctx context.Context, uri string) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	err := c.doJSON(ctx, "GET", "/api/v1/fs/read?uri="+url.QueryEscape(uri), nil, &out)
	return out.Content, err
}

// Write writes bytes to a leaf URI.
func (c *Client) Write(ctx context.Context, uri, content string) error {
	return c.doJSON(ctx, "POST", "/api/v1/fs/write", map[string]string{"uri": uri, "content": content}, nil)
}

// Mkdir creates a directory URI, idempotently.
func (c *Client) Mkdir(ctx context.Context, uri string) error {
	return c.doJSON(ctx, "POST", "/api/v1/fs/mkdir", map[string]string{"uri": uri}, nil)
}

// Rm removes a URI, recursively if requested.
func (c *Client) Rm(ctx context.Context, uri string, recursive bool) error {
	path := fmt.Sprintf("/api/v1/fs/rm?uri=%s&recursive=%v", url.QueryEscape(uri), recursive)
	return c.doJSON(ctx, "DELETE", path, nil, nil)
}

// Mv renames a URI prefix.
func (c *Client) Mv(ctx context.Context, src, dst string) error {
	return c.doJSON(ctx, "POST", "/api/v1/fs/mv", map[string]string{"src": src, "dst": dst}, nil)
}

// Abstract returns a directory's L0 abstract.
func (c *Client) Abstract(ctx context.Context, uri string) (string, error) {
	var out struct {
		Abstract string `json:"abstract"`
	}
	err := c.doJSON(ctx, "GET", "/api/v1/fs/abstract?uri="+url.QueryEscape(uri), nil, &out)
	return out.Abstract, err
}

// Overview returns a directory's L1 overview.
func (c *Client) Overview(ctx context.Context, uri string) (string, error) {
	var out struct {
		Overview string `json:"overview"`
	}
	err := c.doJSON(ctx, "GET", "/api/v1/fs/overview?uri="+url.QueryEscape(uri), nil, &out)
	return out.Overview, err
}

// Relations returns a URI's ordered relation list.
func (c *Client) Relations(ctx context.Context, uri string) ([]vikingfs.Relation, error) {
	var out []vikingfs.Relation
	err := c.doJSON(ctx, "GET", "/api/v1/relations?uri="+url.QueryEscape(uri), nil, &out)
	return out, err
}

// Link merges relations into from's .relations.json.
func (c *Client) Link(ctx context.Context, from string, to []string, reason string) error {
	return c.doJSON(ctx, "POST", "/api/v1/relations", map[string]interface{}{
		"from": from, "to": to, "reason": reason,
	}, nil)
}

// Find runs a single typed-query retrieval.
func (c *Client) Find(ctx context.Context, query string, contextType retrieval.ContextType, targetURI string) (*retrieval.QueryResult, error) {
	path := fmt.Sprintf("/api/v1/find?query=%s&context_type=%s&target_uri=%s",
		url.QueryEscape(query), url.QueryEscape(string(contextType)), url.QueryEscape(targetURI))
	var out retrieval.QueryResult
	err := c.doJSON(ctx, "GET", path, nil, &out)
	return &out, err
}

// Search runs intent analysis plus multi-query retrieval.
func (c *Client) Search(ctx context.Context, query, sessionSummary string, lastMessages []string) (*retrieval.FindResult, error) {
	var out retrieval.FindResult
	err := c.doJSON(ctx, "POST", "/api/v1/search", map[string]interface{}{
		"query": query, "session_summary": sessionSummary, "last_messages": lastMessages,
	}, &out)
	return &out, err
}

// AddResource ingests a raw document under viking://resources/.
func (c *Client) AddResource(ctx context.Context, name, content, reason string) (string, error) {
	var out struct {
		URI string `json:"uri"`
	}
	err := c.doJSON(ctx, "POST", "/api/v1/resources", map[string]string{
		"name": name, "content": content, "reason": reason,
	}, &out)
	return out.URI, err
}

// AddSkill writes a skill directly under viking://agent/skills/{name}/.
func (c *Client) AddSkill(ctx context.Context, name, content string) (string, error) {
	var out struct {
		URI string `json:"uri"`
	}
	err := c.doJSON(ctx, "POST", "/api/v1/skills", map[string]string{
		"name": name, "content": content,
	}, &out)
	return out.URI, err
}

// doJSON performs an HTTP request with a JSON body (if non-nil) and
// decodes a JSON response into out (if non-nil and the response has a
// body worth decoding).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return fmt.Errorf("openviking: %s (status %d)", errBody.Error, resp.StatusCode)
		}
		return fmt.Errorf("openviking: request failed with status %d", resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
