// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package mediaserver implements the client for the local media library
// server (Plex API semantics): library snapshots, GUID resolution and image
// proxying.
package mediaserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/rs/zerolog/log"
)

// ErrNotConfigured signals that no server URL or access token is configured.
var ErrNotConfigured = errors.New("media server is not configured")

const (
	connectTimeout = 6 * time.Second
	requestTimeout = 90 * time.Second

	// A URI that failed to connect is skipped for this long before it is
	// retried, so one dead candidate does not slow every request.
	failureBackoff = 45 * time.Second

	bestURIKey = "best"

	metadataBatchSize = 40
)

// Options configures a media server Client.
type Options struct {
	// URLs are candidate base URLs for the same server, in preference
	// order. The first one that answers wins and is remembered.
	URLs []string

	Token    string
	ClientID string

	// ServerIdentifier is the server's machine identifier, used to build
	// deep links into the hosted web app. Optional.
	ServerIdentifier string
}

// Client talks to one media library server over its candidate connection URIs.
type Client struct {
	urls     []string
	token    string
	clientID string
	serverID string

	httpClient *http.Client

	bestURI    *ttlcache.Cache[string, string]
	failedURIs *ttlcache.Cache[string, time.Time]
}

// NewClient creates a media server client. Missing URLs or token are allowed;
// every request will then fail with ErrNotConfigured.
func NewClient(opts Options) *Client {
	urls := make([]string, 0, len(opts.URLs))
	for _, raw := range opts.URLs {
		u := strings.TrimRight(strings.TrimSpace(raw), "/")
		if u != "" {
			urls = append(urls, u)
		}
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
		// Self-hosted servers frequently sit behind certificates for
		// hostnames that do not match their LAN address.
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	return &Client{
		urls:       urls,
		token:      strings.TrimSpace(opts.Token),
		clientID:   opts.ClientID,
		serverID:   opts.ServerIdentifier,
		httpClient: &http.Client{Timeout: requestTimeout, Transport: transport},
		bestURI:    ttlcache.New(ttlcache.Options[string, string]{}.SetDefaultTTL(30 * time.Minute)),
		failedURIs: ttlcache.New(ttlcache.Options[string, time.Time]{}.SetDefaultTTL(failureBackoff)),
	}
}

func (c *Client) headers(req *http.Request, accept string) {
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Plex-Token", c.token)
	if c.clientID != "" {
		req.Header.Set("X-Plex-Client-Identifier", c.clientID)
	}
}

// candidateURIs returns the configured URLs with the last known good URI
// first and recently failed URIs moved to the back. Nothing is ever dropped;
// when every candidate is backing off they are all still tried.
func (c *Client) candidateURIs() []string {
	ordered := make([]string, 0, len(c.urls)+1)
	deferred := make([]string, 0, len(c.urls))

	seen := make(map[string]struct{}, len(c.urls)+1)
	add := func(uri string, healthy bool) {
		if uri == "" {
			return
		}
		if _, dup := seen[uri]; dup {
			return
		}
		seen[uri] = struct{}{}
		if healthy {
			ordered = append(ordered, uri)
		} else {
			deferred = append(deferred, uri)
		}
	}

	if best, ok := c.bestURI.Get(bestURIKey); ok {
		_, failing := c.failedURIs.Get(best)
		add(best, !failing)
	}
	for _, uri := range c.urls {
		_, failing := c.failedURIs.Get(uri)
		add(uri, !failing)
	}

	return append(ordered, deferred...)
}

func (c *Client) markFailed(uri string) {
	c.failedURIs.Set(uri, time.Now(), ttlcache.DefaultTTL)
	if best, ok := c.bestURI.Get(bestURIKey); ok && best == uri {
		c.bestURI.Delete(bestURIKey)
	}
}

func (c *Client) markHealthy(uri string) {
	c.failedURIs.Delete(uri)
	c.bestURI.Set(bestURIKey, uri, ttlcache.DefaultTTL)
}

// getXML walks the candidate URIs in order and returns the raw body of the
// first successful response. The body is checked to actually be XML because
// captive portals and reverse proxies love answering 200 with HTML.
func (c *Client) getXML(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if len(c.urls) == 0 || c.token == "" {
		return nil, ErrNotConfigured
	}

	query := ""
	if len(params) > 0 {
		query = "?" + params.Encode()
	}

	var lastErr error
	for _, uri := range c.candidateURIs() {
		target := uri + path + query

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
		}
		c.headers(req, "application/xml")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.markFailed(uri)
			lastErr = err
			log.Debug().Err(err).Str("uri", uri).Str("path", path).Msg("media server candidate failed")
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			c.markFailed(uri)
			lastErr = readErr
			continue
		}
		if resp.StatusCode != http.StatusOK {
			c.markFailed(uri)
			lastErr = fmt.Errorf("media server returned status %d for %s", resp.StatusCode, path)
			continue
		}
		if trimmed := strings.TrimSpace(string(body)); !strings.HasPrefix(trimmed, "<") {
			c.markFailed(uri)
			lastErr = fmt.Errorf("unexpected non-XML response from %s", target)
			continue
		}

		c.markHealthy(uri)
		return body, nil
	}

	return nil, fmt.Errorf("all media server connection candidates failed: %w", lastErr)
}

// FetchImage proxies one image from the server. The path must be a
// server-relative resource path. Returns the image bytes and content type.
func (c *Client) FetchImage(ctx context.Context, path string) ([]byte, string, error) {
	if len(c.urls) == 0 || c.token == "" {
		return nil, "", ErrNotConfigured
	}
	if !strings.HasPrefix(path, "/") {
		return nil, "", fmt.Errorf("invalid image path %q", path)
	}

	var lastErr error
	for _, uri := range c.candidateURIs() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+path, nil)
		if err != nil {
			return nil, "", fmt.Errorf("failed to build image request: %w", err)
		}
		c.headers(req, "image/*")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			c.markFailed(uri)
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			c.markFailed(uri)
			lastErr = readErr
			continue
		}
		if resp.StatusCode != http.StatusOK {
			c.markFailed(uri)
			lastErr = fmt.Errorf("media server returned status %d for image", resp.StatusCode)
			continue
		}

		c.markHealthy(uri)

		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(body)
		}
		return body, contentType, nil
	}

	return nil, "", fmt.Errorf("all media server connection candidates failed: %w", lastErr)
}
