package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/ManouchehrRasoulli/hotserve/internal"
	"github.com/ManouchehrRasoulli/hotserve/pkg/protocol"
	"github.com/rs/zerolog"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

type Option func(c *Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.hc = hc
	}
}

func WithLogger(lg zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = lg
	}
}

// Client talks to the hot endpoints of a running server.
type Client struct {
	address  string
	hc       *http.Client
	logger   zerolog.Logger
	exit     chan struct{}
	exitOnce sync.Once
}

// NewClient returns a client for the server at address, a base URL such
// as http://127.0.0.1:8080.
func NewClient(address string, options ...Option) *Client {
	c := Client{
		address: strings.TrimSuffix(address, "/"),
		hc:      http.DefaultClient,
		logger:  zerolog.Nop(),
		exit:    make(chan struct{}),
	}
	for _, op := range options {
		op(&c)
	}
	return &c
}

// Exit stops a running Run call.
func (c *Client) Exit() error {
	c.exitOnce.Do(func() {
		close(c.exit)
	})
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	target := c.address + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		defer res.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, res.Status, strings.TrimSpace(string(body)))
	}
	return res, nil
}

// Run subscribes to change notifications and calls hook for each event
// until ctx is done, Exit is called or the server closes the stream. It
// returns nil in the first two cases.
func (c *Client) Run(ctx context.Context, hook func(e internal.WatchEvent)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.exit:
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := c.get(ctx, protocol.NotifyPath, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer res.Body.Close()

	c.logger.Info().Str("address", c.address).Msg("client :: subscribed")

	r := bufio.NewReader(res.Body)
	for {
		e, err := protocol.ReadNotify(r)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn().Err(err).Msg("client :: notify stream ended")
			return err
		}
		c.logger.Debug().Str("kind", string(e.Kind)).Str("path", e.Path).Msg("client :: change")
		hook(e)
	}
}

// Index returns the server's file list.
func (c *Client) Index(ctx context.Context) ([]string, error) {
	res, err := c.get(ctx, protocol.IndexPath, nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	files := make([]string, 0)
	if err = json.NewDecoder(res.Body).Decode(&files); err != nil {
		return nil, err
	}
	return files, nil
}

// Glob fetches every file matching pattern in one request.
func (c *Client) Glob(ctx context.Context, pattern string) ([]protocol.GlobFile, error) {
	res, err := c.get(ctx, protocol.GlobPath, url.Values{protocol.GlobPatternParam: {pattern}})
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	return protocol.SplitGlob(body)
}
