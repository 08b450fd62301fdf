package network

import (
	"context"
	"io"
	"net/http"
	"strings"

	"tlog.app/go/errors"
)

const UserAgent = "AtLang/0.0.1"

// Client performs the outbound requests of a program.
// It waits for the response as long as it takes.
type Client struct {
	HTTP *http.Client
}

func NewClient() *Client {
	return &Client{HTTP: &http.Client{}}
}

// Get returns the body of a GET request to url.
func (c *Client) Get(ctx context.Context, url string) (string, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

// Post sends body to url and returns the response body.
func (c *Client) Post(ctx context.Context, url, body string) (string, error) {
	return c.do(ctx, http.MethodPost, url, strings.NewReader(body))
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return "", errors.Wrap(err, "new request")
	}

	req.Header.Set("User-Agent", UserAgent)

	if body != nil {
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}

	resp, err := hc.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "%v %v", method, url)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.New("%v %v: %v", method, url, resp.Status)
	}

	return string(data), nil
}
