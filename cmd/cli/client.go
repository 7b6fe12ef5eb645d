package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/bucketlist/internal/convert"
)

// apiError is a non-2xx answer from the server.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// client is a thin typed wrapper over the REST API.
type client struct {
	base  string
	hc    *http.Client
	token string
}

func newClient(base string) *client {
	return &client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 15 * time.Second},
	}
}

// do sends in as JSON (when non-nil) and decodes the response into out (when non-nil).
func (c *client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		// token in the username slot, password ignored by the server
		req.SetBasicAuth(c.token, "")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e convert.Error
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ---- auth ----

func (c *client) Register(ctx context.Context, username, password string) (convert.Token, error) {
	var tok convert.Token
	err := c.do(ctx, http.MethodPost, "/auth/register", convert.Credentials{Username: username, Password: password}, &tok)
	return tok, err
}

func (c *client) Login(ctx context.Context, username, password string) (convert.Token, error) {
	var tok convert.Token
	err := c.do(ctx, http.MethodPost, "/auth/login", convert.Credentials{Username: username, Password: password}, &tok)
	return tok, err
}

// ---- bucketlists ----

func (c *client) ListBucketlists(ctx context.Context, q string, page, limit int) (convert.BucketlistPage, error) {
	v := url.Values{}
	if q != "" {
		v.Set("q", q)
	}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	path := "/bucketlists"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var p convert.BucketlistPage
	err := c.do(ctx, http.MethodGet, path, nil, &p)
	return p, err
}

func (c *client) CreateBucketlist(ctx context.Context, name string, public bool) (convert.Bucketlist, error) {
	var b convert.Bucketlist
	err := c.do(ctx, http.MethodPost, "/bucketlists", convert.BucketlistInput{Name: &name, IsPublic: &public}, &b)
	return b, err
}

func (c *client) GetBucketlist(ctx context.Context, id int64) (convert.Bucketlist, error) {
	var b convert.Bucketlist
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/bucketlists/%d", id), nil, &b)
	return b, err
}

func (c *client) UpdateBucketlist(ctx context.Context, id int64, name *string, public *bool) (convert.Bucketlist, error) {
	var b convert.Bucketlist
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/bucketlists/%d", id), convert.BucketlistInput{Name: name, IsPublic: public}, &b)
	return b, err
}

func (c *client) DeleteBucketlist(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/bucketlists/%d", id), nil, nil)
}

// ---- items ----

func (c *client) ListItems(ctx context.Context, id int64) ([]convert.Item, error) {
	var out struct {
		Items []convert.Item `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/bucketlists/%d/items", id), nil, &out)
	return out.Items, err
}

func (c *client) AddItem(ctx context.Context, id int64, name string) (convert.Item, error) {
	var it convert.Item
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/bucketlists/%d/items", id), convert.ItemInput{Name: &name}, &it)
	return it, err
}

func (c *client) UpdateItem(ctx context.Context, id, itemID int64, name *string, done *bool) (convert.Item, error) {
	var it convert.Item
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/bucketlists/%d/items/%d", id, itemID), convert.ItemInput{Name: name, Done: done}, &it)
	return it, err
}

func (c *client) DeleteItem(ctx context.Context, id, itemID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/bucketlists/%d/items/%d", id, itemID), nil, nil)
}
