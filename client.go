package tileview

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"strconv"
	"time"

	// Tile responses are decoded as opaque images; register the formats an
	// image server is likely to emit.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Metadata holds the source image dimensions reported by the image server,
// after any server-side rotation or crop has been applied. It is fetched
// once per viewer lifetime and immutable afterwards.
type Metadata struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TileRequest identifies one tile image to fetch.
type TileRequest struct {
	// Src is the image identifier known to the server.
	Src string

	// Width and Height are the dimensions of the whole grid the tile
	// belongs to, not of the tile itself.
	Width  int
	Height int

	// Tile is the 1-based tile number and Count the grid's total tile
	// count. When Count is 1 the tile parameter is omitted and the server
	// returns the whole image at the requested size.
	Tile  int
	Count int

	// Stats asks the server to record the request in its usage statistics.
	// Only the first (fit level) request of a viewing session sets this, so
	// one zoom session counts as one view.
	Stats bool
}

// ClientOption configures a Client during creation.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client, replacing the default tuned
// transport. Use this to add authentication or custom TLS configuration.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpc = h }
}

// WithCommand sets the image-serving endpoint path, "image" by default.
func WithCommand(command string) ClientOption {
	return func(c *Client) { c.command = command }
}

// Client talks to the image server's HTTP API: one endpoint returning image
// metadata and one returning an image or image tile at a requested size.
// A Client is safe for concurrent use and is typically shared between the
// fetch workers of a viewer.
type Client struct {
	base    string
	command string
	httpc   *http.Client
}

// NewClient creates a Client for the image server at baseURL
// (e.g. "https://images.example.com/v1"). A trailing slash is ignored.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	c := &Client{
		base:    baseURL,
		command: "image",
		httpc: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Metadata fetches the source dimensions of the given image.
func (c *Client) Metadata(ctx context.Context, src string) (Metadata, error) {
	q := url.Values{}
	q.Set("src", src)
	u := c.base + "/details?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Metadata{}, fmt.Errorf("%w: status %s", ErrMetadata, resp.Status)
	}

	var md Metadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	if md.Width <= 0 || md.Height <= 0 {
		return Metadata{}, fmt.Errorf("%w: server reported %dx%d",
			ErrMetadata, md.Width, md.Height)
	}
	return md, nil
}

// Tile fetches and decodes one tile image.
func (c *Client) Tile(ctx context.Context, tr TileRequest) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tileURL(tr), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrTileStatus, resp.Status)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tileview: decoding tile %d:%d: %w", tr.Tile, tr.Count, err)
	}
	return img, nil
}

// tileURL builds the tile request URL. The tile parameter is omitted for
// single-tile grids, where the response is the whole image.
func (c *Client) tileURL(tr TileRequest) string {
	q := url.Values{}
	q.Set("src", tr.Src)
	q.Set("width", strconv.Itoa(tr.Width))
	q.Set("height", strconv.Itoa(tr.Height))
	if tr.Count > 1 {
		q.Set("tile", fmt.Sprintf("%d:%d", tr.Tile, tr.Count))
	}
	q.Set("format", "jpg")
	q.Set("autosizefit", "0")
	q.Set("strip", "1")
	if tr.Stats {
		q.Set("stats", "1")
	} else {
		q.Set("stats", "0")
	}
	return c.base + "/" + c.command + "?" + q.Encode()
}
