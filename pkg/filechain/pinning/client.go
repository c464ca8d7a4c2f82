// Package pinning implements filechain.Pinner against a Pinata-style
// IPFS pinning API.
package pinning

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/filechain/filechain/pkg/filechain"
)

const (
	// DefaultEndpoint is the hosted Pinata API.
	DefaultEndpoint = "https://api.pinata.cloud"

	// DefaultGatewayURL serves pinned content by CID.
	DefaultGatewayURL = "https://gateway.pinata.cloud/ipfs"

	pinFilePath = "/pinning/pinFileToIPFS"
	unpinPath   = "/pinning/unpin"
)

// Config holds the pinning client configuration.
type Config struct {
	Endpoint   string
	APIKey     string
	APISecret  string
	GatewayURL string

	// AllowedTypes is an optional media-type allow-list. Empty means any
	// payload type is accepted.
	AllowedTypes []string

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// Client uploads payloads to a pinning endpoint and returns content
// identifiers. It enforces the payload size cap and the media-type
// allow-list before any network I/O, and never retries.
type Client struct {
	endpoint   string
	apiKey     string
	apiSecret  string
	gatewayURL string
	allowed    map[string]struct{}
	httpClient *http.Client
}

// NewClient creates a pinning client from config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("pinning api key and secret are required")
	}

	c := &Client{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		gatewayURL: strings.TrimSuffix(cfg.GatewayURL, "/"),
		httpClient: cfg.HTTPClient,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.gatewayURL == "" {
		c.gatewayURL = DefaultGatewayURL
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if len(cfg.AllowedTypes) > 0 {
		c.allowed = make(map[string]struct{}, len(cfg.AllowedTypes))
		for _, t := range cfg.AllowedTypes {
			c.allowed[t] = struct{}{}
		}
	}

	return c, nil
}

// pinFileResponse is the pinning API response body.
type pinFileResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Pin implements filechain.Pinner.
func (c *Client) Pin(ctx context.Context, req filechain.PinRequest) (*filechain.PinResult, error) {
	if req.Reader == nil {
		return nil, &filechain.PinError{FileName: req.FileName, Op: "pin",
			Err: fmt.Errorf("payload reader is required")}
	}
	if req.Size <= 0 {
		return nil, &filechain.PinError{FileName: req.FileName, Op: "pin",
			Err: fmt.Errorf("payload size must be known and positive")}
	}
	if req.Size > filechain.MaxPinSize {
		return nil, fmt.Errorf("%w: %d bytes", filechain.ErrFileTooLarge, req.Size)
	}
	if c.allowed != nil {
		if _, ok := c.allowed[req.ContentType]; !ok {
			return nil, fmt.Errorf("%w: %q", filechain.ErrUnsupportedMediaType, req.ContentType)
		}
	}

	src := req.Reader
	if req.Progress != nil {
		src = &progressReader{r: req.Reader, total: req.Size, report: req.Progress}
	}

	// Stream the multipart body so large payloads are never buffered in
	// memory.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", req.FileName)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+pinFilePath, pr)
	if err != nil {
		return nil, &filechain.PinError{FileName: req.FileName, Op: "pin", Err: err}
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuthHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &filechain.PinError{FileName: req.FileName, Op: "pin", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &filechain.PinError{FileName: req.FileName, Op: "pin",
			Err: fmt.Errorf("pinning service returned %s: %s", resp.Status, readErrorBody(resp.Body))}
	}

	var pinResp pinFileResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinResp); err != nil {
		return nil, &filechain.PinError{FileName: req.FileName, Op: "pin",
			Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if err := filechain.ValidateCID(pinResp.IpfsHash); err != nil {
		return nil, &filechain.PinError{FileName: req.FileName, Op: "pin", Err: err}
	}

	pinnedAt, _ := time.Parse(time.RFC3339, pinResp.Timestamp)
	return &filechain.PinResult{
		CID:      pinResp.IpfsHash,
		PinSize:  pinResp.PinSize,
		PinnedAt: pinnedAt,
	}, nil
}

// Unpin implements filechain.Pinner.
func (c *Client) Unpin(ctx context.Context, cid string) error {
	if err := filechain.ValidateCID(cid); err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint+unpinPath+"/"+cid, nil)
	if err != nil {
		return &filechain.PinError{Op: "unpin", Err: err}
	}
	c.setAuthHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &filechain.PinError{Op: "unpin", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &filechain.PinError{Op: "unpin",
			Err: fmt.Errorf("pinning service returned %s: %s", resp.Status, readErrorBody(resp.Body))}
	}

	return nil
}

// GatewayURL returns the public gateway link for a CID.
func (c *Client) GatewayURL(cid string) string {
	return c.gatewayURL + "/" + cid
}

func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("pinata_api_key", c.apiKey)
	req.Header.Set("pinata_secret_api_key", c.apiSecret)
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	return strings.TrimSpace(string(body))
}

// progressReader reports the fraction of the payload consumed so far as a
// percentage in [0,100]. Reports only on increase, so the sequence seen by
// the callback is monotonic.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   float64
	report func(percent float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		percent := float64(p.read) / float64(p.total) * 100
		if percent > 100 {
			percent = 100
		}
		if percent > p.last {
			p.last = percent
			p.report(percent)
		}
	}
	return n, err
}
