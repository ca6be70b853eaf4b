// Package ipfs talks to an IPFS node for writes and reads content back from
// the node or, failing that, from a list of public gateways in order.
package ipfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/logger"

	shell "github.com/ipfs/go-ipfs-api"
)

const (
	maxBlobSize    = 16 << 20
	gatewayTimeout = 10 * time.Second
)

type Client struct {
	shell      *shell.Shell
	gateways   []string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient connects to the node API at apiURL. An empty apiURL yields a
// read-only client that only uses the gateways.
func NewClient(apiURL string, gateways []string, log *logger.Logger) *Client {
	c := &Client{
		gateways:   normalizeGateways(gateways),
		httpClient: &http.Client{Timeout: gatewayTimeout},
		logger:     log,
	}
	if apiURL != "" {
		c.shell = shell.NewShell(apiURL)
		c.shell.SetTimeout(30 * time.Second)
	}
	return c
}

func normalizeGateways(gateways []string) []string {
	out := make([]string, 0, len(gateways))
	for _, gw := range gateways {
		gw = strings.TrimSuffix(strings.TrimSpace(gw), "/")
		gw = strings.TrimSuffix(gw, "/ipfs")
		if gw != "" {
			out = append(out, gw)
		}
	}
	return out
}

// Add stores data on the node, pinned, and returns its CID.
func (c *Client) Add(ctx context.Context, data []byte) (string, error) {
	if c.shell == nil {
		return "", fmt.Errorf("ipfs add: no node API configured: %w", apperr.ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	cid, err := c.shell.Add(bytes.NewReader(data), shell.Pin(true))
	if err != nil {
		return "", fmt.Errorf("ipfs add: %v: %w", err, apperr.ErrUnavailable)
	}
	return cid, nil
}

// Cat returns the content at cid. The node is tried first, then every
// gateway in order; the first success wins. When everything fails the
// returned error lists each attempt.
func (c *Client) Cat(ctx context.Context, cid string) ([]byte, error) {
	if !ValidCID(cid) {
		return nil, fmt.Errorf("cid %q: %w", cid, apperr.ErrInvalidInput)
	}

	var errs []error

	if c.shell != nil {
		data, err := c.catNode(cid)
		if err == nil {
			return data, nil
		}
		errs = append(errs, fmt.Errorf("node: %w", err))
	}

	for _, gw := range c.gateways {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := c.catGateway(ctx, gw, cid)
		if err == nil {
			if len(errs) > 0 {
				c.logger.Warn("[IPFS] cid %s served by %s after %d failed attempts", cid, gw, len(errs))
			}
			return data, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", gw, err))
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("cid %s: no node or gateway configured: %w", cid, apperr.ErrUnavailable)
	}
	return nil, fmt.Errorf("cid %s: %w: %w", cid, apperr.ErrUnavailable, errors.Join(errs...))
}

func (c *Client) catNode(cid string) ([]byte, error) {
	rc, err := c.shell.Cat(cid)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readBlob(rc, maxBlobSize)
}

func (c *Client) catGateway(ctx context.Context, gateway, cid string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gateway+"/ipfs/"+cid, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return readBlob(resp.Body, maxBlobSize)
}

// readBlob reads r to the end and fails when it holds more than limit bytes.
func readBlob(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("blob larger than %d bytes", limit)
	}
	return data, nil
}

// GatewayURL is the public URL of cid on the first gateway.
func (c *Client) GatewayURL(cid string) string {
	if len(c.gateways) == 0 || cid == "" {
		return ""
	}
	return c.gateways[0] + "/ipfs/" + cid
}

// ValidCID rejects values that cannot be a CID path segment.
func ValidCID(cid string) bool {
	if len(cid) < 10 || len(cid) > 128 {
		return false
	}
	for _, r := range cid {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
