package mcpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	maxInputSize = 200 << 20 // 200 MB
	maxRedirects = 5
)

// acceptedTypes are the media types an input file may arrive as. An empty
// type is accepted too.
var acceptedTypes = map[string]bool{
	"application/json":   true,
	"application/yaml":   true,
	"application/x-yaml": true,
	"text/yaml":          true,
	"text/plain":         true,
}

var errTooLarge = fmt.Errorf("input too large: exceeds %d bytes", maxInputSize)

type importResult struct {
	ProjectID  string `json:"projectId"`
	Checksum   string `json:"checksum"`
	External   int    `json:"externalAttributions"`
	Generation uint64 `json:"generation"`
}

func (s *Server) importInput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := fetchInput(ctx, raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ws.ImportInput(ctx, data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	st := s.ws.Status()
	return jsonResult(importResult{
		ProjectID:  st.ProjectID,
		Checksum:   st.Checksum,
		External:   st.External,
		Generation: st.Generation,
	}), nil
}

// fetchInput resolves a data: URI or downloads an http(s) URL.
func fetchInput(ctx context.Context, raw string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(raw, "data:"); ok {
		return decodeDataURI(rest)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		return download(ctx, u)
	default:
		return nil, fmt.Errorf("unsupported scheme %q: use data:, http or https", u.Scheme)
	}
}

// decodeDataURI decodes the part of a data URI after "data:", either base64
// or percent-encoded.
func decodeDataURI(rest string) ([]byte, error) {
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errors.New("invalid data URI: missing comma")
	}
	meta, isBase64 := strings.CutSuffix(meta, ";base64")
	if err := checkMediaType(meta); err != nil {
		return nil, err
	}

	var (
		data []byte
		err  error
	)
	if isBase64 {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(payload)
		}
	} else {
		var text string
		text, err = url.PathUnescape(payload)
		data = []byte(text)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid data URI payload: %w", err)
	}
	if len(data) > maxInputSize {
		return nil, errTooLarge
	}
	return data, nil
}

func checkMediaType(value string) error {
	if value == "" {
		return nil
	}
	mt, _, err := mime.ParseMediaType(value)
	if err != nil {
		return fmt.Errorf("invalid media type %q: %w", value, err)
	}
	if !acceptedTypes[mt] {
		return fmt.Errorf("unsupported media type %s", mt)
	}
	return nil
}

var downloader = &http.Client{
	Timeout: 60 * time.Second,
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("too many redirects (max %d)", maxRedirects)
		}
		return checkHost(req.Context(), req.URL.Hostname())
	},
}

func download(ctx context.Context, u *url.URL) ([]byte, error) {
	if err := checkHost(ctx, u.Hostname()); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := downloader.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	if err := checkMediaType(resp.Header.Get("Content-Type")); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxInputSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxInputSize {
		return nil, errTooLarge
	}
	return data, nil
}

// checkHost refuses hosts that resolve to loopback, link-local (cloud
// metadata) or unspecified addresses.
func checkHost(ctx context.Context, host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}
	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			// Leave DNS errors to the HTTP client.
			return nil
		}
		for _, a := range addrs {
			ips = append(ips, a.IP)
		}
	}
	for _, ip := range ips {
		if blockedIP(ip) {
			return fmt.Errorf("blocked host: %s resolves to %s", host, ip)
		}
	}
	return nil
}

func blockedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}
