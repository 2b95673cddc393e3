package backend

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"

	"github.com/use-agent/harvest/models"
)

// maxBodyBytes caps how much of a response body is read into memory.
const maxBodyBytes = 10 << 20

// Renderless is the plain HTTP tier. It issues a single GET with a
// Chrome ClientHello and returns the body as-is, without any
// JavaScript execution. Fastest tier, works for static pages.
type Renderless struct {
	client *http.Client
}

// chromeHello is the shared Chrome-like ClientHello, built once. Its
// ALPN list is pinned to http/1.1: Go's http.Transport cannot speak h2
// over a utls connection, so the server must never negotiate it.
var chromeHello = buildChromeHello()

func buildChromeHello() tls.ClientHelloSpec {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		// A zero spec fails the handshake loudly; cannot happen with a
		// valid utls release.
		return tls.ClientHelloSpec{}
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	return spec
}

// dialChrome opens a TCP connection and completes a TLS handshake
// presenting the Chrome fingerprint.
func dialChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	uconn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := uconn.ApplyPreset(&chromeHello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("renderless: apply tls spec: %w", err)
	}
	if err := uconn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return uconn, nil
}

// NewRenderless creates the HTTP tier.
func NewRenderless() *Renderless {
	return &Renderless{
		client: &http.Client{
			Transport: &http.Transport{
				DialTLSContext:    dialChrome,
				ForceAttemptHTTP2: false,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

func (r *Renderless) Name() string { return "http" }

func (r *Renderless) Fetch(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, models.NewFetchError(models.ErrCodeNavigation, "renderless: build request", err)
	}
	primeHeaders(httpReq, req)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, models.NewFetchError(models.ErrCodeTimeout, "renderless: fetch timed out", err)
		}
		return nil, models.NewFetchError(models.ErrCodeNavigation, "renderless: do request", err)
	}
	defer resp.Body.Close()

	// Bail before reading the body when the response cannot contain a
	// page; the chain escalates to a rendering tier on this error.
	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode >= 400 || !isHTMLContentType(ct) {
		return nil, models.NewFetchError(models.ErrCodeNavigation,
			fmt.Sprintf("renderless: non-html or error status %d (content-type: %s)", resp.StatusCode, ct), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, models.NewFetchError(models.ErrCodeTimeout, "renderless: read body", err)
		}
		return nil, models.NewFetchError(models.ErrCodeNavigation, "renderless: read body", err)
	}

	return &Result{
		Content: string(body),
		Backend: r.Name(),
		Elapsed: time.Since(start),
	}, nil
}

// primeHeaders gives the request a desktop-browser header set, then
// lets req.Headers override any of them.
func primeHeaders(httpReq *http.Request, req *Request) {
	httpReq.Header.Set("User-Agent", req.UserAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "identity")

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
}

// isHTMLContentType returns true if the content-type header looks like HTML.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
