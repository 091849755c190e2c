package probe

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

	"github.com/myatko/domainwatch/internal/domain"
	"github.com/myatko/domainwatch/internal/tzutil"
)

const userAgent = "Domain-Checker-Bot/1.0"

// Timeout budget for bulk probes: connect, response headers, whole request.
const (
	connectTimeout = 3 * time.Second
	readTimeout    = 5 * time.Second
	totalTimeout   = 8 * time.Second

	// Single-domain synchronous checks use one flat timeout instead.
	syncTimeout = 10 * time.Second
)

// Checker performs one liveness probe against a domain name. It never
// returns an error: every failure mode is folded into the result.
type Checker interface {
	Probe(ctx context.Context, name string) domain.ProbeResult
}

// Normalize prepends https:// when the name carries no scheme.
func Normalize(name string) string {
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		return name
	}
	return "https://" + name
}

// NewTransport builds the connection pool shared by one bulk check
// invocation. Certificate validation is off on purpose: the signal we
// want is reachability, and an expired cert should read as UP.
func NewTransport() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: true},
		ResponseHeaderTimeout: readTimeout,
		MaxConnsPerHost:       10,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
	}
}

// HTTPProber issues GET probes over a shared transport.
type HTTPProber struct {
	Client *http.Client
}

// New wraps rt in a client with the bulk timeout budget.
func New(rt http.RoundTripper) *HTTPProber {
	return &HTTPProber{
		Client: &http.Client{Transport: rt, Timeout: totalTimeout},
	}
}

// NewSync builds the single-domain prober with the flat timeout. It owns
// its transport; callers use it for one-off checks, not bulk runs.
func NewSync() *HTTPProber {
	return &HTTPProber{
		Client: &http.Client{Transport: NewTransport(), Timeout: syncTimeout},
	}
}

// Probe classifies one GET against name. Redirects are followed; only a
// final 200 counts as UP.
func (p *HTTPProber) Probe(ctx context.Context, name string) domain.ProbeResult {
	target := Normalize(name)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return failure(name, err.Error())
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.Client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return failure(name, "Connection timeout")
		}
		return failure(name, reason(err))
	}
	defer resp.Body.Close()
	// Drain a little so the connection goes back to the pool.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	elapsed := time.Since(start).Seconds()
	code := resp.StatusCode

	res := domain.ProbeResult{
		Domain:       name,
		StatusCode:   &code,
		ResponseTime: &elapsed,
		Timestamp:    tzutil.Now(),
	}
	if code == http.StatusOK {
		res.Status = domain.StatusUp
	} else {
		res.Status = domain.StatusDown
		res.Error = fmt.Sprintf("HTTP %d", code)
	}
	return res
}

func failure(name, msg string) domain.ProbeResult {
	return domain.ProbeResult{
		Domain:    name,
		Status:    domain.StatusDown,
		Timestamp: tzutil.Now(),
		Error:     msg,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// reason unwraps the url.Error envelope so results carry the transport
// cause ("connection refused", DNS failure, TLS handshake error) without
// the method/URL prefix.
func reason(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err.Error()
	}
	return err.Error()
}
