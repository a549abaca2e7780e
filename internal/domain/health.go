package domain

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// ProbeURL checks whether an entry's address still answers and maps the
// outcome to a health status: unreachable or 5xx is broken, 4xx is
// warning, anything else healthy.
func ProbeURL(address string, timeout time.Duration) HealthStatus {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 0,
				}).DialContext(ctx, network, addr)
			},
			TLSHandshakeTimeout: timeout,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			DisableKeepAlives: true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Don't follow redirects
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, address, http.NoBody)
	if err != nil {
		return HealthBroken
	}

	resp, err := client.Do(req)
	if err != nil {
		return HealthBroken
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 500:
		return HealthBroken
	case resp.StatusCode >= 400:
		return HealthWarning
	default:
		return HealthHealthy
	}
}
