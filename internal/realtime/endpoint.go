package realtime

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultPath is the well-known path of the real-time endpoint.
const DefaultPath = "/ws"

// EndpointURL derives the real-time endpoint from the URL the client page was
// served from: same host, wss when the page was loaded over https, ws
// otherwise.
func EndpointURL(pageURL, path string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return "", fmt.Errorf("realtime: parse page url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("realtime: page url %q has no host", pageURL)
	}

	var scheme string
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		scheme = "wss"
	case "http", "ws":
		scheme = "ws"
	default:
		return "", fmt.Errorf("realtime: unsupported page scheme %q", u.Scheme)
	}

	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return (&url.URL{Scheme: scheme, Host: u.Host, Path: path}).String(), nil
}
