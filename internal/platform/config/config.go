package config

import (
	"os"
	"strconv"
	"time"
)

// Client captures API client level configuration.
type Client struct {
	BaseURL        string
	RequestTimeout time.Duration
	AlertBuffer    int
}

// DefaultRequestTimeout bounds every remote call; hung requests surface as
// timeout errors instead of wedging the caller.
var DefaultRequestTimeout = 15 * time.Second

// FromEnv builds a Client config from environment variables so main stays lean.
func FromEnv() Client {
	baseURL := os.Getenv("ASSETDESK_API_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8000"
	}

	timeout := DefaultRequestTimeout
	if raw := os.Getenv("ASSETDESK_REQUEST_TIMEOUT"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			timeout = time.Duration(seconds) * time.Second
		}
	}

	alertBuffer := 16
	if raw := os.Getenv("ASSETDESK_ALERT_BUFFER"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			alertBuffer = n
		}
	}

	return Client{
		BaseURL:        baseURL,
		RequestTimeout: timeout,
		AlertBuffer:    alertBuffer,
	}
}
