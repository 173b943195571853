package main

import (
	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// Doer is the part of the HTTP client the vendor calls need.
// tls_client.HttpClient satisfies it; tests substitute a fake.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultProfile is the TLS client profile used for vendor requests.
var DefaultProfile = profiles.Chrome_131

const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// NewClient builds the outbound client. It carries no cookie jar: the service is
// shared by many users and vendor cookies must never leak between them.
func NewClient(logger tls_client.Logger, proxyURL string, timeoutSeconds int) (tls_client.HttpClient, error) {
	return NewClientWithProfile(logger, proxyURL, timeoutSeconds, DefaultProfile)
}

func NewClientWithProfile(logger tls_client.Logger, proxyURL string, timeoutSeconds int, profile profiles.ClientProfile) (tls_client.HttpClient, error) {
	if logger == nil {
		logger = tls_client.NewNoopLogger()
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(timeoutSeconds),
		tls_client.WithClientProfile(profile),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithNotFollowRedirects(),
	}

	if proxyURL != "" {
		options = append(options, tls_client.WithProxyUrl(proxyURL))
	}

	return tls_client.NewHttpClient(logger, options...)
}
