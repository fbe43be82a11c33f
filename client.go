package enroller

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const (
	headerContentType = "Content-type"
	headerLogin       = "login"
	headerCustomerURI = "customerUri"

	envUserCert = "X509_USER_CERT"
	envUserKey  = "X509_USER_KEY"

	clientDefaultTimeout = 30 * time.Second
)

// Client performs authenticated requests against the certificate-management
// API. The header map is built once at construction and never mutated.
type Client struct {
	httpClient *http.Client
	cfg        *Config
	headers    map[string]string
}

// ClientSettings allows overriding the HTTP client timeout and supplying a
// transport, usually one created by NewMutualTLSTransport.
type ClientSettings struct {
	ClientTimeout time.Duration
	Transport     http.RoundTripper
}

// NewClient returns a *Client for the given configuration. A nil settings
// parameter yields a plain client with the default timeout, which is only
// useful against an issuer that does not require client certificates.
func NewClient(cfg *Config, settings *ClientSettings) *Client {
	c := Client{
		cfg: cfg,
		headers: map[string]string{
			headerContentType: cfg.ContentType,
			headerLogin:       cfg.Login,
			headerCustomerURI: cfg.CustomerURI,
		},
	}

	if settings != nil {
		timeout := clientDefaultTimeout
		if settings.ClientTimeout > 0 {
			timeout = settings.ClientTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}

		if settings.Transport != nil {
			c.httpClient.Transport = settings.Transport
		}
	} else {
		c.httpClient = &http.Client{Timeout: clientDefaultTimeout}
	}

	return &c
}

// do issues one request with the client's headers applied. Transport-level
// failures come back as *ConnectionError, credential rejections as
// *AuthError; any other response is returned as-is with its body open.
func (c *Client) do(method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "could not create HTTP request")
	}

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		_ = resp.Body.Close()
		return nil, &AuthError{Status: resp.StatusCode}
	}

	return resp, nil
}

// Ping issues a GET against the listing URL to verify connectivity and
// credentials without submitting anything.
func (c *Client) Ping() error {
	resp, err := c.do(http.MethodGet, c.cfg.ListURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connectivity test: expected status 200, got %d", resp.StatusCode)
	}

	return nil
}

// NewMutualTLSTransport builds an HTTP transport that presents the given
// PEM client certificate and key during the TLS handshake.
func NewMutualTLSTransport(certFile, keyFile string) (*http.Transport, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, errors.Wrap(err, "could not load user certificate/key pair")
	}

	return &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
		},
	}, nil
}

// ResolveUserCredentials locates the user certificate and key files:
// explicit paths win, then the X509_USER_CERT/X509_USER_KEY environment
// variables, then the default location under the user's home directory.
func ResolveUserCredentials(certFile, keyFile string) (string, string, error) {
	if certFile == "" {
		certFile = os.Getenv(envUserCert)
	}
	if keyFile == "" {
		keyFile = os.Getenv(envUserKey)
	}

	if certFile == "" || keyFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", ErrMissingCredentials
		}
		if certFile == "" {
			certFile = filepath.Join(home, ".globus", "usercert.pem")
		}
		if keyFile == "" {
			keyFile = filepath.Join(home, ".globus", "userkey.pem")
		}
	}

	if !fileExists(certFile) || !fileExists(keyFile) {
		return "", "", ErrMissingCredentials
	}

	return certFile, keyFile, nil
}
