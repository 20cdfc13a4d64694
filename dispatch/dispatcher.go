package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-partner-client/envelope"
)

// clientTimestampLayout is the fixed human-readable format of the
// x-request-at header.
const clientTimestampLayout = "2006-01-02T15:04:05.00-07:00"

const defaultTimeout = 30 * time.Second

// Dispatcher performs signed round trips against the partner API: it
// seals the outbound payload, builds the transport headers, posts the
// envelope with a bounded timeout, and decodes the response body.
// Dispatchers are stateless per call and safe for concurrent use.
type Dispatcher struct {
	baseURL    string
	userAgent  string
	versionApp string
	httpClient *http.Client
	logger     zerolog.Logger
}

type Option func(*Dispatcher)

// WithHTTPClient replaces the underlying HTTP client (primarily for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		d.httpClient = client
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.httpClient.Timeout = timeout
	}
}

func WithUserAgent(userAgent string) Option {
	return func(d *Dispatcher) {
		d.userAgent = userAgent
	}
}

func WithVersionApp(versionApp string) Option {
	return func(d *Dispatcher) {
		d.versionApp = versionApp
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New creates a Dispatcher for the partner API at baseURL.
func New(baseURL string, options ...Option) (*Dispatcher, error) {
	if baseURL == "" {
		return nil, errors.New("[dispatch.New] baseURL is required")
	}

	d := &Dispatcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  "okhttp/4.12.0",
		versionApp: "8.9.0",
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(d)
	}
	return d, nil
}

// Send seals payload, posts it to path, and returns the decrypted
// response body. Failures at the HTTP layer come back as *TransportError;
// an undecryptable response comes back as *envelope.DecodeError. A
// decoded response whose business status indicates failure is not an
// error here: it is returned as data for the caller to interpret.
//
// The partner API is POST-only; method feeds the signature canonical
// string.
func (d *Dispatcher) Send(ctx context.Context, apiKey, method, path, idToken string, payload any) (json.RawMessage, error) {
	env, err := envelope.Seal(method, path, idToken, payload, apiKey)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(env.EncryptedBody)
	if err != nil {
		return nil, fmt.Errorf("[Send] marshal envelope: %w", err)
	}

	url := d.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: "request", Err: err}
	}
	d.setHeaders(req, apiKey, idToken, env)

	started := time.Now()
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "do", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read", StatusCode: resp.StatusCode, Err: err}
	}

	d.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("requestID", env.RequestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("partner request")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &TransportError{
			Op:         "status",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", truncate(respBody, 256)),
		}
	}

	var respEnvelope envelope.EncryptedBody
	if err := json.Unmarshal(respBody, &respEnvelope); err != nil {
		return nil, &TransportError{Op: "parse", StatusCode: resp.StatusCode, Err: err}
	}

	plaintext, err := envelope.Open(respEnvelope, apiKey)
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}

func (d *Dispatcher) setHeaders(req *http.Request, apiKey, idToken string, env *envelope.SignedEnvelope) {
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("x-hv", "v3")
	req.Header.Set("x-signature", env.Signature)
	req.Header.Set("x-signature-time", strconv.FormatInt(env.SignatureTime, 10))
	req.Header.Set("x-request-id", env.RequestID)
	req.Header.Set("x-request-at", env.ClientTime.Format(clientTimestampLayout))
	req.Header.Set("x-version-app", d.versionApp)
	if idToken != "" {
		req.Header.Set("Authorization", "Bearer "+idToken)
	}
}

func truncate(body []byte, max int) string {
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
