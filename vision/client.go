package vision

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	// ErrEmptyURL is returned by NewClient when no endpoint is configured.
	ErrEmptyURL = errors.New("vision API url is empty")
	// ErrStatus is returned when the API answers with a non-200 status.
	ErrStatus = errors.New("vision API error")
)

// UploadField is the multipart field name the API reads images from.
const UploadField = "files"

// Predictor scores one encoded image.
type Predictor interface {
	// Predict uploads a JPEG and returns the decoded response. key identifies the sample in logs.
	Predict(ctx context.Context, key string, jpeg []byte) (*Response, error)
}

// Config configures a Client.
type Config struct {
	// URL is the deployed model endpoint.
	URL string
	// Auth is sent verbatim as the authorization header when set.
	Auth string
	// InsecureTLS skips certificate verification.
	InsecureTLS bool
	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration
	// RateLimit in requests per second. Zero disables limiting.
	RateLimit float64
	// Burst is the token bucket size, at least 1.
	Burst int
}

// Client posts images to the vision API.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

// NewClient creates a client for the configured endpoint.
//
// Arguments:
// - cfg: Endpoint, credentials and throttling.
// - log: Logger for request lines, the standard logger when nil.
//
// Returns:
// - *Client: The client.
// - error: ErrEmptyURL when cfg.URL is empty.
func NewClient(cfg Config, log logrus.FieldLogger) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyURL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Transport: transport, Timeout: cfg.Timeout},
		limiter: limiter,
		log:     log,
	}, nil
}

// Predict uploads jpeg as a multipart form and decodes the response.
//
// Arguments:
// - ctx: Cancels both the rate limiter wait and the request.
// - key: Sample key, logged with the response.
// - jpeg: The encoded image.
//
// Returns:
// - *Response: The decoded body.
// - error: Transport errors, ErrStatus with the body for non-200 answers, or decode errors.
func (c *Client) Predict(ctx context.Context, key string, jpeg []byte) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit")
	}

	body, contentType, err := multipartBody(jpeg)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "no-cache")
	if c.cfg.Auth != "" {
		req.Header.Set("Authorization", c.cfg.Auth)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "post %s", key)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respB, _ := io.ReadAll(resp.Body)
		return nil, errors.Wrapf(ErrStatus, "%s: HTTP %v (%v)", key, resp.Status, string(respB))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrapf(err, "decode response for %s", key)
	}

	c.log.WithFields(logrus.Fields{
		"key":     key,
		"result":  out.Result,
		"elapsed": time.Since(start).Truncate(time.Millisecond),
	}).Debug("prediction received")

	return &out, nil
}

func multipartBody(jpeg []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(UploadField, uuid.NewString()+".jpg")
	if err != nil {
		return nil, "", errors.Wrap(err, "create form file")
	}
	if _, err := part.Write(jpeg); err != nil {
		return nil, "", errors.Wrap(err, "write form file")
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "close multipart")
	}

	return &buf, w.FormDataContentType(), nil
}
