package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/harness/depextract/util/common/errors"
	"github.com/harness/depextract/util/common/progress"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Credentials authenticate against a remote repository. A token takes
// precedence over username and password.
type Credentials struct {
	Username string
	Password string
	Token    string
}

func (c Credentials) apply(req *retryablehttp.Request) {
	switch {
	case c.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.Token)
	case c.Username != "":
		req.SetBasicAuth(c.Username, c.Password)
	}
}

// HTTPRepository serves a Maven layout over HTTP(S).
type HTTPRepository struct {
	id       string
	baseURL  string
	client   *retryablehttp.Client
	creds    Credentials
	progress bool
	logger   zerolog.Logger
}

// HTTPOption configures an HTTPRepository.
type HTTPOption func(*HTTPRepository)

// WithCredentials sets the credentials sent with every request.
func WithCredentials(c Credentials) HTTPOption {
	return func(r *HTTPRepository) { r.creds = c }
}

// WithRetries sets the retry budget for transport errors and 5xx answers.
func WithRetries(max int, minWait, maxWait time.Duration) HTTPOption {
	return func(r *HTTPRepository) {
		r.client.RetryMax = max
		r.client.RetryWaitMin = minWait
		r.client.RetryWaitMax = maxWait
	}
}

// WithTimeout bounds each single attempt.
func WithTimeout(d time.Duration) HTTPOption {
	return func(r *HTTPRepository) { r.client.HTTPClient.Timeout = d }
}

// WithProgress draws a progress bar for every download.
func WithProgress(enabled bool) HTTPOption {
	return func(r *HTTPRepository) { r.progress = enabled }
}

// NewHTTPRepository creates a remote rooted at baseURL.
func NewHTTPRepository(id, baseURL string, opts ...HTTPOption) *HTTPRepository {
	logger := log.With().
		Str("component", "http_repository").
		Str("repository", id).
		Logger()

	client := retryablehttp.NewClient()
	client.Logger = leveledLogger{logger: logger}
	client.RetryMax = 3
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 5 * time.Minute

	r := &HTTPRepository{
		id:      id,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *HTTPRepository) ID() string { return r.id }

// URL returns the absolute URL of a repository layout path.
func (r *HTTPRepository) URL(p string) string {
	return r.baseURL + "/" + strings.TrimPrefix(p, "/")
}

func (r *HTTPRepository) Fetch(ctx context.Context, c Coordinates, w io.Writer) error {
	resp, err := r.get(ctx, c.Path())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if r.progress {
		bar := progress.ReadCloser(resp.ContentLength, resp.Body, c.FileName())
		defer bar.Close()
		body = bar
	}

	start := time.Now()
	n, err := io.Copy(w, body)
	if err != nil {
		return fmt.Errorf("download %s: %w", r.URL(c.Path()), err)
	}
	r.logger.Debug().
		Str("artifact", c.String()).
		Int64("bytes", n).
		Dur("duration", time.Since(start)).
		Msg("Downloaded artifact")
	return nil
}

// Versions reads the versions listed in the artifact's maven-metadata.xml.
func (r *HTTPRepository) Versions(ctx context.Context, c Coordinates) ([]string, error) {
	p := c.ArtifactDir() + "/" + MetadataFile
	resp, err := r.get(ctx, p)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	md, err := ParseMetadata(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.URL(p), err)
	}
	return md.Versioning.Versions, nil
}

// Publish uploads file to c's layout path with a PUT, the way a Maven
// deploy writes to a plain HTTP repository.
func (r *HTTPRepository) Publish(ctx context.Context, c Coordinates, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return errors.NewFileError(file, "open", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return errors.NewFileError(file, "stat", err)
	}

	url := r.URL(c.Path())
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, url, f)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	r.creds.apply(req)

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("PUT %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("PUT %s: unexpected status %s", url, resp.Status)
	}

	r.logger.Info().
		Str("artifact", c.String()).
		Int64("bytes", info.Size()).
		Dur("duration", time.Since(start)).
		Msg("Published artifact")
	return nil
}

// get issues a GET and maps 404 to ErrNotFound. Every other non-2xx answer
// is returned as a transport error.
func (r *HTTPRepository) get(ctx context.Context, p string) (*http.Response, error) {
	url := r.URL(p)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	r.creds.apply(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %w", url, errors.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	return resp, nil
}

// leveledLogger routes retryablehttp's logging into zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}
