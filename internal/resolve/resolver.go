// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/earpack/earpack/internal/coords"
	"github.com/earpack/earpack/internal/issue"
	"github.com/earpack/earpack/internal/logging"
)

const defaultMaxRetries = 3

var (
	// ErrNotFound is wrapped when no repository holds the artifact.
	ErrNotFound = errors.New("artifact not found")

	errRemoteNotFound = errors.New("not found in remote repository")
)

type (
	// Repository is one artifact source. URL is a directory path, a file://
	// URL or an http(s):// URL.
	Repository struct {
		ID  string `mapstructure:"id" toml:"id"`
		URL string `mapstructure:"url" toml:"url"`
	}

	// Resolver maps a coordinate to a file on disk.
	Resolver interface {
		Resolve(ctx context.Context, c coords.Coordinate, repos []Repository) (string, error)
	}

	// ResolutionError reports a coordinate no repository could satisfy.
	// It wraps issue.ErrResolution for errors.Is() compatibility.
	ResolutionError struct {
		Coordinate coords.Coordinate
		Cause      error
	}

	// MavenResolver resolves against Maven-layout repositories.
	MavenResolver struct {
		local      string
		client     *http.Client
		newBackOff func() backoff.BackOff
		record     *Record
		logger     *log.Logger
	}

	// Option configures a MavenResolver.
	Option func(*MavenResolver)
)

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Coordinate, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ResolutionError) Unwrap() error { return e.Cause }

// Is reports whether target is issue.ErrResolution.
func (e *ResolutionError) Is(target error) bool { return target == issue.ErrResolution }

// WithHTTPClient sets the client used for remote repositories.
func WithHTTPClient(client *http.Client) Option {
	return func(r *MavenResolver) { r.client = client }
}

// WithBackOff sets the retry policy for remote downloads. newBackOff is
// called once per download.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(r *MavenResolver) { r.newBackOff = newBackOff }
}

// WithRecord records every resolved artifact into rec.
func WithRecord(rec *Record) Option {
	return func(r *MavenResolver) { r.record = rec }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *MavenResolver) { r.logger = logging.Ensure(logger) }
}

// NewMavenResolver returns a resolver caching downloads under local.
func NewMavenResolver(local string, opts ...Option) *MavenResolver {
	r := &MavenResolver{
		local:  local,
		client: &http.Client{Timeout: 2 * time.Minute},
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), defaultMaxRetries)
		},
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LayoutPath returns the slash-separated path of c inside a Maven
// repository.
func LayoutPath(c coords.Coordinate) string {
	return path.Join(strings.ReplaceAll(c.GroupID, ".", "/"), c.ArtifactID, c.Version, c.FileName())
}

// Resolve implements Resolver.
func (r *MavenResolver) Resolve(ctx context.Context, c coords.Coordinate, repos []Repository) (string, error) {
	if err := c.Validate(); err != nil {
		return "", &ResolutionError{Coordinate: c, Cause: err}
	}
	rel := LayoutPath(c)

	if r.local != "" {
		if p := filepath.Join(r.local, filepath.FromSlash(rel)); isFile(p) {
			return r.found(c, p, "local")
		}
	}

	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return "", &ResolutionError{Coordinate: c, Cause: err}
		}
		p, err := r.fromRepository(ctx, repo, rel)
		switch {
		case err == nil:
			return r.found(c, p, repo.ID)
		case errors.Is(err, errRemoteNotFound):
			r.logger.Debug("artifact not in repository", "coordinate", c.String(), "repository", repo.ID)
		default:
			return "", &ResolutionError{Coordinate: c, Cause: fmt.Errorf("repository %s: %w", repo.ID, err)}
		}
	}
	return "", &ResolutionError{Coordinate: c, Cause: ErrNotFound}
}

func (r *MavenResolver) found(c coords.Coordinate, p, repo string) (string, error) {
	r.logger.Debug("resolved artifact", "coordinate", c.String(), "path", p, "repository", repo)
	if r.record != nil {
		if err := r.record.Add(c, p, repo); err != nil {
			return "", err
		}
	}
	return p, nil
}

// fromRepository returns errRemoteNotFound when repo does not hold rel.
func (r *MavenResolver) fromRepository(ctx context.Context, repo Repository, rel string) (string, error) {
	u, err := url.Parse(repo.URL)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain path, possibly with a Windows drive letter.
		return fromDirectory(repo.URL, rel)
	}
	switch u.Scheme {
	case "file":
		return fromDirectory(filepath.FromSlash(u.Path), rel)
	case "http", "https":
		return r.download(ctx, strings.TrimSuffix(repo.URL, "/")+"/"+rel, rel)
	default:
		return "", fmt.Errorf("unsupported repository URL %q", repo.URL)
	}
}

func fromDirectory(dir, rel string) (string, error) {
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if !isFile(p) {
		return "", errRemoteNotFound
	}
	return p, nil
}

// download fetches src into the local repository, retrying transient
// failures. A 404 is final.
func (r *MavenResolver) download(ctx context.Context, src, rel string) (string, error) {
	if r.local == "" {
		return "", errors.New("no local repository to download into")
	}
	dest := filepath.Join(r.local, filepath.FromSlash(rel))

	op := func() error {
		err := r.fetch(ctx, src, dest)
		if errors.Is(err, errRemoteNotFound) || errors.Is(err, issue.ErrIO) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("download failed, retrying", "url", src, "wait", wait, "err", err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(r.newBackOff(), ctx), notify); err != nil {
		return "", err
	}
	return dest, nil
}

type statusError struct {
	URL    string
	Status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, http.StatusText(e.Status))
}

func (r *MavenResolver) fetch(ctx context.Context, src, dest string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errRemoteNotFound
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return &statusError{URL: src, Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return backoff.Permanent(&statusError{URL: src, Status: resp.StatusCode})
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return issue.NewIOError("create directory", filepath.Dir(dest), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+"-*")
	if err != nil {
		return issue.NewIOError("create", dest, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		// Truncated bodies are worth another attempt.
		return err
	}
	if err := tmp.Close(); err != nil {
		return issue.NewIOError("close", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return issue.NewIOError("rename", dest, err)
	}
	return nil
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
