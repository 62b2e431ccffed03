package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/flightops/delay-engine/internal/cache"
	"github.com/flightops/delay-engine/internal/utils"
)

// ErrModelNotFound reports that the registry has no versions for a model name.
var ErrModelNotFound = errors.New("model not found in registry")

// ModelVersion describes one registered model artifact.
type ModelVersion struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Framework string    `json:"framework"`
	Task      string    `json:"task"`
	TrainedAt time.Time `json:"trained_at"`
}

// Metadata carries the descriptive labels attached to an uploaded artifact.
type Metadata struct {
	Framework string    `json:"framework"`
	Task      string    `json:"task"`
	TrainedAt time.Time `json:"trained_at"`
}

// Client talks to the model registry HTTP API. Artifact bytes are cached
// through the provider keyed by name:version, so repeated reloads of an
// unchanged version skip the download.
type Client struct {
	baseURL     string
	modelsPath  string
	httpClient  *http.Client
	cache       cache.Provider
	artifactTTL time.Duration
}

// NewClient constructs a registry client. A nil provider disables caching.
func NewClient(baseURL, modelsPath string, timeout time.Duration, provider cache.Provider, artifactTTL time.Duration) *Client {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		modelsPath:  modelsPath,
		httpClient:  &http.Client{Timeout: timeout},
		cache:       provider,
		artifactTTL: artifactTTL,
	}
}

// LatestVersion looks up the most recently registered version of a model.
func (c *Client) LatestVersion(ctx context.Context, name string) (ModelVersion, error) {
	if c.baseURL == "" {
		return ModelVersion{}, utils.NewAppError("registry.latest", "registry base URL not configured", nil)
	}

	endpoint := c.resolvePath(c.modelsPath, name, "latest")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ModelVersion{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ModelVersion{}, utils.NewAppError("registry.latest", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ModelVersion{}, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return ModelVersion{}, utils.NewAppError("registry.latest",
			fmt.Sprintf("registry returned %s", resp.Status), nil)
	}

	var version ModelVersion
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return ModelVersion{}, utils.NewAppError("registry.latest", "decode response", err)
	}
	if version.Version == "" {
		return ModelVersion{}, utils.NewAppError("registry.latest", "response missing version", nil)
	}
	return version, nil
}

// FetchArtifact downloads the serialized model blob for a specific version.
func (c *Client) FetchArtifact(ctx context.Context, name, version string) ([]byte, error) {
	if c.baseURL == "" {
		return nil, utils.NewAppError("registry.artifact", "registry base URL not configured", nil)
	}

	cacheKey := fmt.Sprintf("delay-engine:artifact:%s:%s", name, version)
	if cached, err := c.cache.Get(ctx, cacheKey); err == nil && len(cached) > 0 {
		return cached, nil
	}

	endpoint := c.resolvePath(c.modelsPath, name, "versions", version, "artifact")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, utils.NewAppError("registry.artifact", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s@%s", ErrModelNotFound, name, version)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewAppError("registry.artifact",
			fmt.Sprintf("registry returned %s", resp.Status), nil)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.NewAppError("registry.artifact", "read body", err)
	}
	if len(payload) == 0 {
		return nil, utils.NewAppError("registry.artifact", "empty artifact", nil)
	}

	// Best effort; the artifact is served fine without the cache.
	_ = c.cache.Set(ctx, cacheKey, payload, c.artifactTTL)

	return payload, nil
}

// Upload stores an artifact under name/version and registers its metadata.
func (c *Client) Upload(ctx context.Context, name, version string, artifact []byte, meta Metadata) error {
	if c.baseURL == "" {
		return utils.NewAppError("registry.upload", "registry base URL not configured", nil)
	}
	if len(artifact) == 0 {
		return utils.NewAppError("registry.upload", "empty artifact", nil)
	}

	artifactURL := c.resolvePath(c.modelsPath, name, "versions", version, "artifact")
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, artifactURL, bytes.NewReader(artifact))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return utils.NewAppError("registry.upload", "artifact upload failed", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return utils.NewAppError("registry.upload",
			fmt.Sprintf("artifact upload returned %s", resp.Status), nil)
	}

	record := ModelVersion{
		Name:      name,
		Version:   version,
		Framework: meta.Framework,
		Task:      meta.Task,
		TrainedAt: meta.TrainedAt,
	}
	body, err := json.Marshal(record)
	if err != nil {
		return utils.NewAppError("registry.upload", "marshal version record", err)
	}

	versionsURL := c.resolvePath(c.modelsPath, name, "versions")
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, versionsURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = c.httpClient.Do(req)
	if err != nil {
		return utils.NewAppError("registry.upload", "version registration failed", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return utils.NewAppError("registry.upload",
			fmt.Sprintf("version registration returned %s", resp.Status), nil)
	}

	// The old artifact for this name:version, if any, is now stale.
	_ = c.cache.Del(ctx, fmt.Sprintf("delay-engine:artifact:%s:%s", name, version))

	return nil
}

func (c *Client) resolvePath(parts ...string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(path.Join(parts...), "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}
