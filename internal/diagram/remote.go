package diagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	dgerr "git.home.luguber.info/inful/docgen/internal/errors"
)

// RemoteHTTP renders diagrams through a kroki-style endpoint that accepts the
// raw mermaid source as the request body and answers with image bytes.
type RemoteHTTP struct {
	url    string
	client *http.Client
}

// NewRemoteHTTP builds a remote backend posting to url.
func NewRemoteHTTP(url string, client *http.Client) *RemoteHTTP {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteHTTP{url: url, client: client}
}

func (r *RemoteHTTP) Name() string { return "remote" }

func (r *RemoteHTTP) Render(ctx context.Context, source, outPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(source))
	if err != nil {
		return dgerr.Wrap(err, dgerr.CategoryRender, dgerr.SeverityError, "build render request")
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := r.client.Do(req)
	if err != nil {
		return dgerr.WrapRetryable(err, dgerr.CategoryNetwork, dgerr.SeverityError, "post diagram source")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return dgerr.New(dgerr.CategoryRender, dgerr.SeverityError,
			fmt.Sprintf("render service returned %d: %s", resp.StatusCode, string(body)))
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return dgerr.Wrap(err, dgerr.CategoryRender, dgerr.SeverityError, "create output directory")
	}
	f, err := os.Create(outPath)
	if err != nil {
		return dgerr.Wrap(err, dgerr.CategoryRender, dgerr.SeverityError, "create output file")
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(outPath)
		return dgerr.Wrap(err, dgerr.CategoryRender, dgerr.SeverityError, "write image bytes")
	}
	return nil
}
