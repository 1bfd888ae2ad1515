// Package loader gathers the codebase context fed into generation prompts.
// Context comes from one of three sources: a pre-packed bundle file, a local
// directory scan, or a cloned remote repository that is then scanned.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/docgen/internal/config"
	dgerr "git.home.luguber.info/inful/docgen/internal/errors"
	"git.home.luguber.info/inful/docgen/internal/logfields"
)

// defaultExcludedDirs are skipped in every scan on top of the configured
// exclusions.
var defaultExcludedDirs = []string{
	".git", "node_modules", "vendor", "dist", "build",
	"__pycache__", ".venv", "target", ".idea", ".vscode",
}

// sourceExtensions marks files worth including in the context bundle.
var sourceExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".rs": true,
	".java": true, ".rb": true, ".c": true, ".h": true, ".cpp": true,
	".md": true, ".yaml": true, ".yml": true, ".toml": true, ".json": true,
	".sh": true, ".sql": true, ".proto": true, ".mod": true,
}

// Loader assembles project context according to configuration.
type Loader struct {
	project config.ProjectConfig
	cfg     config.ContextConfig
	log     *slog.Logger
}

// New creates a Loader.
func New(project config.ProjectConfig, cfg config.ContextConfig, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{project: project, cfg: cfg, log: log}
}

// Load returns the context bundle text.
func (l *Loader) Load(ctx context.Context) (string, error) {
	if l.cfg.UseBundle && l.cfg.BundlePath != "" {
		data, err := os.ReadFile(l.cfg.BundlePath)
		if err != nil {
			return "", dgerr.ContextLoadError(l.cfg.BundlePath, err)
		}
		l.log.Info("loaded context bundle",
			logfields.Path(l.cfg.BundlePath), slog.Int("bytes", len(data)))
		return string(data), nil
	}

	root := l.project.Path
	if l.project.RepoURL != "" {
		cloned, cleanup, err := l.clone(ctx)
		if err != nil {
			return "", err
		}
		defer cleanup()
		root = cloned
	}
	if root == "" {
		return "", dgerr.ConfigRequired("project.path")
	}
	return l.scan(root)
}

// clone fetches the remote repository into a temp directory. The returned
// cleanup removes the checkout.
func (l *Loader) clone(ctx context.Context) (string, func(), error) {
	dir, err := os.MkdirTemp("", "docgen-clone-*")
	if err != nil {
		return "", nil, dgerr.ContextLoadError("temp dir", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	l.log.Info("cloning repository", slog.String("url", l.project.RepoURL))
	_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:   l.project.RepoURL,
		Depth: 1,
	})
	if err != nil {
		cleanup()
		return "", nil, classifyCloneError(l.project.RepoURL, err)
	}
	return dir, cleanup, nil
}

// classifyCloneError splits permanent clone failures (bad credentials,
// missing repository) from transient ones worth retrying on a later run.
func classifyCloneError(url string, err error) error {
	e := dgerr.GitCloneError(url, err)
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed),
		errors.Is(err, transport.ErrRepositoryNotFound):
		// Permanent: retrying the same URL cannot help.
	default:
		e.Retryable = true
	}
	return e
}

type contextFile struct {
	path string
	size int64
}

// scan walks root collecting source and documentation files into a single
// bundle string. README files sort first so the model sees the project's own
// introduction before its code.
func (l *Loader) scan(root string) (string, error) {
	excluded := make(map[string]bool, len(defaultExcludedDirs)+len(l.cfg.ExcludedDirs))
	for _, d := range defaultExcludedDirs {
		excluded[d] = true
	}
	for _, d := range l.cfg.ExcludedDirs {
		excluded[d] = true
	}

	maxBytes := int64(l.cfg.MaxFileKB) * 1024
	var files []contextFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if excluded[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if maxBytes > 0 && info.Size() > maxBytes {
			l.log.Debug("skipping oversize file",
				logfields.Path(path), slog.Int64("bytes", info.Size()))
			return nil
		}
		files = append(files, contextFile{path: path, size: info.Size()})
		return nil
	})
	if err != nil {
		return "", dgerr.ContextLoadError(root, err)
	}
	if len(files) == 0 {
		return "", dgerr.ContextLoadError(root, fmt.Errorf("no source files found"))
	}

	sort.SliceStable(files, func(i, j int) bool {
		return scanRank(files[i].path) < scanRank(files[j].path)
	})
	if l.cfg.MaxFiles > 0 && len(files) > l.cfg.MaxFiles {
		l.log.Info("context capped",
			slog.Int("files", l.cfg.MaxFiles), slog.Int("found", len(files)))
		files = files[:l.cfg.MaxFiles]
	}

	var sb strings.Builder
	for _, f := range files {
		data, err := os.ReadFile(f.path)
		if err != nil {
			l.log.Warn("skipping unreadable file", logfields.Path(f.path), logfields.Error(err))
			continue
		}
		rel, rerr := filepath.Rel(root, f.path)
		if rerr != nil {
			rel = f.path
		}
		fmt.Fprintf(&sb, "=== %s ===\n%s\n\n", filepath.ToSlash(rel), data)
	}
	return sb.String(), nil
}

// scanRank orders README first, other markdown next, then source files.
func scanRank(path string) int {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasPrefix(base, "readme"):
		return 0
	case strings.HasSuffix(base, ".md"):
		return 1
	default:
		return 2
	}
}
