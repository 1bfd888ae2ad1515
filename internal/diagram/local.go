package diagram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	dgerr "git.home.luguber.info/inful/docgen/internal/errors"
)

// LocalCLI renders diagrams via an installed mermaid CLI (mmdc by default).
type LocalCLI struct {
	bin     string
	timeout time.Duration
}

// NewLocalCLI builds a local backend. timeout bounds a single invocation.
func NewLocalCLI(bin string, timeout time.Duration) *LocalCLI {
	return &LocalCLI{bin: bin, timeout: timeout}
}

func (l *LocalCLI) Name() string { return "local" }

// Render writes source to a scratch file and invokes the CLI. Failures are
// classified by error type so callers can tell a missing binary from a
// timeout or a render error.
func (l *LocalCLI) Render(ctx context.Context, source, outPath string) error {
	tmp, err := os.CreateTemp("", "docgen-*.mmd")
	if err != nil {
		return dgerr.Wrap(err, dgerr.CategoryRender, dgerr.SeverityError, "create scratch file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(source); err != nil {
		tmp.Close()
		return dgerr.Wrap(err, dgerr.CategoryRender, dgerr.SeverityError, "write scratch file")
	}
	if err := tmp.Close(); err != nil {
		return dgerr.Wrap(err, dgerr.CategoryRender, dgerr.SeverityError, "close scratch file")
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return dgerr.Wrap(err, dgerr.CategoryRender, dgerr.SeverityError, "create output directory")
	}

	runCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, l.bin, "-i", tmp.Name(), "-o", outPath)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return dgerr.New(dgerr.CategoryRender, dgerr.SeverityError, fmt.Sprintf("%s timed out after %s", l.bin, l.timeout))
	case isBinaryMissing(err):
		return dgerr.New(dgerr.CategoryRender, dgerr.SeverityError, fmt.Sprintf("%s not installed", l.bin))
	default:
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			return dgerr.New(dgerr.CategoryRender, dgerr.SeverityError,
				fmt.Sprintf("%s exited with code %d: %s", l.bin, exit.ExitCode(), truncateOutput(out)))
		}
		return dgerr.Wrap(err, dgerr.CategoryRender, dgerr.SeverityError, "invoke "+l.bin)
	}
}

func isBinaryMissing(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound)
}

func truncateOutput(out []byte) string {
	const limit = 200
	if len(out) > limit {
		out = out[:limit]
	}
	return string(out)
}
