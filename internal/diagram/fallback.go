package diagram

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fallbackNote heads text fallbacks so readers of the generated docs
// understand why an image is missing and how to render the source by hand.
const fallbackNote = "Diagram could not be rendered as an image (%s).\n" +
	"Paste the mermaid source below into https://mermaid.live to render it manually.\n"

// WriteFallback writes the original diagram source verbatim next to where
// the image would have lived, with a .mmd.txt suffix replacing the image
// extension. The note names the failure reason. It returns the path
// actually written.
func WriteFallback(source, imagePath, reason string) (string, error) {
	path := FallbackPath(imagePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, err
	}
	if reason == "" {
		reason = "unknown failure"
	}
	content := fmt.Sprintf(fallbackNote+"\n%s\n", reason, source)
	return path, os.WriteFile(path, []byte(content), 0o644)
}

// FallbackPath maps an intended image path to its text fallback path.
func FallbackPath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + ".mmd.txt"
}
