// Package assembly stitches generated sections into the final documents: a
// markdown file always, plus an HTML rendering when configured.
package assembly

import (
	"bytes"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	dgerr "git.home.luguber.info/inful/docgen/internal/errors"
	"git.home.luguber.info/inful/docgen/internal/logfields"
)

// Image references a captured screenshot or rendered diagram.
type Image struct {
	Path     string // relative to the output directory
	Caption  string
	Fallback bool // text fallback rather than a real image
}

// Section is one fully generated documentation section.
type Section struct {
	Name    string
	Content string
	Images  []Image
	Diagram *Image
}

// Document is the assembled input for one run.
type Document struct {
	Title    string
	Sections []Section
}

// Paths reports where the artifacts were written.
type Paths struct {
	Markdown string
	HTML     string
}

// Assembler writes documents to the output directory.
type Assembler struct {
	outDir   string
	filename string
	withHTML bool
	log      *slog.Logger
	now      func() time.Time
}

// New creates an Assembler. filename is the markdown artifact name.
func New(outDir, filename string, withHTML bool, log *slog.Logger) *Assembler {
	if log == nil {
		log = slog.Default()
	}
	if filename == "" {
		filename = "DOCUMENTATION.md"
	}
	return &Assembler{outDir: outDir, filename: filename, withHTML: withHTML, log: log, now: time.Now}
}

// Assemble renders and writes the document artifacts.
func (a *Assembler) Assemble(doc Document) (Paths, error) {
	if err := os.MkdirAll(a.outDir, 0o755); err != nil {
		return Paths{}, dgerr.AssemblyError(err)
	}

	md := a.renderMarkdown(doc)
	mdPath := filepath.Join(a.outDir, a.filename)
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return Paths{}, dgerr.AssemblyError(err)
	}
	paths := Paths{Markdown: mdPath}
	a.log.Info("markdown written", logfields.Path(mdPath), slog.Int("bytes", len(md)))

	if a.withHTML {
		htmlPath := strings.TrimSuffix(mdPath, filepath.Ext(mdPath)) + ".html"
		rendered, err := a.renderHTML(doc.Title, md)
		if err != nil {
			return paths, dgerr.AssemblyError(err)
		}
		if err := os.WriteFile(htmlPath, rendered, 0o644); err != nil {
			return paths, dgerr.AssemblyError(err)
		}
		paths.HTML = htmlPath
		a.log.Info("html written", logfields.Path(htmlPath))
	}
	return paths, nil
}

func (a *Assembler) renderMarkdown(doc Document) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", doc.Title)
	fmt.Fprintf(&sb, "*Generated on %s*\n\n", a.now().Format("2006-01-02"))

	sb.WriteString("## Table of Contents\n\n")
	for i, s := range doc.Sections {
		fmt.Fprintf(&sb, "%d. [%s](#%s)\n", i+1, s.Name, anchor(s.Name))
	}
	sb.WriteString("\n")

	for _, s := range doc.Sections {
		body := ensureHeading(s.Name, normalizeCodeMarkers(s.Content))
		body = embedImages(body, s.Images)
		sb.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			sb.WriteString("\n")
		}
		if s.Diagram != nil {
			sb.WriteString("\n")
			sb.WriteString(imageMarkdown(*s.Diagram))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (a *Assembler) renderHTML(title, md string) ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.New().Convert([]byte(md), &body); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	fmt.Fprintf(&out, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString(title))
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

// ensureHeading guarantees the section starts with a level-2 heading carrying
// its planned name, deduplicating when the model already wrote one.
func ensureHeading(name, content string) string {
	trimmed := strings.TrimSpace(content)
	want := "## " + name
	if strings.HasPrefix(trimmed, want) {
		return trimmed + "\n"
	}
	if strings.HasPrefix(trimmed, "## ") || strings.HasPrefix(trimmed, "# ") {
		// Model chose its own heading text; replace the first heading line.
		if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
			return want + trimmed[nl:] + "\n"
		}
		return want + "\n"
	}
	return want + "\n\n" + trimmed + "\n"
}

// imageMarkdown renders one image reference, or an italic pointer for text
// fallbacks that cannot be displayed inline.
func imageMarkdown(img Image) string {
	if img.Fallback {
		return fmt.Sprintf("*Diagram source preserved at `%s` (image rendering unavailable).*", img.Path)
	}
	return fmt.Sprintf("![%s](%s)", img.Caption, img.Path)
}

func anchor(name string) string {
	s := strings.ToLower(name)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, s)
	return s
}
