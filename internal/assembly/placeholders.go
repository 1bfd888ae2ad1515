package assembly

import (
	"fmt"
	"strings"
)

const (
	imagePlaceholderPrefix = "[IMAGE:"
	codeBlockMarker        = "\x00CODE_BLOCK_%d\x00"

	codeMarkerStart = "CODE_BLOCK_START"
	codeMarkerEnd   = "CODE_BLOCK_END"
)

// normalizeCodeMarkers rewrites CODE_BLOCK_START/CODE_BLOCK_END delimiter
// lines, which some model outputs use instead of fences, into standard
// fences so the rest of assembly sees one delimiter form. Marker text
// inside an existing fence is left alone.
func normalizeCodeMarkers(content string) string {
	if !strings.Contains(content, codeMarkerStart) && !strings.Contains(content, codeMarkerEnd) {
		return content
	}
	lines := strings.Split(content, "\n")
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if strings.Contains(trimmed, codeMarkerStart) || strings.Contains(trimmed, codeMarkerEnd) {
			lines[i] = "```"
		}
	}
	return strings.Join(lines, "\n")
}

// embedImages replaces [IMAGE: description] placeholder lines with the
// captured images, in order. Placeholders beyond the available images become
// italic notes; leftover images are appended at the end of the section.
// Fenced code blocks are protected so placeholder-looking text inside them
// survives untouched.
func embedImages(content string, images []Image) string {
	if !strings.Contains(content, imagePlaceholderPrefix) && len(images) == 0 {
		return content
	}

	protected, blocks := protectCodeBlocks(content)

	next := 0
	lines := strings.Split(protected, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, imagePlaceholderPrefix) || !strings.HasSuffix(trimmed, "]") {
			continue
		}
		desc := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(trimmed, imagePlaceholderPrefix), "]"))
		if next < len(images) {
			img := images[next]
			if img.Caption == "" {
				img.Caption = desc
			}
			lines[i] = imageMarkdown(img)
			next++
		} else {
			lines[i] = fmt.Sprintf("*Screenshot not captured: %s*", desc)
		}
	}
	result := strings.Join(lines, "\n")

	for ; next < len(images); next++ {
		result += "\n\n" + imageMarkdown(images[next])
	}

	return restoreCodeBlocks(result, blocks)
}

// protectCodeBlocks swaps fenced code blocks for opaque markers.
func protectCodeBlocks(content string) (string, []string) {
	var (
		out    strings.Builder
		block  strings.Builder
		blocks []string
		inside bool
	)
	for _, line := range strings.SplitAfter(content, "\n") {
		fence := strings.HasPrefix(strings.TrimSpace(line), "```")
		switch {
		case fence && !inside:
			inside = true
			block.Reset()
			block.WriteString(line)
		case fence && inside:
			inside = false
			block.WriteString(line)
			fmt.Fprintf(&out, codeBlockMarker+"\n", len(blocks))
			blocks = append(blocks, block.String())
		case inside:
			block.WriteString(line)
		default:
			out.WriteString(line)
		}
	}
	if inside {
		// Unterminated fence, keep it verbatim.
		out.WriteString(block.String())
	}
	return out.String(), blocks
}

func restoreCodeBlocks(content string, blocks []string) string {
	for i, block := range blocks {
		marker := fmt.Sprintf(codeBlockMarker+"\n", i)
		content = strings.Replace(content, marker, block, 1)
	}
	return content
}
