package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	docxFont     = "Times New Roman"
	docxFontSize = 13
	docxColor    = "000000"
)

var (
	headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	boldPattern    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	bulletPattern  = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
	linkPattern    = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	fencePattern   = regexp.MustCompile("^```")
)

// writeDocx renders the summary document as a Word file. godocx only saves
// by name, so the file is saved beside the target and renamed into place.
func writeDocx(path string, e Entry) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("new document: %w", err)
	}

	lines := strings.Split(RenderMarkdown(e), "\n")
	inFence := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if fencePattern.MatchString(trimmed) {
			inFence = !inFence
			continue
		}
		if trimmed == "" || trimmed == "---" {
			continue
		}
		if inFence {
			doc.AddParagraph("").AddText(trimmed).Font(docxFont).Size(docxFontSize - 2).Color("555555")
			continue
		}
		if m := headingPattern.FindStringSubmatch(trimmed); m != nil {
			addStyledRun(doc.AddParagraph(""), m[2], true, headingSize(len(m[1])))
			continue
		}
		if m := bulletPattern.FindStringSubmatch(trimmed); m != nil {
			addRichText(doc.AddParagraph(""), "• "+m[1])
			continue
		}
		addRichText(doc.AddParagraph(""), trimmed)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ytdigest-*.docx")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	if err := doc.SaveTo(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("save document: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 15
	case 3:
		return 14
	default:
		return docxFontSize
	}
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(cleanInline(text)).Font(docxFont).Size(size).Color(docxColor)
	if bold {
		run.Bold(true)
	}
}

func addRichText(p *docx.Paragraph, text string) {
	parts := boldPattern.Split(text, -1)
	matches := boldPattern.FindAllStringSubmatch(text, -1)
	for i, part := range parts {
		if part != "" {
			p.AddText(cleanInline(part)).Font(docxFont).Size(docxFontSize).Color(docxColor)
		}
		if i < len(matches) {
			p.AddText(cleanInline(matches[i][1])).Font(docxFont).Size(docxFontSize).Color(docxColor).Bold(true)
		}
	}
}

func cleanInline(s string) string {
	s = linkPattern.ReplaceAllString(s, "$2")
	return strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
}
