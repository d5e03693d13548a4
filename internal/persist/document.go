package persist

import (
	"strings"
)

const summaryUnavailable = "AI总结失败，请稍后重试。"

// Entry is everything persisted for one processed video.
type Entry struct {
	Ref   string
	Title string
	URL   string
	// Captions is the cleaned text embedded in the summary document.
	Captions string
	// RawCaptions is the subtitle track as fetched, written to the caption
	// file. Sources without one fall back to Captions.
	RawCaptions string
	Summary     string
	Thinking    string
}

func (e Entry) heading() string {
	if title := strings.TrimSpace(e.Title); title != "" {
		return title
	}
	return strings.TrimSpace(e.Ref)
}

// RenderMarkdown lays out the summary document: title, link, optional
// reasoning block, summary, then the caption text.
func RenderMarkdown(e Entry) string {
	var b strings.Builder
	b.WriteString("# " + e.heading() + "\n\n")
	if url := strings.TrimSpace(e.URL); url != "" {
		b.WriteString("**视频链接**: [" + url + "](" + url + ")\n\n")
	}
	if thinking := strings.TrimSpace(e.Thinking); thinking != "" {
		b.WriteString("## AI思考过程\n\n")
		b.WriteString("```\n" + thinking + "\n```\n\n")
	}
	b.WriteString("## AI总结\n\n")
	if summary := strings.TrimSpace(e.Summary); summary != "" {
		b.WriteString(summary)
	} else {
		b.WriteString(summaryUnavailable)
	}
	b.WriteString("\n\n## 字幕内容\n\n")
	b.WriteString(e.Captions)
	b.WriteString("\n")
	return b.String()
}
