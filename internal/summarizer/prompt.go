package summarizer

import (
	"strings"

	"golang.org/x/text/cases"
)

const promptTemplate = `请对以下YouTube视频进行专业总结，要求：

**总结结构：**
1. **关键要点** (3-5个核心观点)
2. **主要内容** (按逻辑分段总结)
3. **重要概念/术语** (技术名词保持英文)
4. **实用价值** (适用场景/受众)

**格式要求：**
- 使用Markdown格式
- 中文输出，技术术语保持英文
- 重点内容使用**加粗**
- 代码/命令使用` + "`代码块`" + `

视频标题：{{title}}

字幕内容：
{{captions}}`

type topicFocus struct {
	keywords []string
	focus    string
}

// Checked in order; the first topic whose keyword appears in the title wins.
var topicFocuses = []topicFocus{
	{keywords: []string{"git", "github"}, focus: "Git命令、GitHub功能、版本控制概念"},
	{keywords: []string{"linux", "command"}, focus: "Linux命令语法、参数说明、使用场景"},
	{keywords: []string{"programming", "code"}, focus: "编程概念、代码示例、最佳实践"},
}

var folder = cases.Fold()

// BuildPrompt embeds the title and caption text in the fixed Chinese
// summary instruction. Titles that mention a known technical topic get an
// extra focus line.
func BuildPrompt(title, captions string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "(未知标题)"
	}
	prompt := strings.NewReplacer("{{title}}", title, "{{captions}}", captions).Replace(promptTemplate)
	if focus := focusFor(title); focus != "" {
		prompt += "\n\n**特别关注：** " + focus
	}
	return prompt
}

func focusFor(title string) string {
	folded := folder.String(title)
	for _, topic := range topicFocuses {
		for _, keyword := range topic.keywords {
			if strings.Contains(folded, keyword) {
				return topic.focus
			}
		}
	}
	return ""
}
