package summarize

import (
	"bytes"
	"fmt"
	"text/template"
)

// DefaultPrompt asks for a Chinese-language editorial digest. The heading
// line must match the aggregator's title prefix.
const DefaultPrompt = `你是一位资深新闻编辑，请对这份文章合集进行专业的综述。请遵循以下要求：

# 综述格式
1. 使用Markdown格式输出
2. 以'# {{.TitlePrefix}} - {{.Date}}'作为标题
3. 每篇文章的综述使用二级标题(##)，保留原文标题
4. 在每篇文章综述下注明原文发布时间
5. 综述的语言要求：简体中文

# 内容要求
1. 准确提炼每篇文章的核心论点和关键信息
2. 突出重要的数据、引用和具体事实
3. 保持客观中立的叙述语气
4. 按照文章在原文中的顺序进行综述
5. 确保对每篇文章都进行完整的总结

# 注意事项
1. 直接输出综述内容，不要加入任何与综述无关的回应性语句
2. 保持专业的编辑视角，注重新闻价值的提炼
3. 适当保留原文的叙事结构和重要细节`

type promptData struct {
	TitlePrefix string
	Date        string
}

func parsePrompt(text string) (*template.Template, error) {
	if text == "" {
		text = DefaultPrompt
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return tmpl, nil
}

func renderPrompt(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}
