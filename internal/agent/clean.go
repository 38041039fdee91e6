package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// LLM responses occasionally arrive wrapped in a JSON envelope or with
// HTML tables despite the system prompt. CleanResponse normalizes both
// back to plain markdown before the text reaches a report.
func CleanResponse(content string) string {
	content = stripJSONEnvelope(content)
	content = stripCodeFence(content)
	content = convertHTMLTables(content)
	content = stripHTMLTags(content)
	return strings.TrimSpace(content)
}

// stripJSONEnvelope unwraps {"text": "..."} / {"content": "..."} style
// responses some serving endpoints produce.
func stripJSONEnvelope(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return content
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return content
	}
	for _, key := range []string{"text", "content", "markdown", "response"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var inner string
		if err := json.Unmarshal(raw, &inner); err == nil && strings.TrimSpace(inner) != "" {
			return inner
		}
	}
	return content
}

var fenceRe = regexp.MustCompile("(?s)^```(?:markdown|md)?\\s*\\n(.*)\\n```\\s*$")

func stripCodeFence(content string) string {
	if m := fenceRe.FindStringSubmatch(strings.TrimSpace(content)); m != nil {
		return m[1]
	}
	return content
}

var (
	tableRe = regexp.MustCompile(`(?is)<table[^>]*>(.*?)</table>`)
	rowRe   = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	cellRe  = regexp.MustCompile(`(?is)<t[hd][^>]*>(.*?)</t[hd]>`)
	tagRe   = regexp.MustCompile(`(?s)<[^>]+>`)
	brRe    = regexp.MustCompile(`(?i)<br\s*/?>`)
)

// convertHTMLTables rewrites <table> blocks as markdown pipe tables. The
// first row becomes the header regardless of th/td usage.
func convertHTMLTables(content string) string {
	return tableRe.ReplaceAllStringFunc(content, func(block string) string {
		rows := rowRe.FindAllStringSubmatch(block, -1)
		if len(rows) == 0 {
			return ""
		}
		var b strings.Builder
		b.WriteString("\n")
		for i, row := range rows {
			cells := cellRe.FindAllStringSubmatch(row[1], -1)
			if len(cells) == 0 {
				continue
			}
			b.WriteString("|")
			for _, cell := range cells {
				text := strings.TrimSpace(tagRe.ReplaceAllString(cell[1], " "))
				text = strings.Join(strings.Fields(text), " ")
				b.WriteString(" " + text + " |")
			}
			b.WriteString("\n")
			if i == 0 {
				b.WriteString("|")
				for range cells {
					b.WriteString("---|")
				}
				b.WriteString("\n")
			}
		}
		return b.String()
	})
}

// stripHTMLTags removes leftover inline tags (<b>, <br>, stray <td>)
// outside of converted tables.
func stripHTMLTags(content string) string {
	if !strings.Contains(content, "<") {
		return content
	}
	content = brRe.ReplaceAllString(content, "\n")
	return tagRe.ReplaceAllString(content, "")
}
