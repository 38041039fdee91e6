package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanResponsePassesMarkdownThrough(t *testing.T) {
	in := "# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |"
	require.Equal(t, in, CleanResponse(in))
}

func TestCleanResponseUnwrapsJSONEnvelope(t *testing.T) {
	in := `{"text": "# Report\n\nbody"}`
	require.Equal(t, "# Report\n\nbody", CleanResponse(in))

	in = `{"content": "plain answer"}`
	require.Equal(t, "plain answer", CleanResponse(in))
}

func TestCleanResponseLeavesNonEnvelopeJSONAlone(t *testing.T) {
	in := `{"foo": 1}`
	require.Equal(t, in, CleanResponse(in))
}

func TestCleanResponseStripsCodeFence(t *testing.T) {
	in := "```markdown\n# Report\n```"
	require.Equal(t, "# Report", CleanResponse(in))
}

func TestCleanResponseConvertsHTMLTable(t *testing.T) {
	in := "before\n<table><tr><th>Name</th><th>Count</th></tr><tr><td>jobs</td><td>3</td></tr></table>\nafter"
	out := CleanResponse(in)
	require.Contains(t, out, "| Name | Count |")
	require.Contains(t, out, "|---|---|")
	require.Contains(t, out, "| jobs | 3 |")
	require.NotContains(t, out, "<table>")
	require.NotContains(t, out, "<td>")
}

func TestCleanResponseStripsInlineTags(t *testing.T) {
	out := CleanResponse("some <b>bold</b> text<br>next line")
	require.Equal(t, "some bold text\nnext line", out)
}

func TestPromptsForFallsBack(t *testing.T) {
	require.Equal(t, catalog["pt-BR"], PromptsFor(""))
	require.Equal(t, catalog["pt-BR"], PromptsFor("pt"))
	require.Equal(t, catalog["en"], PromptsFor("en"))
	require.Equal(t, catalog["en"], PromptsFor("fr-FR"))
}

func TestPromptTemplatesCarryPlaceholders(t *testing.T) {
	for tag, p := range catalog {
		require.True(t, strings.Contains(p.SummaryPrompt, "{inventory}"), "summary prompt for %s", tag)
		require.True(t, strings.Contains(p.DetailedPrompt, "{inventory}"), "detailed prompt for %s", tag)
		require.True(t, strings.Contains(p.UCXPrompt, "{ucx}"), "ucx prompt for %s", tag)
	}
}
