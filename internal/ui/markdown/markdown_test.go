package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderParagraphAndEmphasis(t *testing.T) {
	out := Render("**3 shipments** are affected by the *port closure*.", 80)
	assert.Equal(t, "3 shipments are affected by the port closure.", out)
}

func TestRenderLists(t *testing.T) {
	out := Render("Affected:\n\n- SHP-001\n- SHP-002\n\n1. reroute\n2. delay\n", 80)

	assert.Contains(t, out, "Affected:")
	assert.Contains(t, out, "• SHP-001\n• SHP-002")
	assert.Contains(t, out, "1. reroute\n2. delay")
}

func TestRenderHeadingAndCode(t *testing.T) {
	out := Render("## Impact\n\nUse `max_cost` wisely.\n\n```\nline one\nline two\n```\n", 80)

	assert.True(t, strings.HasPrefix(out, "Impact"))
	assert.Contains(t, out, "Use max_cost wisely.")
	assert.Contains(t, out, "line one\nline two")
}

func TestRenderWrapsToWidth(t *testing.T) {
	out := Render(strings.Repeat("word ", 20), 20)

	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(line), 20)
	}
	assert.Greater(t, strings.Count(out, "\n"), 2)
}

func TestRenderLink(t *testing.T) {
	out := Render("See [the route](https://example.com/r/7).", 0)
	assert.Equal(t, "See the route (https://example.com/r/7).", out)
}
