package ingest

import (
	"encoding/json"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

const policyMarkdown = `---
title: Asset Loss Policy
tags: [asset, loss]
owner: it-helpdesk
---
# Asset Loss

Report a lost or stolen device
within 24 hours.

## Steps

1. Raise a TMS ticket.
2. Inform your manager.
   - include the serial number

` + "```" + `
tms new --category asset-loss
` + "```" + `

> Penalties follow annexure B.
`

func TestSplitFrontMatter(t *testing.T) {
	fm, body, err := SplitFrontMatter([]byte(policyMarkdown))
	assert.NilError(t, err)
	assert.Equal(t, fm.Title, "Asset Loss Policy")
	assert.DeepEqual(t, fm.Tags, []string{"asset", "loss"})
	assert.Equal(t, fm.Owner, "it-helpdesk")
	assert.Assert(t, strings.HasPrefix(string(body), "# Asset Loss"))
}

func TestSplitFrontMatter_None(t *testing.T) {
	src := []byte("# Title\n\ntext\n")
	fm, body, err := SplitFrontMatter(src)
	assert.NilError(t, err)
	assert.DeepEqual(t, fm, FrontMatter{})
	assert.DeepEqual(t, body, src)
}

func TestSplitFrontMatter_Unclosed(t *testing.T) {
	src := []byte("---\ntitle: x\n\n# Body\n")
	fm, body, err := SplitFrontMatter(src)
	assert.NilError(t, err)
	assert.Equal(t, fm.Title, "")
	assert.DeepEqual(t, body, src)
}

func TestSplitFrontMatter_BadYAML(t *testing.T) {
	_, _, err := SplitFrontMatter([]byte("---\ntitle: [unclosed\n---\nbody\n"))
	assert.ErrorContains(t, err, "parsing front matter")
}

func TestParse(t *testing.T) {
	_, body, err := SplitFrontMatter([]byte(policyMarkdown))
	assert.NilError(t, err)

	sections, title := Parse(body)
	assert.Equal(t, title, "Asset Loss")
	assert.Equal(t, len(sections), 4)

	assert.DeepEqual(t, sections[0], Section{Heading: "Asset Loss", Text: "Report a lost or stolen device within 24 hours."})
	assert.Equal(t, sections[1].Heading, "Steps")
	assert.Equal(t, sections[1].Text, "- Raise a TMS ticket.\n- Inform your manager.\n  - include the serial number")
	assert.Equal(t, sections[2].Text, "tms new --category asset-loss")
	assert.Equal(t, sections[3].Text, "Penalties follow annexure B.")
}

func TestCompress(t *testing.T) {
	sections := []Section{
		{Heading: "A", Text: strings.Repeat("a", 150)},
		{Text: strings.Repeat("b", 60)},
		{Text: strings.Repeat("c", 20)},
	}

	chunks := Compress(sections, 200)
	assert.Equal(t, len(chunks), 2)
	assert.Equal(t, chunks[0], "A\n"+strings.Repeat("a", 150)+"\n\n"+strings.Repeat("b", 60))
	assert.Equal(t, chunks[1], strings.Repeat("c", 20))

	assert.Equal(t, len(Compress(sections, 10_000)), 1)
	assert.Equal(t, len(Compress(nil, 200)), 0)
}

func TestMarkdownDocuments(t *testing.T) {
	docs, err := MarkdownDocuments("policies/asset-loss.md", []byte(policyMarkdown), 80)
	assert.NilError(t, err)
	assert.Assert(t, len(docs) > 1)

	assert.Equal(t, docs[0].ID, "policies/asset-loss.md#1")
	assert.Equal(t, docs[1].ID, "policies/asset-loss.md#2")
	assert.Assert(t, is.Contains(docs[0].Content, "Report a lost or stolen device"))
	assert.Assert(t, docs[0].Embedding == nil)

	var meta map[string]any
	assert.NilError(t, json.Unmarshal(docs[0].Metadata, &meta))
	assert.Equal(t, meta["source"], "policies/asset-loss.md")
	assert.Equal(t, meta["title"], "Asset Loss Policy")
	assert.DeepEqual(t, meta["tags"], []any{"asset", "loss"})
}

func TestMarkdownDocuments_TitleFallbacks(t *testing.T) {
	docs, err := MarkdownDocuments("vpn.md", []byte("# VPN Setup\n\nInstall the client.\n"), 0)
	assert.NilError(t, err)
	assert.Assert(t, is.Contains(string(docs[0].Metadata), `"title":"VPN Setup"`))

	docs, err = MarkdownDocuments("faq/printers.md", []byte("Restart the spooler.\n"), 0)
	assert.NilError(t, err)
	assert.Assert(t, is.Contains(string(docs[0].Metadata), `"title":"printers"`))
	assert.Assert(t, !strings.Contains(string(docs[0].Metadata), "tags"))
}
