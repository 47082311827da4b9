package selector

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `
<ul id="news">
  <li class="item" data-id="1">
    <h2 class="title"> First post </h2>
    <a class="link" href="/posts/1">read</a>
    <span class="meta"><a href="/u/alice">alice</a><a href="/c/1">3 comments</a></span>
  </li>
  <li class="item ad">
    <h2 class="title">Sponsored</h2>
  </li>
  <li class="item" data-id="3">
    <h2 class="title">Third post</h2>
    <a class="link" title="  spaced  ">no href</a>
  </li>
</ul>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParse(t *testing.T) {
	chain, err := Parse("next().find(span.subline a).last().attr(href)")
	require.NoError(t, err)

	assert.Equal(t, Chain{
		{Kind: Next},
		{Kind: Find, Arg: "span.subline a"},
		{Kind: Last},
		{Kind: Attr, Arg: "href"},
	}, chain)
}

func TestParse_NestedAndQuotedArguments(t *testing.T) {
	chain, err := Parse(` find(li:not(.ad)) . eq(-1) . attr('data-id') `)
	require.NoError(t, err)
	require.Len(t, chain, 3)

	assert.Equal(t, Op{Kind: Find, Arg: "li:not(.ad)"}, chain[0])
	assert.Equal(t, Op{Kind: Eq, Arg: "-1", Index: -1}, chain[1])
	assert.Equal(t, Op{Kind: Attr, Arg: "data-id"}, chain[2])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want error
	}{
		{"empty", "   ", ErrSyntax},
		{"unknown operation", "find(a).children()", ErrUnknownOperation},
		{"non-integer index", "find(a).eq(two)", ErrInvalidIndex},
		{"unbalanced", "find(a", ErrSyntax},
		{"missing dot", "find(a)text()", ErrSyntax},
		{"trailing dot", "find(a).", ErrSyntax},
		{"missing parens", "find", ErrSyntax},
		{"argument on text", "text(a)", ErrSyntax},
		{"missing find argument", "find().text()", ErrSyntax},
		{"missing attr argument", "attr()", ErrSyntax},
		{"bad selector", "find(a[).text()", ErrInvalidSelector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.expr)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestKind_Terminal(t *testing.T) {
	assert.True(t, Text.Terminal())
	assert.True(t, Attr.Terminal())
	assert.False(t, Find.Terminal())
	assert.Equal(t, "closest", Closest.String())
}

func TestEvaluate(t *testing.T) {
	doc := mustDoc(t, listingHTML)
	items := doc.Find("li.item")
	first := items.Eq(0)
	third := items.Eq(2)

	tests := []struct {
		name string
		sel  *goquery.Selection
		expr string
		want string
	}{
		{"trimmed text", first, "find(h2.title).text()", "First post"},
		{"attribute", first, "find(a.link).attr(href)", "/posts/1"},
		{"last of many", first, "find(span.meta a).last().attr(href)", "/c/1"},
		{"first of many", first, "find(span.meta a).first().text()", "alice"},
		{"eq index", first, "find(span.meta a).eq(1).text()", "3 comments"},
		{"negative eq", first, "find(span.meta a).eq(-2).text()", "alice"},
		{"missing attribute", third, "find(a.link).attr(href)", ""},
		{"attribute value verbatim", third, "find(a.link).attr(title)", "  spaced  "},
		{"empty set text", first, "find(.nothing).text()", ""},
		{"empty set attr", first, "find(.nothing).attr(href)", ""},
		{"no terminal falls back to text", first, "find(h2.title)", "First post"},
		{"next sibling", first, "next().find(h2).text()", "Sponsored"},
		{"filtered next misses", first, "next(.nope).text()", ""},
		{"prev filtered", third, "prev(.ad).find(h2).text()", "Sponsored"},
		{"parent", first, "find(h2.title).parent().attr(data-id)", "1"},
		{"parent filtered", first, "find(a.link).parent(li).attr(data-id)", "1"},
		{"closest", first, "find(span.meta a).first().closest(ul).attr(id)", "news"},
		{"terminal stops evaluation", first, "find(h2.title).text().find(a)", "First post"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, tt.sel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_ParseErrorIsReturned(t *testing.T) {
	doc := mustDoc(t, listingHTML)

	_, err := Evaluate("find(h2).bogus()", doc.Selection)
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestEvaluate_HackerNewsRows(t *testing.T) {
	html := `<table>
<tr class="athing submission" id="1"><td class="title"><span class="titleline"><a href="https://ratatui.rs/showcase/apps/">Ratatui – App Showcase</a></span></td></tr><tr><td class="subtext"><span class="subline"><a href="user?id=AbuAssar" class="hnuser">AbuAssar</a> <span class="age"><a href="item?id=1">4 hours ago</a></span> | <a href="item?id=1">61 comments</a></span></td></tr>
</table>`
	doc := mustDoc(t, html)
	row := doc.Find("tr.athing").First()

	title, err := Evaluate("find(span.titleline a).text()", row)
	require.NoError(t, err)
	assert.Equal(t, "Ratatui – App Showcase", title)

	url, err := Evaluate("next().find(span.subline a).last().attr(href)", row)
	require.NoError(t, err)
	assert.Equal(t, "item?id=1", url)
}
