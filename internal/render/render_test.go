package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/jfmyers9/nowplaying/internal/track"
)

var bruce = track.Record{
	Listener: "alice",
	Artist:   "Bruce Willis",
	Album:    "The Return of Bruno",
	Title:    "Respect Yourself",
	URL:      "https://www.last.fm/music/Bruce+Willis/_/Respect+Yourself",
	Images: track.Images{
		track.ImageSmall:      "https://img.example/s.png",
		track.ImageMedium:     "https://img.example/m.png",
		track.ImageLarge:      "https://img.example/l.png",
		track.ImageExtraLarge: "",
	},
	NowPlaying: true,
}

func TestTemplate_Execute(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "artist and title",
			src:  "{ track.artist } - { track.title }",
			want: "Bruce Willis - Respect Yourself",
		},
		{
			name: "whitespace inside braces is optional",
			src:  "{track.artist}|{  track.album\t}",
			want: "Bruce Willis|The Return of Bruno",
		},
		{
			name: "every occurrence is replaced",
			src:  "{ track.title } / { track.title }",
			want: "Respect Yourself / Respect Yourself",
		},
		{
			name: "image sizes",
			src:  `<img src="{ track.image.medium }"><img src="{ track.image.extralarge }">`,
			want: `<img src="https://img.example/m.png"><img src="">`,
		},
		{
			name: "unknown token kept verbatim",
			src:  "{ track.genre } { track.artist }",
			want: "{ track.genre } Bruce Willis",
		},
		{
			name: "unterminated token kept verbatim",
			src:  "{ track.artist",
			want: "{ track.artist",
		},
		{
			name: "plain braces untouched",
			src:  "{ color: red }",
			want: "{ color: red }",
		},
		{
			name: "no tokens",
			src:  "nothing here",
			want: "nothing here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.src).Execute(bruce))
		})
	}
}

func TestTemplate_ExecuteEscapesValues(t *testing.T) {
	rec := track.Record{Artist: `Simon & Garfunkel`, Title: `<script>"x"</script>`}
	got := Parse("{ track.artist }: { track.title }").Execute(rec)
	assert.Equal(t, "Simon &amp; Garfunkel: &lt;script&gt;&#34;x&#34;&lt;/script&gt;", got)

	plain := Parse("{ track.artist }: { track.title }").ExecuteText(rec)
	assert.Equal(t, `Simon & Garfunkel: <script>"x"</script>`, plain)
}

func TestTemplate_Tokens(t *testing.T) {
	tmpl := Parse(`<a href="{ track.url }">{ track.title }</a>{ track.nope }<img src="{track.image.small}">`)
	assert.Equal(t, []string{"url", "title", "image.small"}, tmpl.Tokens())
}

const pageSrc = `<!DOCTYPE html>
<html><head><title>np</title></head>
<body>
<h1>Now playing</h1>
<script type="text/template" id="lastfm"><div class="np"><img src="{ track.image.extralarge }"><a href="{ track.url }">{ track.artist } - { track.title }</a></div></script>
<p id="footer">footer</p>
</body></html>`

func parseDoc(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func marked(doc *html.Node, anchorID string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && attr(n, MarkerAttr) == anchorID {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func countElements(n *html.Node, tag string) int {
	count := 0
	if n.Type == html.ElementNode && n.Data == tag {
		count++
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += countElements(c, tag)
	}
	return count
}

func TestRenderer_TemplateSource(t *testing.T) {
	doc := parseDoc(t, pageSrc)
	src, err := New("lastfm").TemplateSource(doc)
	require.NoError(t, err)
	assert.Equal(t, `<div class="np"><img src="{ track.image.extralarge }"><a href="{ track.url }">{ track.artist } - { track.title }</a></div>`, src)
}

func TestRenderer_MountInsertsAfterAnchor(t *testing.T) {
	doc := parseDoc(t, pageSrc)
	r := New("lastfm")

	src, err := r.TemplateSource(doc)
	require.NoError(t, err)
	require.NoError(t, r.Mount(doc, Parse(src).Execute(bruce)))

	anchor := FindByID(doc, "lastfm")
	require.NotNil(t, anchor)
	next := anchor.NextSibling
	require.NotNil(t, next)
	assert.Equal(t, "div", next.Data)
	assert.Equal(t, "lastfm", attr(next, MarkerAttr))

	var b strings.Builder
	require.NoError(t, html.Render(&b, next))
	assert.Contains(t, b.String(), "Bruce Willis - Respect Yourself")
	assert.Contains(t, b.String(), `href="https://www.last.fm/music/Bruce+Willis/_/Respect+Yourself"`)

	assert.NotNil(t, FindByID(doc, "footer"))
}

func TestRenderer_MountReplacesPreviousRender(t *testing.T) {
	doc := parseDoc(t, pageSrc)
	r := New("lastfm")
	tmpl := Parse(`<div class="np">{ track.title }</div>`)

	require.NoError(t, r.Mount(doc, tmpl.Execute(bruce)))
	second := bruce
	second.Title = "Under the Boardwalk"
	require.NoError(t, r.Mount(doc, tmpl.Execute(second)))

	nodes := marked(doc, "lastfm")
	require.Len(t, nodes, 1)
	assert.Equal(t, "Under the Boardwalk", nodes[0].FirstChild.Data)
	assert.Len(t, r.Mounted(), 1)
}

func TestRenderer_MountRemovesRenderFromEarlierRun(t *testing.T) {
	doc := parseDoc(t, `<html><body><template id="lastfm">x</template><div data-nowplaying="lastfm">stale</div><div data-nowplaying="other">keep</div></body></html>`)

	require.NoError(t, New("lastfm").Mount(doc, `<div>fresh</div>`))

	nodes := marked(doc, "lastfm")
	require.Len(t, nodes, 1)
	assert.Equal(t, "fresh", nodes[0].FirstChild.Data)
	assert.Len(t, marked(doc, "other"), 1)
}

func TestRenderer_MountDropsEmptyImages(t *testing.T) {
	doc := parseDoc(t, pageSrc)
	r := New("lastfm")

	// Extra large is empty for this record.
	src, err := r.TemplateSource(doc)
	require.NoError(t, err)
	require.NoError(t, r.Mount(doc, Parse(src).Execute(bruce)))

	nodes := marked(doc, "lastfm")
	require.Len(t, nodes, 1)
	assert.Equal(t, 0, countElements(nodes[0], "img"))

	// A top-level image without a source is dropped entirely.
	require.NoError(t, r.Mount(doc, Parse(`<img src="{ track.image.extralarge }"><img src="{ track.image.small }">`).Execute(bruce)))
	nodes = marked(doc, "lastfm")
	require.Len(t, nodes, 1)
	assert.Equal(t, "https://img.example/s.png", attr(nodes[0], "src"))
}

func TestRenderer_MountWrapsBareText(t *testing.T) {
	doc := parseDoc(t, pageSrc)
	r := New("lastfm")

	require.NoError(t, r.Mount(doc, Parse("{ track.artist } - { track.title }").Execute(bruce)))
	require.NoError(t, r.Mount(doc, Parse("{ track.artist } - { track.title }").Execute(bruce)))

	nodes := marked(doc, "lastfm")
	require.Len(t, nodes, 1)
	assert.Equal(t, "span", nodes[0].Data)
	assert.Equal(t, "Bruce Willis - Respect Yourself", nodes[0].FirstChild.Data)
}

func TestRenderer_AnchorMissing(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>no anchor</p></body></html>`)
	r := New("lastfm")

	err := r.Mount(doc, "<div>x</div>")
	assert.ErrorIs(t, err, ErrAnchorNotFound)

	_, err = r.TemplateSource(doc)
	assert.ErrorIs(t, err, ErrAnchorNotFound)
}
