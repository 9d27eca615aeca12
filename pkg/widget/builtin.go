package widget

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"

	"github.com/fourbar/fourbar/pkg/dom"
	"github.com/fourbar/fourbar/pkg/errors"
)

// Built-in widget type names.
const (
	TypeYouTube     = "youtube"
	TypeTwitter     = "twitter"
	TypeMarkdown    = "markdown"
	TypeTournaments = "tournaments"
)

// =============================================================================
// YouTube
// =============================================================================

var videoIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// YouTube embeds a video player. Data: {"url": "..."}.
type YouTube struct{}

// Validate implements [Validator].
func (YouTube) Validate(d Data) error {
	_, err := VideoID(d.String("url"))
	return err
}

// Render implements [Widget].
func (y YouTube) Render(d Data, _ *html.Node) (*html.Node, error) {
	id, err := VideoID(d.String("url"))
	if err != nil {
		return nil, err
	}
	return dom.Element("iframe",
		"class", "youtube-embed",
		"src", "https://www.youtube.com/embed/"+id,
		"frameborder", "0",
		"allowfullscreen", "",
	), nil
}

// VideoID extracts the video id from watch, short-link, embed and shorts URLs.
func VideoID(raw string) (string, error) {
	if err := errors.ValidateURL(raw); err != nil {
		return "", err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "parse video url")
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "youtube-nocookie.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.TrimPrefix(u.Path, "/embed/")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.TrimPrefix(u.Path, "/shorts/")
		}
	default:
		return "", errors.New(errors.ErrCodeInvalidInput, "not a YouTube URL: %s", raw)
	}

	if !videoIDRegex.MatchString(id) {
		return "", errors.New(errors.ErrCodeInvalidInput, "no video id in %s", raw)
	}
	return id, nil
}

// =============================================================================
// Twitter
// =============================================================================

// Twitter renders a follow button. Data: {"handle": "@name", "color"?: "#hex"}.
type Twitter struct{}

// Validate implements [Validator].
func (Twitter) Validate(d Data) error {
	if err := errors.ValidateHandle(d.String("handle")); err != nil {
		return err
	}
	if c := d.String("color"); c != "" {
		return errors.ValidateColor(c)
	}
	return nil
}

// Render implements [Widget].
func (t Twitter) Render(d Data, _ *html.Node) (*html.Node, error) {
	if err := t.Validate(d); err != nil {
		return nil, err
	}
	handle := strings.TrimPrefix(d.String("handle"), "@")
	a := dom.Element("a",
		"class", "twitter-follow-button",
		"href", "https://twitter.com/"+handle,
		"data-show-count", "false",
	)
	if c := d.String("color"); c != "" {
		dom.SetAttr(a, "style", "color: "+c)
	}
	a.AppendChild(dom.Text("Follow @" + handle))
	return a, nil
}

// =============================================================================
// Markdown
// =============================================================================

// Markdown renders a markdown block with goldmark. Raw HTML in the source is
// dropped (goldmark's default). Data: {"text": "...", "background"?, "color"?}.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown returns a markdown widget with goldmark's default extensions.
func NewMarkdown() *Markdown {
	return &Markdown{md: goldmark.New()}
}

// Validate implements [Validator].
func (m *Markdown) Validate(d Data) error {
	if _, ok := d["text"].(string); !ok {
		return fmt.Errorf("missing %q", "text")
	}
	for _, key := range []string{"background", "color"} {
		if c := d.String(key); c != "" {
			if err := errors.ValidateColor(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Render implements [Widget].
func (m *Markdown) Render(d Data, container *html.Node) (*html.Node, error) {
	if err := m.Validate(d); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := m.md.Convert([]byte(d.String("text")), &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "convert markdown")
	}
	nodes, err := dom.ParseFragment(buf.String())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "parse markdown output")
	}

	div := dom.Element("div", "class", "markdown")
	for _, n := range nodes {
		div.AppendChild(n)
	}

	var style []string
	if c := d.String("background"); c != "" {
		style = append(style, "background-color: "+c)
	}
	if c := d.String("color"); c != "" {
		style = append(style, "color: "+c)
	}
	if len(style) > 0 && container != nil {
		dom.SetAttr(container, "style", strings.Join(style, "; "))
	}
	return div, nil
}

// =============================================================================
// Tournaments
// =============================================================================

// Tournaments lists upcoming tournaments.
// Data: {"title"?: "...", "limit"?: n, "tournaments": [{"name", "url"?, "starts_at"?}]}.
type Tournaments struct{}

// Validate implements [Validator].
func (Tournaments) Validate(d Data) error {
	if _, ok := d["tournaments"]; !ok {
		return fmt.Errorf("missing %q", "tournaments")
	}
	for i, t := range d.List("tournaments") {
		if t.String("name") == "" {
			return fmt.Errorf("tournament %d: missing %q", i, "name")
		}
		if u := t.String("url"); u != "" {
			if err := errors.ValidateURL(u); err != nil {
				return fmt.Errorf("tournament %d: %w", i, err)
			}
		}
	}
	if n, ok := d.Int("limit"); ok && n < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	return nil
}

// Render implements [Widget].
func (t Tournaments) Render(d Data, _ *html.Node) (*html.Node, error) {
	if err := t.Validate(d); err != nil {
		return nil, err
	}

	section := dom.Element("section", "class", "tournaments")
	title := d.String("title")
	if title == "" {
		title = "Tournaments"
	}
	h := dom.Element("h3")
	h.AppendChild(dom.Text(title))
	section.AppendChild(h)

	items := d.List("tournaments")
	if n, ok := d.Int("limit"); ok && n > 0 && n < len(items) {
		items = items[:n]
	}
	if len(items) == 0 {
		p := dom.Element("p", "class", "empty")
		p.AppendChild(dom.Text("No upcoming tournaments"))
		section.AppendChild(p)
		return section, nil
	}

	ul := dom.Element("ul")
	for _, item := range items {
		li := dom.Element("li")
		name := dom.Text(item.String("name"))
		if u := item.String("url"); u != "" {
			a := dom.Element("a", "href", u)
			a.AppendChild(name)
			li.AppendChild(a)
		} else {
			li.AppendChild(name)
		}
		if at := item.String("starts_at"); at != "" {
			tm := dom.Element("time", "datetime", at)
			tm.AppendChild(dom.Text(at))
			li.AppendChild(tm)
		}
		ul.AppendChild(li)
	}
	section.AppendChild(ul)
	return section, nil
}
