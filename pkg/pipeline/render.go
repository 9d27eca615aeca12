package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/net/html"

	"github.com/fourbar/fourbar/pkg/dom"
	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/render/preview"
)

// RenderEngine generates output artifacts from a built engine.
//
//   - html: the engine's tree, optionally wrapped in a full document
//   - json: the layout with the engine's summary as its widget list
//   - svg: a wireframe preview of the summary
func RenderEngine(ctx context.Context, e *layout.Engine, l *layout.Layout, opts Options) (map[string][]byte, error) {
	summary := e.Summarize()
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatHTML:
			var buf bytes.Buffer
			if opts.Standalone {
				err = WriteDocument(&buf, l.CommunityID, e.Node())
			} else {
				err = e.Render(&buf)
			}
			data = buf.Bytes()
		case FormatJSON:
			data, err = layout.Marshal(layout.Layout{
				CommunityID: l.CommunityID,
				Background:  l.Background,
				Version:     l.Version,
				UpdatedAt:   l.UpdatedAt,
				Widgets:     summary,
			})
		case FormatSVG:
			dot := preview.ToDOT(summary, preview.Options{Detailed: opts.Detailed, Title: l.CommunityID})
			data, err = preview.RenderSVG(ctx, dot)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

// WriteDocument writes a complete HTML page with body as its content. body
// is borrowed: it is attached to the page while writing and detached again.
func WriteDocument(w io.Writer, title string, body *html.Node) error {
	if title == "" {
		title = "fourbar"
	}
	head := dom.Element("head")
	head.AppendChild(dom.Element("meta", "charset", "utf-8"))
	head.AppendChild(dom.Element("meta", "name", "viewport", "content", "width=device-width, initial-scale=1"))
	t := dom.Element("title")
	t.AppendChild(dom.Text(title))
	head.AppendChild(t)

	page := dom.Element("body")
	page.AppendChild(body)
	defer dom.Detach(body)

	root := dom.Element("html", "lang", "en")
	root.AppendChild(head)
	root.AppendChild(page)

	if _, err := io.WriteString(w, "<!DOCTYPE html>\n"); err != nil {
		return err
	}
	return dom.Render(w, root)
}
