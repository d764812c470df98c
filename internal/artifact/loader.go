// Package artifact loads the generated plan under test. Plans arrive as
// markdown or plain text; HTML exports from wikis and doc tools are stripped
// to visible text before verification.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"plangrade/internal/model"
)

// Load reads an artifact from a file, stripping HTML when needed
func Load(path string) (*model.ArtifactUnderTest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	text := string(data)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text, err = StripHTML(text)
		if err != nil {
			return nil, fmt.Errorf("strip html: %w", err)
		}
	}

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &model.ArtifactUnderTest{ID: id, Text: text}, nil
}

// StripHTML extracts the visible text from an HTML plan export,
// skipping script/style content.
func StripHTML(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.TrimSpace(buf.String()), nil
}
