package ui

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
)

// Outline renders the visible content of an HTML page as GitHub-flavored
// Markdown, tables included. Scripts, styles and form controls are dropped.
func Outline(src string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, link, meta, noscript, iframe, svg, canvas, input, button, select, textarea").Remove()

	cleaned, err := doc.Html()
	if err != nil {
		return "", err
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	out, err := converter.ConvertString(cleaned)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
