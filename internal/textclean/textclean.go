// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package textclean turns raw message bodies into plain text suitable for
// model prompts.
package textclean

import (
	"strings"

	"golang.org/x/net/html"
)

// skipElements hold content that is never shown to a reader.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"head":     true,
	"noscript": true,
	"template": true,
}

// blockElements end a line of visible text.
var blockElements = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "table": true,
}

// HTMLToText extracts the visible text of an HTML document. Input that does
// not parse is returned unchanged.
func HTMLToText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteByte('\n')
		}
	}
	walk(doc)
	return b.String()
}

// Collapse squeezes every whitespace run to a single space and trims the ends.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Clean strips markup and normalises whitespace.
func Clean(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return Collapse(s)
	}
	return Collapse(HTMLToText(s))
}
