package templates

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RenderHTML renders tree as a self-contained HTML fragment. All document
// text is escaped.
func RenderHTML(tree RenderTree) (string, error) {
	root := element(atom.Article, "resume template-"+classSuffix(tree.TemplateID))

	header := element(atom.Header, "resume-header")
	if tree.Header.Initials != "" {
		header.AppendChild(textElement(atom.Div, "initials", tree.Header.Initials))
	}
	header.AppendChild(textElement(atom.H1, "", tree.Header.Name))
	header.AppendChild(textElement(atom.P, "headline", tree.Header.Headline))
	contact := element(atom.Ul, "contact")
	for _, c := range tree.Header.Contact {
		contact.AppendChild(textElement(atom.Li, "", c))
	}
	header.AppendChild(contact)
	root.AppendChild(header)

	for _, s := range tree.Sections {
		root.AppendChild(sectionNode(s))
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", fmt.Errorf("rendering html: %w", err)
	}
	return buf.String(), nil
}

func sectionNode(s Section) *html.Node {
	sec := element(atom.Section, string(s.Kind))
	sec.AppendChild(textElement(atom.H2, "", s.Heading))

	if len(s.Lines) > 0 {
		sec.AppendChild(linesNode(s.Lines))
	}

	for _, it := range s.Items {
		div := element(atom.Div, "entry")
		div.AppendChild(textElement(atom.H3, "", it.Title))
		div.AppendChild(textElement(atom.P, "subtitle", it.Subtitle))
		if it.Period != "" {
			div.AppendChild(textElement(atom.P, "period", it.Period))
		}
		if len(it.Lines) > 0 {
			div.AppendChild(linesNode(it.Lines))
		}
		sec.AppendChild(div)
	}

	if len(s.Skills) > 0 {
		list := element(atom.Ul, "skills skills-"+string(s.SkillStyle))
		for _, sk := range s.Skills {
			li := element(atom.Li, "skill")
			li.AppendChild(textElement(atom.Span, "skill-name", sk.Name))
			switch s.SkillStyle {
			case SkillBars:
				bar := element(atom.Div, "skill-bar")
				fill := element(atom.Div, "skill-bar-fill")
				fill.Attr = append(fill.Attr, html.Attribute{Key: "style", Val: "width: " + strconv.Itoa(sk.Level) + "%"})
				bar.AppendChild(fill)
				li.AppendChild(bar)
			case SkillDots:
				dots := element(atom.Span, "skill-dots")
				dots.Attr = append(dots.Attr, html.Attribute{Key: "data-filled", Val: strconv.Itoa(sk.Filled)})
				dots.AppendChild(text(strings.Repeat("●", sk.Filled) + strings.Repeat("○", sk.Dots-sk.Filled)))
				li.AppendChild(dots)
			}
			list.AppendChild(li)
		}
		sec.AppendChild(list)
	}
	return sec
}

// linesNode renders lines as one paragraph with explicit line breaks.
func linesNode(lines []string) *html.Node {
	p := element(atom.P, "text")
	for i, line := range lines {
		if i > 0 {
			p.AppendChild(&html.Node{Type: html.ElementNode, Data: "br", DataAtom: atom.Br})
		}
		p.AppendChild(text(line))
	}
	return p
}

func element(a atom.Atom, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	if class != "" {
		n.Attr = []html.Attribute{{Key: "class", Val: class}}
	}
	return n
}

func textElement(a atom.Atom, class, s string) *html.Node {
	n := element(a, class)
	n.AppendChild(text(s))
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func classSuffix(id string) string {
	if id == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' {
			return r
		}
		return '-'
	}, id)
}
