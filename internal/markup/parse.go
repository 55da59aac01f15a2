// Package markup converts between HTML-shaped markup and the element tree.
//
// Beyond ordinary tags it understands:
//
//	<fragment>                            a JSX fragment
//	<conditional condition="...">         two children: true and false branch
//	<expression code="...">               an arbitrary JSX expression
//	<group>                               the Group layout component
//
// data-uid sets the element UID; style="k: v; ..." becomes ordered style
// props with numeric values where possible.
package markup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/typeid"
)

var ErrInvalidMarkup = errors.New("invalid markup")

const (
	tagFragment    = "fragment"
	tagConditional = "conditional"
	tagExpression  = "expression"
	tagGroup       = "group"

	attrUID       = "data-uid"
	attrStyle     = "style"
	attrCondition = "condition"
	attrCode      = "code"
)

// Component is an extra project component defined by markup.
type Component struct {
	Name    string
	Snippet string
}

// ProjectFromSnippet builds a project whose App component renders snippet.
// Extra components are registered before any markup is parsed so their
// instances can be used in every snippet.
func ProjectFromSnippet(projectID, snippet string, extra ...Component) (*document.Document, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	doc := document.NewEmptyDocument(projectID, "Untitled", now)
	delete(doc.Elements, doc.Components["App"].Root)

	all := append([]Component{{Name: "App", Snippet: snippet}}, extra...)
	for _, c := range all {
		doc.Components[c.Name] = document.Component{Name: c.Name, File: document.AppFile}
	}
	for _, c := range all {
		root, err := ParseComponent(doc, c.Snippet)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", c.Name, err)
		}
		comp := doc.Components[c.Name]
		comp.Root = root
		doc.Components[c.Name] = comp
	}
	return doc, nil
}

// ParseComponent adds the elements of snippet to doc and returns the UID of
// its single root element.
func ParseComponent(doc *document.Document, snippet string) (string, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(snippet), context)
	if err != nil {
		return "", fmt.Errorf("parse markup: %w", err)
	}

	p := &parser{doc: doc, taken: doc.AllUIDs()}
	var roots []string
	for _, n := range nodes {
		uid, ok, err := p.convert(n, nil)
		if err != nil {
			return "", err
		}
		if ok {
			roots = append(roots, uid)
		}
	}
	if len(roots) != 1 {
		return "", fmt.Errorf("%w: want one root element, got %d", ErrInvalidMarkup, len(roots))
	}
	return roots[0], nil
}

type parser struct {
	doc   *document.Document
	taken map[string]bool
}

func (p *parser) uid(n *html.Node, base string) (string, error) {
	if uid := attr(n, attrUID); uid != "" {
		if p.taken[uid] {
			return "", fmt.Errorf("%w: duplicate data-uid %q", ErrInvalidMarkup, uid)
		}
		p.taken[uid] = true
		return uid, nil
	}
	uid := typeid.DeterministicUID(p.taken, base)
	p.taken[uid] = true
	return uid, nil
}

// convert returns ok=false for nodes that produce no element, such as
// comments and blank text.
func (p *parser) convert(n *html.Node, parent *string) (string, bool, error) {
	switch n.Type {
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text == "" {
			return "", false, nil
		}
		base := "text"
		if parent != nil {
			base = *parent + "-text"
		}
		uid, err := p.uid(n, base)
		if err != nil {
			return "", false, err
		}
		p.doc.Elements[uid] = document.Element{
			UID: uid, Kind: document.KindText, Parent: parent, Children: []string{}, Text: text,
		}
		return uid, true, nil
	case html.ElementNode:
	default:
		return "", false, nil
	}

	el := document.Element{Kind: document.KindElement, Name: p.tagName(n.Data), Parent: parent, Children: []string{}}
	switch n.Data {
	case tagFragment:
		el.Kind, el.Name = document.KindFragment, ""
	case tagConditional:
		el.Kind, el.Name = document.KindConditional, ""
		el.Condition = attr(n, attrCondition)
	case tagExpression:
		el.Kind, el.Name = document.KindExpression, ""
		el.Code = attr(n, attrCode)
	}

	base := string(el.Kind)
	if el.Kind == document.KindElement {
		base = strings.ToLower(el.Name)
	}
	uid, err := p.uid(n, base)
	if err != nil {
		return "", false, err
	}
	el.UID = uid

	for _, a := range n.Attr {
		switch {
		case a.Key == attrStyle:
			el.Style = ParseStyle(a.Val)
		case el.Kind == document.KindConditional && a.Key == attrCondition,
			el.Kind == document.KindExpression && a.Key == attrCode:
		case el.Kind == document.KindElement:
			el.Props = el.Props.Set(a.Key, a.Val)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		child, ok, err := p.convert(c, &el.UID)
		if err != nil {
			return "", false, err
		}
		if ok {
			el.Children = append(el.Children, child)
		}
	}

	if el.Kind == document.KindConditional {
		switch len(el.Children) {
		case 1:
			nullUID := typeid.DeterministicUID(p.taken, uid+"-null")
			p.taken[nullUID] = true
			null := document.NewNullPlaceholder(nullUID)
			null.Parent = &el.UID
			p.doc.Elements[nullUID] = null
			el.Children = append(el.Children, nullUID)
		case 2:
		default:
			return "", false, fmt.Errorf("%w: conditional %s needs one or two branches, got %d", ErrInvalidMarkup, uid, len(el.Children))
		}
	}

	p.doc.Elements[uid] = el
	return uid, true, nil
}

// tagName restores the case of component names lowered by the HTML parser.
func (p *parser) tagName(tag string) string {
	if tag == tagGroup {
		return "Group"
	}
	for name := range p.doc.Components {
		if strings.EqualFold(name, tag) {
			return name
		}
	}
	return tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// ParseStyle reads an inline style declaration. Keys are converted to
// camelCase and pixel or unitless numbers become float64.
func ParseStyle(s string) document.Props {
	var out document.Props
	for _, decl := range strings.Split(s, ";") {
		key, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		key = camelCase(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		out = out.Set(key, parseValue(value))
	}
	return out
}

func parseValue(v string) any {
	if f, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64); err == nil {
		return f
	}
	return v
}

func camelCase(s string) string {
	parts := strings.Split(s, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
