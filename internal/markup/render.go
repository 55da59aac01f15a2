package markup

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
)

// Render prints the subtree rooted at uid as markup that ParseComponent
// reads back with the same UIDs.
func Render(doc *document.Document, uid string) (string, error) {
	n, err := buildNode(doc, uid)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var ErrComponentNotFound = errors.New("component not found")

// RenderComponent prints the root of a named component.
func RenderComponent(doc *document.Document, name string) (string, error) {
	c, ok := doc.Components[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrComponentNotFound, name)
	}
	return Render(doc, c.Root)
}

func buildNode(doc *document.Document, uid string) (*html.Node, error) {
	el, ok := doc.Elements[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", document.ErrElementNotFound, uid)
	}

	if el.Kind == document.KindText {
		return &html.Node{Type: html.TextNode, Data: el.Text}, nil
	}

	n := &html.Node{Type: html.ElementNode}
	switch el.Kind {
	case document.KindFragment:
		n.Data = tagFragment
	case document.KindConditional:
		n.Data = tagConditional
		n.Attr = append(n.Attr, html.Attribute{Key: attrCondition, Val: el.Condition})
	case document.KindExpression:
		n.Data = tagExpression
		n.Attr = append(n.Attr, html.Attribute{Key: attrCode, Val: el.Code})
	default:
		n.Data = el.Name
	}

	if !el.Props.Has(attrUID) {
		n.Attr = append(n.Attr, html.Attribute{Key: attrUID, Val: uid})
	}
	for _, p := range el.Props {
		n.Attr = append(n.Attr, html.Attribute{Key: p.Key, Val: formatValue(p.Value)})
	}
	if len(el.Style) > 0 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrStyle, Val: FormatStyle(el.Style)})
	}

	for _, child := range el.Children {
		c, err := buildNode(doc, child)
		if err != nil {
			return nil, err
		}
		n.AppendChild(c)
	}
	return n, nil
}

// FormatStyle is the inverse of ParseStyle.
func FormatStyle(style document.Props) string {
	decls := make([]string, 0, len(style))
	for _, p := range style {
		decls = append(decls, kebabCase(p.Key)+": "+formatValue(p.Value))
	}
	return strings.Join(decls, "; ")
}

func formatValue(v any) string {
	switch x := document.NormalizeValue(v).(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func kebabCase(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
