package document

import (
	"time"
)

// NewSampleDocument builds the starter project: an App component holding a
// column of three blocks, a conditional and a text label.
func NewSampleDocument(projectID string) *Document {
	now := time.Now().UTC().Format(time.RFC3339)
	doc := NewEmptyDocument(projectID, "Untitled", now)

	container := doc.Components["App"].Root
	cond := "cond"
	label := "label"

	block := func(uid, color string) Element {
		return Element{
			UID:      uid,
			Kind:     KindElement,
			Name:     "div",
			Parent:   &container,
			Children: []string{},
			Props:    Props{{Key: "data-uid", Value: uid}},
			Style: Props{
				{Key: "width", Value: 50.0},
				{Key: "height", Value: 50.0},
				{Key: "backgroundColor", Value: color},
			},
		}
	}

	doc.Elements[container] = Element{
		UID:      container,
		Kind:     KindElement,
		Name:     "div",
		Children: []string{"aaa", "bbb", "ccc", cond, label},
		Props:    Props{{Key: "data-uid", Value: container}},
		Style: Props{
			{Key: "width", Value: "100%"},
			{Key: "height", Value: "100%"},
			{Key: "contain", Value: "layout"},
		},
	}
	doc.Elements["aaa"] = block("aaa", "#e94560")
	doc.Elements["bbb"] = block("bbb", "#0f3460")
	doc.Elements["ccc"] = block("ccc", "#53a8b6")

	doc.Elements[cond] = Element{
		UID:       cond,
		Kind:      KindConditional,
		Parent:    &container,
		Condition: "true",
		Children:  []string{"then-div", "else-null"},
	}
	doc.Elements["then-div"] = block("then-div", "#f5a623")
	doc.Elements["then-div"] = withParent(doc.Elements["then-div"], cond)
	elseNull := NewNullPlaceholder("else-null")
	elseNull.Parent = &cond
	doc.Elements["else-null"] = elseNull

	doc.Elements[label] = Element{
		UID:      label,
		Kind:     KindElement,
		Name:     "span",
		Parent:   &container,
		Children: []string{"label-text"},
		Props:    Props{{Key: "data-uid", Value: label}},
	}
	doc.Elements["label-text"] = Element{
		UID:      "label-text",
		Kind:     KindText,
		Parent:   &label,
		Children: []string{},
		Text:     "Hello canvas",
	}

	return doc
}

func withParent(el Element, parent string) Element {
	el.Parent = &parent
	return el
}
