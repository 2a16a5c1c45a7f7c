package models

// Doc is a rich-text document in the tracker's document format.
type Doc struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	Content []Node `json:"content"`
}

type Node struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Marks   []Mark `json:"marks,omitempty"`
	Content []Node `json:"content,omitempty"`
}

type Mark struct {
	Type string `json:"type"`
}

func NewDoc(content ...Node) *Doc {
	return &Doc{Type: "doc", Version: 1, Content: content}
}

func Paragraph(content ...Node) Node {
	return Node{Type: "paragraph", Content: content}
}

func Text(s string) Node {
	return Node{Type: "text", Text: s}
}

func StrongText(s string) Node {
	return Node{Type: "text", Text: s, Marks: []Mark{{Type: "strong"}}}
}

func HardBreak() Node {
	return Node{Type: "hardBreak"}
}

// Clone returns a deep copy; nil stays nil.
func (d *Doc) Clone() *Doc {
	if d == nil {
		return nil
	}
	return &Doc{Type: d.Type, Version: d.Version, Content: cloneNodes(d.Content)}
}

func cloneNodes(in []Node) []Node {
	if in == nil {
		return nil
	}
	out := make([]Node, len(in))
	for i, n := range in {
		out[i] = Node{
			Type:    n.Type,
			Text:    n.Text,
			Content: cloneNodes(n.Content),
		}
		if n.Marks != nil {
			out[i].Marks = append([]Mark(nil), n.Marks...)
		}
	}
	return out
}
