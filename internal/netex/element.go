package netex

import "encoding/xml"

// element is a generic XML subtree. NeTEx nests the same field at different
// depths depending on the profile, so lookups search all descendants.
type element struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []element  `xml:",any"`
}

func (e *element) attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// find returns the first descendant named name in document order
func (e *element) find(name string) *element {
	for i := range e.Nodes {
		child := &e.Nodes[i]
		if child.XMLName.Local == name {
			return child
		}
		if found := child.find(name); found != nil {
			return found
		}
	}
	return nil
}

// each calls fn for every descendant named name in document order. Matches
// are not searched further.
func (e *element) each(name string, fn func(*element)) {
	for i := range e.Nodes {
		child := &e.Nodes[i]
		if child.XMLName.Local == name {
			fn(child)
			continue
		}
		child.each(name, fn)
	}
}
