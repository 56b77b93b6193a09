package main

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// XMLNode is a generic, order-preserving XML element tree. MuseScore
// interleaves tags of different names inside <voice> elements, so the usual
// struct-per-element decoding would lose the document order that the event
// walk depends on.
type XMLNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Chardata string     `xml:",chardata"`
	Nodes    []XMLNode  `xml:",any"`
}

func decodeXML(r io.Reader) (*XMLNode, error) {
	var root XMLNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("error decoding XML document: %w", err)
	}
	return &root, nil
}

// Name returns the element's local tag name.
func (n *XMLNode) Name() string { return n.XMLName.Local }

// Text returns the element's character data with surrounding whitespace
// removed.
func (n *XMLNode) Text() string { return strings.TrimSpace(n.Chardata) }

// Attr returns the value of the named attribute.
func (n *XMLNode) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first direct child element with the given name.
func (n *XMLNode) Child(name string) *XMLNode {
	for i := range n.Nodes {
		if n.Nodes[i].Name() == name {
			return &n.Nodes[i]
		}
	}
	return nil
}

// Children returns all direct child elements with the given name, in
// document order.
func (n *XMLNode) Children(name string) []*XMLNode {
	var out []*XMLNode
	for i := range n.Nodes {
		if n.Nodes[i].Name() == name {
			out = append(out, &n.Nodes[i])
		}
	}
	return out
}

// ChildText returns the text content of the first direct child with the
// given name.
func (n *XMLNode) ChildText(name string) (string, bool) {
	if c := n.Child(name); c != nil {
		return c.Text(), true
	}
	return "", false
}

// Find returns the first descendant element with the given name, searching
// in document order.
func (n *XMLNode) Find(name string) *XMLNode {
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.Name() == name {
			return c
		}
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant element whose name is one of names, in
// document order.
func (n *XMLNode) FindAll(names ...string) []*XMLNode {
	match := make(map[string]bool, len(names))
	for _, name := range names {
		match[name] = true
	}
	var out []*XMLNode
	var walk func(n *XMLNode)
	walk = func(n *XMLNode) {
		for i := range n.Nodes {
			c := &n.Nodes[i]
			if match[c.Name()] {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// tagNames collects the names of all descendant elements.
func (n *XMLNode) tagNames(into map[string]bool) {
	for i := range n.Nodes {
		into[n.Nodes[i].Name()] = true
		n.Nodes[i].tagNames(into)
	}
}
