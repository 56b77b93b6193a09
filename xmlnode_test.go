package main

import (
	"strings"
	"testing"
)

const orderedXML = `<voice>
  <TimeSig><sigN>4</sigN><sigD>4</sigD></TimeSig>
  <Chord><durationType>quarter</durationType></Chord>
  <Tuplet><normalNotes>2</normalNotes><actualNotes>3</actualNotes></Tuplet>
  <Chord><durationType>eighth</durationType></Chord>
  <Rest><durationType>eighth</durationType></Rest>
  <endTuplet/>
  <Chord><durationType>half</durationType></Chord>
</voice>`

func TestXMLNodeDocumentOrder(t *testing.T) {
	root, err := decodeXML(strings.NewReader(orderedXML))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	events := root.FindAll("Chord", "Rest", "Tuplet", "endTuplet")
	want := []string{"Chord", "Tuplet", "Chord", "Rest", "endTuplet", "Chord"}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, e := range events {
		if e.Name() != want[i] {
			t.Errorf("event %d is %s, want %s", i, e.Name(), want[i])
		}
	}
}

func TestXMLNodeNavigation(t *testing.T) {
	doc := `<Measure len="3/4"><voice><Chord><Note><pitch>62</pitch><tpc>16</tpc></Note></Chord></voice></Measure>`
	root, err := decodeXML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if v, ok := root.Attr("len"); !ok || v != "3/4" {
		t.Errorf("Attr(len) = %q, %v", v, ok)
	}
	pitch := root.Find("pitch")
	if pitch == nil || pitch.Text() != "62" {
		t.Fatalf("Find(pitch) = %v", pitch)
	}
	note := root.Find("Note")
	if got, ok := note.ChildText("tpc"); !ok || got != "16" {
		t.Errorf("ChildText(tpc) = %q, %v", got, ok)
	}
	if root.Child("voice") == nil {
		t.Error("Child(voice) not found")
	}
	if root.Child("Chord") != nil {
		t.Error("Child should not search recursively")
	}
}
