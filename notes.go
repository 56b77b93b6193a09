package main

import (
	"sort"
	"strconv"
	"strings"
)

// Note is one row of the flattened note list, one per note head. Tied note
// heads are kept separate; the tied column records their role.
type Note struct {
	MC           int    `json:"mc"`
	MN           int    `json:"mn"`
	Onset        Frac   `json:"onset"`
	Duration     Frac   `json:"duration"`
	Gracenote    string `json:"gracenote,omitempty"`
	NominalDur   Frac   `json:"nominal_duration"`
	Scalar       Frac   `json:"scalar"`
	Tied         *int   `json:"tied,omitempty"` // -1 end, 0 middle, 1 start
	TPC          int    `json:"tpc"`
	MIDI         int    `json:"midi"`
	Staff        int    `json:"staff"`
	Voice        int    `json:"voice"`
	Volta        int    `json:"volta,omitempty"`
	Articulation string `json:"articulation,omitempty"`
}

var graceTags = []string{
	"grace4", "grace4after", "grace8", "grace8after",
	"grace16", "grace16after", "grace32", "grace32after",
	"grace64", "grace64after", "appoggiatura", "acciaccatura",
}

// findGrace returns the grace tag of a chord, if any.
func findGrace(chord *XMLNode) string {
	for _, tag := range graceTags {
		if chord.Child(tag) != nil {
			return tag
		}
	}
	return ""
}

// tieValue reads the tie role of a note head: -1 only continues a tie, +1
// only starts one, 0 does both. Returns nil when the note is not tied.
func tieValue(note *XMLNode) *int {
	for _, sp := range note.FindAll("Spanner") {
		if t, _ := sp.Attr("type"); t != "Tie" {
			continue
		}
		v := 0
		if sp.Child("prev") != nil {
			v--
		}
		if sp.Child("next") != nil {
			v++
		}
		return &v
	}
	return nil
}

// parseSectionNotes walks every measure of a section, staff by staff and
// voice by voice, and fills the section's note list. Tuplets scale the
// durations of the events they wrap; grace chords contribute zero duration
// and do not advance the voice's onset pointer.
func (s *Score) parseSectionNotes(sec *Section) {
	var rows []Note
	wantArticulation := false
	for _, f := range s.Features {
		if f == "articulation" {
			wantArticulation = true
		}
	}

	for mc := sec.FirstMC; mc <= sec.LastMC; mc++ {
		mi := &s.Measures[mc]
		for staffPos, staffID := range s.staffIDs {
			measure := s.measureNodes[staffID][mc]
			voices := measure.Children("voice")
			if len(voices) == 0 {
				s.log.errorf("Measure without <voice> tag.")
			}
			for vi, voice := range voices {
				pointer := Frac{}
				scalar := Frac{1, 1}
				var scalarStack []Frac
				for _, event := range voice.FindAll("Chord", "Rest", "Tuplet", "endTuplet") {
					switch event.Name() {
					case "Tuplet":
						normal, _ := event.ChildText("normalNotes")
						actual, _ := event.ChildText("actualNotes")
						nn, err1 := strconv.Atoi(normal)
						an, err2 := strconv.Atoi(actual)
						if err1 != nil || err2 != nil || an == 0 {
							s.log.errorf("Tuplet in MC %d has invalid normalNotes/actualNotes.", mc)
							continue
						}
						scalarStack = append(scalarStack, scalar)
						scalar = scalar.Mul(NewFrac(int64(nn), int64(an)))
					case "endTuplet":
						if n := len(scalarStack); n > 0 {
							scalar = scalarStack[n-1]
							scalarStack = scalarStack[:n-1]
						} else {
							s.log.errorf("endTuplet without matching Tuplet in MC %d.", mc)
						}
					default: // Chord or Rest
						dt := event.Find("durationType")
						if dt == nil {
							s.log.errorf("%s in MC %d has no durationType.", event.Name(), mc)
							continue
						}
						nominal, ok := durationValues[dt.Text()]
						if !ok {
							s.log.errorf("Unknown durationType %q in MC %d.", dt.Text(), mc)
							continue
						}
						dotScalar := scalar
						if dotsNode := event.Find("dots"); dotsNode != nil {
							dots, err := strconv.Atoi(dotsNode.Text())
							if err != nil || dots < 0 {
								dots = 0
							}
							sum := Frac{}
							for i := 0; i <= dots; i++ {
								sum = sum.Add(NewFrac(1, int64(1)<<uint(i)))
							}
							dotScalar = scalar.Mul(sum)
						}
						duration := nominal.Mul(dotScalar)

						if event.Name() == "Rest" {
							pointer = pointer.Add(duration)
							continue
						}

						articulation := ""
						if wantArticulation {
							if art := event.Find("Articulation"); art != nil {
								if sub := art.Find("subtype"); sub != nil {
									articulation = sub.Text()
								}
							}
						}
						grace := findGrace(event)
						noteDuration := duration
						if grace != "" {
							noteDuration = Frac{}
						}
						for _, note := range event.FindAll("Note") {
							tpcText, _ := note.ChildText("tpc")
							tpc, err := strconv.Atoi(tpcText)
							if err != nil {
								s.log.errorf("Note in MC %d has invalid tpc %q.", mc, tpcText)
								continue
							}
							pitchText, _ := note.ChildText("pitch")
							midi, err := strconv.Atoi(pitchText)
							if err != nil {
								s.log.errorf("Note in MC %d has invalid pitch %q.", mc, pitchText)
								continue
							}
							rows = append(rows, Note{
								MC:           mc,
								MN:           mi.MN,
								Onset:        pointer,
								Duration:     noteDuration,
								Gracenote:    grace,
								NominalDur:   nominal,
								Scalar:       dotScalar,
								Tied:         tieValue(note),
								TPC:          tpc - 14,
								MIDI:         midi,
								Staff:        staffPos + 1,
								Voice:        vi + 1,
								Volta:        mi.Volta,
								Articulation: articulation,
							})
						}
						if grace == "" {
							pointer = pointer.Add(duration)
						}
					}
				}
			}
			s.reportUntreatedTags(measure)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].MC != rows[j].MC {
			return rows[i].MC < rows[j].MC
		}
		if c := rows[i].Onset.Cmp(rows[j].Onset); c != 0 {
			return c < 0
		}
		return rows[i].MIDI < rows[j].MIDI
	})
	sec.Notes = rows
}

// reportUntreatedTags lists measure-subtree tags that the parser knows
// nothing about.
func (s *Score) reportUntreatedTags(measure *XMLNode) {
	names := map[string]bool{}
	measure.tagNames(names)
	var remaining []string
	for name := range names {
		if !treatedTags[name] {
			remaining = append(remaining, name)
		}
	}
	if len(remaining) > 0 {
		sort.Strings(remaining)
		s.log.debugf("The following tags have not been treated: %s", strings.Join(remaining, ", "))
	}
}

// checkMeasureBoundaries warns about every note that overshoots the actual
// length of its measure.
func (s *Score) checkMeasureBoundaries() {
	ok := true
	for _, sec := range s.Sections {
		for i := range sec.Notes {
			n := &sec.Notes[i]
			end := n.Onset.Add(n.Duration)
			if end.Cmp(s.Measures[n.MC].ActDur) > 0 {
				ok = false
				s.log.warningf("Event %d in MC %d has duration %s and starts on %s, surpassing the measure length of %s",
					i, n.MC, n.Duration, n.Onset, s.Measures[n.MC].ActDur)
			}
		}
	}
	if ok {
		s.log.debugf("Measure boundaries checked: No errors.")
	}
}
