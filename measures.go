package main

import (
	"fmt"
	"strconv"
	"strings"
)

// Measure is one row of the master measure table, one per measure count.
type Measure struct {
	MC              int    `json:"mc"`
	KeySig          int    `json:"keysig"`
	TimeSig         string `json:"timesig"`
	NominalDur      Frac   `json:"nominal_duration"`
	ActDur          Frac   `json:"act_dur"`
	Voices          int    `json:"voices"`
	Repeats         string `json:"repeats,omitempty"`
	Volta           int    `json:"volta,omitempty"`
	Barline         string `json:"barline,omitempty"`
	NumberingOffset *int   `json:"numbering_offset,omitempty"`
	DontCount       bool   `json:"dont_count,omitempty"`
	MN              int    `json:"mn"`
	Offset          Frac   `json:"offset"`
	Section         int    `json:"section"`
	Next            []int  `json:"next"`

	voltaLen *int // declared volta length before group analysis
}

// mcRow holds the structural fields read from one measure of one staff,
// before reconciliation into the master table. Unset fields stay nil or
// empty.
type mcRow struct {
	keysig          *int
	timesig         string
	actDur          *Frac
	voices          int
	repeats         string
	voltaLen        *int
	barline         string
	numberingOffset *int
	dontCount       *int
}

// Tags of the MuseScore 3 format this parser takes care of. Anything else
// found inside a measure is reported at debug level.
var treatedTags = map[string]bool{
	"acciaccatura": true,
	"accidental":   true, // within <KeySig>
	"Accidental":   true, // within <Note>, ignored
	"actualNotes":  true, // within <Tuplet>
	"appoggiatura": true,
	"Articulation": true,
	"baseNote":     true, // within <Tuplet>, ignored
	"BarLine":      true,
	"Chord":        true,
	"dots":         true,
	"durationType": true,
	"endRepeat":    true,
	"endTuplet":    true,
	"fractions":    true, // within <Spanner>
	"grace4":       true,
	"grace4after":  true,
	"grace8":       true,
	"grace8after":  true,
	"grace16":      true,
	"grace16after": true,
	"grace32":      true,
	"grace32after": true,
	"grace64":      true,
	"grace64after": true,
	"irregular":    true, // measure excluded from bar count
	"KeySig":       true,
	"LayoutBreak":  true, // subtype 'section' taken into account
	"location":     true, // within <Volta>
	"Measure":      true,
	"measures":     true, // within <next> within <Volta>
	"next":         true, // within <Volta>
	"noOffset":     true, // value to add to bar count from here on
	"normalNotes":  true, // within <Tuplet>
	"Note":         true,
	"Number":       true, // within <Tuplet>, ignored
	"pitch":        true,
	"prev":         true, // within <Volta>, ignored
	"Rest":         true,
	"sigD":         true,
	"sigN":         true,
	"Slur":         true, // ignored
	"Spanner":      true, // used: type "Tie" and type "Volta"
	"startRepeat":  true,
	"subtype":      true, // within <Articulation> or <BarLine>
	"Tie":          true,
	"TimeSig":      true,
	"tpc":          true,
	"Tuplet":       true,
	"visible":      true, // ignored
	"voice":        true,
	"Volta":        true,
}

// Fixed application order so that a later tag wins where two tags feed the
// same column (startRepeat and endRepeat in one measure).
var measureTagOrder = []string{
	"voice", "accidental", "TimeSig", "startRepeat", "endRepeat",
	"Volta", "BarLine", "noOffset", "irregular",
}

// collectMeasureTags gathers the structure-bearing tags from a measure
// subtree, in document order per tag name. Volta spanners are recorded under
// "Volta"; spanners carrying only a <prev> back-reference are continuation
// markers and yield no entry.
func collectMeasureTags(m *XMLNode) map[string][]*XMLNode {
	found := map[string][]*XMLNode{}
	var walk func(n *XMLNode)
	walk = func(n *XMLNode) {
		for i := range n.Nodes {
			c := &n.Nodes[i]
			switch c.Name() {
			case "Spanner":
				if c.Child("Volta") != nil && c.Child("next") != nil {
					found["Volta"] = append(found["Volta"], c)
				}
			case "voice", "accidental", "TimeSig", "startRepeat", "endRepeat",
				"LayoutBreak", "BarLine", "noOffset", "irregular":
				found[c.Name()] = append(found[c.Name()], c)
				walk(c)
			default:
				walk(c)
			}
		}
	}
	walk(m)
	return found
}

// convertTimeSig turns a <TimeSig> element into its "N/D" string form.
func convertTimeSig(tag *XMLNode, lg *scoreLogger) (string, bool) {
	n, ok := tag.ChildText("sigN")
	if !ok {
		lg.errorf("TimeSig tag has no sigN tag.")
		return "", false
	}
	d, ok := tag.ChildText("sigD")
	if !ok {
		lg.errorf("TimeSig tag has no sigD tag.")
		return "", false
	}
	return n + "/" + d, true
}

// voltaLength reads the declared measure length of a volta spanner: 1 for a
// bare <fractions> element plus the integer value of <measures> if present.
func voltaLength(spanner *XMLNode, lg *scoreLogger) int {
	val := 0
	loc := spanner.Child("next").Child("location")
	if loc != nil {
		if loc.Child("fractions") != nil {
			val = 1
		}
		if m, ok := loc.ChildText("measures"); ok {
			if i, err := strconv.Atoi(m); err == nil {
				val += i
			} else {
				lg.errorf("Volta measure count %q is not an integer.", m)
			}
		}
	}
	if val == 0 {
		lg.errorf("Length of volta not specified.")
	}
	return val
}

func intFromText(n *XMLNode, tag string, lg *scoreLogger) *int {
	v, err := strconv.Atoi(n.Text())
	if err != nil {
		lg.errorf("<%s> content %q is not an integer.", tag, n.Text())
		return nil
	}
	return &v
}

// applyMeasureFeatures converts the collected tags of one measure into typed
// row values. More than one occurrence of a non-voice tag is reported and
// the first one used.
func applyMeasureFeatures(row *mcRow, found map[string][]*XMLNode, lg *scoreLogger) {
	for _, tag := range measureTagOrder {
		nodes := found[tag]
		if len(nodes) == 0 {
			continue
		}
		if len(nodes) > 1 && tag != "voice" {
			lg.warningf("%d %s-nodes in one <Measure>.", len(nodes), tag)
		}
		node := nodes[0]
		switch tag {
		case "voice":
			row.voices = len(nodes)
		case "accidental":
			row.keysig = intFromText(node, tag, lg)
		case "TimeSig":
			if ts, ok := convertTimeSig(node, lg); ok {
				row.timesig = ts
			}
		case "startRepeat", "endRepeat":
			row.repeats = tag
		case "Volta":
			l := voltaLength(node, lg)
			row.voltaLen = &l
		case "BarLine":
			if sub, ok := node.ChildText("subtype"); ok && sub != "" {
				row.barline = sub
			} else {
				row.barline = "other"
			}
		case "noOffset":
			row.numberingOffset = intFromText(node, tag, lg)
		case "irregular":
			row.dontCount = intFromText(node, tag, lg)
		}
	}
}

// buildStaffTable walks the Measure children of one staff in document order
// and emits one mcRow per measure. A LayoutBreak with subtype "section"
// marks the following measure as a new section unless that measure opens an
// explicit repeat.
func (s *Score) buildStaffTable(staffID int, staff *XMLNode) []mcRow {
	var rows []mcRow
	newSection := false
	for i, m := range staff.Children("Measure") {
		s.measureNodes[staffID] = append(s.measureNodes[staffID], m)
		s.log.debugf("Stored measure %d of staff %d.", i, staffID)

		row := mcRow{}
		if newSection {
			row.repeats = "newSection" // overwritten by an explicit startRepeat
			newSection = false
		}
		if v, ok := m.Attr("len"); ok {
			if f, err := ParseFrac(v); err == nil {
				row.actDur = &f
			} else {
				s.log.errorf("Measure %d of staff %d has invalid len attribute %q.", i, staffID, v)
			}
		}
		found := collectMeasureTags(m)
		if lbs := found["LayoutBreak"]; len(lbs) > 0 {
			if sub, ok := lbs[0].ChildText("subtype"); ok && sub == "section" {
				newSection = true
			}
		}
		applyMeasureFeatures(&row, found, s.log)
		rows = append(rows, row)
	}
	return rows
}

// completeStaffTable fills in the defaults of one staff table: C major when
// the first key signature is missing, firstMeasure/lastMeasure sentinels,
// and forward-filled key and time signatures. A missing starting time
// signature is fatal.
func (s *Score) completeStaffTable(staffID int, rows []mcRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("staff %d contains no measures", staffID)
	}
	if rows[0].keysig == nil {
		zero := 0
		rows[0].keysig = &zero
		s.log.debugf("Key signature has been set to C major.")
	}
	if rows[0].timesig == "" {
		return fmt.Errorf("time signature not defined in the first measure of staff %d", staffID)
	}
	if rows[0].repeats != "" {
		s.log.warningf("First measure of staff %d has a %s tag. Information overwritten by 'firstMeasure'.", staffID, rows[0].repeats)
	}
	rows[0].repeats = "firstMeasure"
	last := len(rows) - 1
	if rows[last].repeats == "" {
		rows[last].repeats = "lastMeasure"
	}
	var keysig *int
	var timesig string
	for i := range rows {
		if rows[i].keysig != nil {
			keysig = rows[i].keysig
		} else {
			rows[i].keysig = keysig
		}
		if rows[i].timesig != "" {
			timesig = rows[i].timesig
		} else {
			rows[i].timesig = timesig
		}
	}
	return nil
}

// reconcileStaves combines the per-staff tables into the master table. Cells
// missing in staff 1 are filled from lower staves (and reported); voices are
// summed across staves.
func (s *Score) reconcileStaves(tables map[int][]mcRow) ([]Measure, error) {
	counts := map[int]bool{}
	for _, rows := range tables {
		counts[len(rows)] = true
	}
	if len(counts) > 1 {
		return nil, fmt.Errorf("staves have different measure counts")
	}

	first := tables[s.staffIDs[0]]
	master := make([]mcRow, len(first))
	copy(master, first)

	divergent := false
	for _, id := range s.staffIDs[1:] {
		rows := tables[id]
		for mc := range rows {
			m, r := &master[mc], rows[mc]
			if m.keysig == nil && r.keysig != nil {
				m.keysig, divergent = r.keysig, true
			} else if m.keysig != nil && r.keysig != nil && *m.keysig != *r.keysig {
				s.log.warningf("Staff %d disagrees with staff 1 on keysig in MC %d: %d vs %d.", id, mc, *r.keysig, *m.keysig)
			}
			if m.timesig == "" && r.timesig != "" {
				m.timesig, divergent = r.timesig, true
			} else if m.timesig != "" && r.timesig != "" && m.timesig != r.timesig {
				s.log.warningf("Staff %d disagrees with staff 1 on timesig in MC %d: %s vs %s.", id, mc, r.timesig, m.timesig)
			}
			if m.actDur == nil && r.actDur != nil {
				m.actDur, divergent = r.actDur, true
			}
			if m.repeats == "" && r.repeats != "" {
				m.repeats, divergent = r.repeats, true
			} else if m.repeats != "" && r.repeats != "" && m.repeats != r.repeats {
				s.log.warningf("Staff %d disagrees with staff 1 on repeats in MC %d: %s vs %s.", id, mc, r.repeats, m.repeats)
			}
			if m.voltaLen == nil && r.voltaLen != nil {
				m.voltaLen, divergent = r.voltaLen, true
			}
			if m.barline == "" && r.barline != "" {
				m.barline, divergent = r.barline, true
			}
			if m.numberingOffset == nil && r.numberingOffset != nil {
				m.numberingOffset, divergent = r.numberingOffset, true
			}
			if m.dontCount == nil && r.dontCount != nil {
				m.dontCount, divergent = r.dontCount, true
			}
		}
	}
	if divergent {
		s.log.warningf("Lower staves contain structural information that is missing in the first staff.")
	} else {
		s.log.debugf("Master table and staff 1 were identical before aggregation.")
	}

	out := make([]Measure, len(master))
	for mc, r := range master {
		nominal, err := ParseFrac(r.timesig)
		if err != nil {
			return nil, fmt.Errorf("invalid time signature %q in MC %d: %w", r.timesig, mc, err)
		}
		actual := nominal
		if r.actDur != nil {
			actual = *r.actDur
		}
		voices := 0
		for _, id := range s.staffIDs {
			voices += tables[id][mc].voices
		}
		keysig := 0
		if r.keysig != nil {
			keysig = *r.keysig
		}
		out[mc] = Measure{
			MC:              mc,
			KeySig:          keysig,
			TimeSig:         r.timesig,
			NominalDur:      nominal,
			ActDur:          actual,
			Voices:          voices,
			Repeats:         r.repeats,
			Barline:         r.barline,
			NumberingOffset: r.numberingOffset,
			DontCount:       r.dontCount != nil,
			voltaLen:        r.voltaLen,
		}
	}
	return out, nil
}

// computeMN derives the displayed measure numbers: ascending integers on
// counted measures, carried across excluded ones, with MN 0 for an excluded
// anacrusis, plus the cumulative numbering offset.
func computeMN(rows []Measure, lg *scoreLogger) {
	next := 1
	last := 0
	for i := range rows {
		if !rows[i].DontCount {
			rows[i].MN = next
			next++
		} else {
			// carries the previous number; an excluded first measure is a
			// pickup and gets 0
			rows[i].MN = last
		}
		last = rows[i].MN
	}
	cum := 0
	for i := range rows {
		if rows[i].NumberingOffset != nil {
			cum += *rows[i].NumberingOffset
		}
		rows[i].MN += cum
	}
	checkMN(rows, lg)
}

// checkMN reports descending measure numbers and numbering gaps.
func checkMN(rows []Measure, lg *scoreLogger) {
	var descending []string
	highest := 0
	present := map[int]bool{}
	for i := range rows {
		if i > 0 && rows[i].MN < rows[i-1].MN {
			descending = append(descending, strconv.Itoa(i))
		}
		if rows[i].MN > highest {
			highest = rows[i].MN
		}
		present[rows[i].MN] = true
	}
	if len(descending) > 0 {
		plural := ""
		if len(descending) > 1 {
			plural = "s"
		}
		lg.errorf("Score contains descending bar numbers at measure count%s %s, possibly caused by MuseScore's 'Add to bar number' function.", plural, strings.Join(descending, ", "))
	}
	var missing []int
	for i := 1; i < highest; i++ {
		if !present[i] {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		lg.errorf("The score has a numbering gap, these measure numbers are missing: %v", missing)
	}
}
