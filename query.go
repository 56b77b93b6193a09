package main

import (
	"fmt"
	"strconv"
	"strings"
)

// Line-of-fifths names, starting from F so that tpc -1 maps to F.
var pitchNames = [7]string{"F", "C", "G", "D", "A", "E", "B"}

// SpellTPC returns the name of a tonal pitch class where 0 = C, -1 = F,
// -2 = Bb, 1 = G etc.
func SpellTPC(tpc int) string {
	t := tpc + 1
	idx := ((t % 7) + 7) % 7
	fifths := floorDiv(t, 7)
	var acc string
	if fifths >= 0 {
		acc = strings.Repeat("#", fifths)
	} else {
		acc = strings.Repeat("b", -fifths)
	}
	return pitchNames[idx] + acc
}

// MidiOctave returns 4 for MIDI values 60-71 and correspondingly for other
// notes.
func MidiOctave(midi int) int { return floorDiv(midi, 12) - 1 }

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Range selects an inclusive interval when used as a filter value.
type Range struct {
	From, To any
}

// NoteQuery selects and decorates note rows for GetNotes.
type NoteQuery struct {
	// Section selects sections: nil for all, an int for one (negative counts
	// from the end), [2]int for an inclusive range (reversed when b < a), or
	// []int for an explicit list. Repeated ids repeat their note blocks with
	// a disambiguating letter suffix.
	Section any
	// Flat suppresses the two-level (section, row) presentation.
	Flat bool
	// Beatsize enables the beats column: true for the built-in
	// time-signature map, a map[string]string overriding it, or a Frac or
	// fraction string applied to all time signatures.
	Beatsize any
	// Column toggles.
	Octaves, NoteNames, PCs, N bool
	// Filters restricts the output per feature name: a scalar for equality,
	// true for not-none (tied: only starts and middles), a Range for an
	// inclusive interval, or a slice for membership.
	Filters map[string]any
}

// QueriedNote is one row of a GetNotes result.
type QueriedNote struct {
	SectionKey string `json:"section"`
	N          int    `json:"n"`
	Note
	Octave   int    `json:"octaves,omitempty"`
	NoteName string `json:"note_names,omitempty"`
	PC       int    `json:"pcs,omitempty"`
	Beat     string `json:"beats,omitempty"`
}

// NoteList is a tabular projection of note rows plus the set of active
// optional columns.
type NoteList struct {
	Notes []QueriedNote
	Flat  bool

	HasOctaves   bool
	HasNoteNames bool
	HasPCs       bool
	HasBeats     bool
	HasN         bool
}

// treatSectionIndex validates a section index and converts a negative one.
func (s *Score) treatSectionIndex(i, n int) (int, bool) {
	if i < 0 {
		if i < -n {
			s.log.warningf("Section %d does not exist.", i)
			return 0, false
		}
		return n + i, true
	}
	if i > n-1 {
		s.log.warningf("Section %d does not exist.", i)
		return 0, false
	}
	return i, true
}

// selectSections resolves a section selector into ids and display keys.
func (s *Score) selectSections(sel any) ([]int, []string, bool) {
	n := len(s.Sections)
	var ids []int
	switch v := sel.(type) {
	case nil:
		for i := 0; i < n; i++ {
			ids = append(ids, i)
		}
	case int:
		i, ok := s.treatSectionIndex(v, n)
		if !ok {
			return nil, nil, false
		}
		ids = []int{i}
	case [2]int:
		fro, okF := s.treatSectionIndex(v[0], n)
		if !okF {
			fro = 0
			s.log.warningf("Replaced %d in %v by first section 0.", v[0], v)
		}
		to, okT := s.treatSectionIndex(v[1], n)
		if !okT {
			to = n - 1
			s.log.warningf("Replaced %d in %v by last section %d.", v[1], v, to)
		}
		if to >= fro {
			for i := fro; i <= to; i++ {
				ids = append(ids, i)
			}
		} else {
			for i := fro; i >= to; i-- {
				ids = append(ids, i)
			}
		}
	case []int:
		for _, raw := range v {
			if i, ok := s.treatSectionIndex(raw, n); ok {
				ids = append(ids, i)
			}
		}
		if len(ids) == 0 {
			return nil, nil, false
		}
	default:
		s.log.warningf("Section selector %v not understood.", sel)
		return nil, nil, false
	}

	counts := map[int]int{}
	for _, id := range ids {
		counts[id]++
	}
	seen := map[int]int{}
	keys := make([]string, len(ids))
	for i, id := range ids {
		if counts[id] > 1 {
			keys[i] = fmt.Sprintf("%d%c", id, 'a'+seen[id])
			seen[id]++
		} else {
			keys[i] = strconv.Itoa(id)
		}
	}
	return ids, keys, true
}

// resolveBeatSizes turns a Beatsize specification into a lookup table plus
// fallback.
func (s *Score) resolveBeatSizes(spec any) (map[string]Frac, Frac, bool) {
	sizes := map[string]Frac{}
	for k, v := range timesigBeats {
		sizes[k] = v
	}
	switch v := spec.(type) {
	case nil:
		return sizes, defaultBeatSize, true
	case bool:
		return sizes, defaultBeatSize, true
	case map[string]Frac:
		for k, f := range v {
			sizes[k] = f
		}
		return sizes, defaultBeatSize, true
	case map[string]string:
		for k, raw := range v {
			f, err := ParseFrac(raw)
			if err != nil {
				s.log.warningf("Beat size %q for %s not understood.", raw, k)
				continue
			}
			sizes[k] = f
		}
		return sizes, defaultBeatSize, true
	case Frac:
		return nil, v, true
	case string:
		f, err := ParseFrac(v)
		if err != nil {
			s.log.warningf("Beat size %v not understood.", spec)
			return nil, Frac{}, false
		}
		return nil, f, true
	}
	s.log.warningf("Beat size %v not understood.", spec)
	return nil, Frac{}, false
}

// computeBeat renders a note's position as "<beat>" or "<beat>.<fraction>"
// relative to the logical start of its measure.
func (s *Score) computeBeat(n *Note, sizes map[string]Frac, fallback Frac) string {
	size := fallback
	if sizes != nil {
		if f, ok := sizes[s.Measures[n.MC].TimeSig]; ok {
			size = f
		}
	}
	onset := n.Onset.Add(s.Measures[n.MC].Offset)
	quot := onset.Div(size)
	whole := quot.Floor()
	sub := quot.Sub(Frac{whole, 1})
	if !sub.IsZero() {
		return fmt.Sprintf("%d.%s", whole+1, sub)
	}
	return strconv.FormatInt(whole+1, 10)
}

// GetNotes returns the note rows of the selected sections, decorated with
// the requested columns and reduced by the given filters. Invalid selectors
// degrade to an empty result with a warning.
func (s *Score) GetNotes(q NoteQuery) *NoteList {
	out := &NoteList{
		Flat:         q.Flat,
		HasOctaves:   q.Octaves,
		HasNoteNames: q.NoteNames,
		HasPCs:       q.PCs,
		HasBeats:     q.Beatsize != nil && q.Beatsize != false,
		HasN:         q.N,
	}
	// filtering on a computed column implies computing it
	for feature := range q.Filters {
		switch feature {
		case "octaves":
			out.HasOctaves = true
		case "note_names":
			out.HasNoteNames = true
		case "pcs":
			out.HasPCs = true
		case "beats":
			out.HasBeats = true
		case "n":
			out.HasN = true
		}
	}

	ids, keys, ok := s.selectSections(q.Section)
	if !ok {
		return out
	}

	var sizes map[string]Frac
	var fallback Frac
	if out.HasBeats {
		spec := q.Beatsize
		if spec == false {
			spec = true
		}
		sizes, fallback, ok = s.resolveBeatSizes(spec)
		if !ok {
			out.HasBeats = false
		}
	}

	for i, id := range ids {
		for ni := range s.Sections[id].Notes {
			qn := QueriedNote{SectionKey: keys[i], N: ni, Note: s.Sections[id].Notes[ni]}
			if out.HasOctaves {
				qn.Octave = MidiOctave(qn.MIDI)
			}
			if out.HasNoteNames {
				qn.NoteName = SpellTPC(qn.TPC)
			}
			if out.HasPCs {
				qn.PC = ((qn.MIDI % 12) + 12) % 12
			}
			if out.HasBeats {
				qn.Beat = s.computeBeat(&qn.Note, sizes, fallback)
			}
			if s.matchFilters(&qn, q.Filters) {
				out.Notes = append(out.Notes, qn)
			}
		}
	}
	if len(out.Notes) == 0 {
		s.log.infof("No notes exist for this selection.")
	}
	return out
}

// noteFeature returns the value of a named feature, or ok=false for unknown
// names.
func noteFeature(qn *QueriedNote, name string) (any, bool) {
	switch name {
	case "mc":
		return qn.MC, true
	case "mn":
		return qn.MN, true
	case "onset":
		return qn.Onset, true
	case "duration":
		return qn.Duration, true
	case "gracenote":
		return qn.Gracenote, true
	case "nominal_duration":
		return qn.NominalDur, true
	case "scalar":
		return qn.Scalar, true
	case "tied":
		return qn.Tied, true
	case "tpc":
		return qn.TPC, true
	case "midi":
		return qn.MIDI, true
	case "staff":
		return qn.Staff, true
	case "voice":
		return qn.Voice, true
	case "volta":
		return qn.Volta, true
	case "articulation":
		return qn.Articulation, true
	case "octaves":
		return qn.Octave, true
	case "note_names":
		return qn.NoteName, true
	case "pcs":
		return qn.PC, true
	case "beats":
		return qn.Beat, true
	case "n":
		return qn.N, true
	}
	return nil, false
}

func (s *Score) matchFilters(qn *QueriedNote, filters map[string]any) bool {
	for feature, selector := range filters {
		value, ok := noteFeature(qn, feature)
		if !ok {
			s.log.warningf("%s is not part of the note features.", feature)
			continue
		}
		if !s.matchSelector(feature, value, selector) {
			return false
		}
	}
	return true
}

func (s *Score) matchSelector(feature string, value, selector any) bool {
	switch sel := selector.(type) {
	case bool:
		if !sel {
			return true
		}
		if feature == "tied" {
			t, ok := value.(*int)
			return ok && t != nil && (*t == 0 || *t == 1)
		}
		return featurePresent(feature, value)
	case Range:
		lo, okL := toFrac(sel.From)
		hi, okH := toFrac(sel.To)
		v, okV := toFrac(value)
		if !okL || !okH || !okV {
			s.log.warningf("Range filter on %s not applicable.", feature)
			return false
		}
		return lo.Cmp(v) <= 0 && v.Cmp(hi) <= 0
	case []int:
		for _, want := range sel {
			if valuesEqual(value, want) {
				return true
			}
		}
		return false
	case []string:
		for _, want := range sel {
			if valuesEqual(value, want) {
				return true
			}
		}
		return false
	case []Frac:
		for _, want := range sel {
			if valuesEqual(value, want) {
				return true
			}
		}
		return false
	default:
		return valuesEqual(value, selector)
	}
}

// featurePresent implements the "true selects not-none" semantics per
// feature.
func featurePresent(feature string, value any) bool {
	switch v := value.(type) {
	case *int:
		return v != nil
	case string:
		return v != ""
	case int:
		if feature == "volta" {
			return v != 0
		}
		return true
	}
	return true
}

func toFrac(v any) (Frac, bool) {
	switch x := v.(type) {
	case int:
		return Frac{int64(x), 1}, true
	case int64:
		return Frac{x, 1}, true
	case Frac:
		return x, true
	case *int:
		if x == nil {
			return Frac{}, false
		}
		return Frac{int64(*x), 1}, true
	}
	return Frac{}, false
}

func valuesEqual(value, want any) bool {
	if vs, ok := value.(string); ok {
		ws, ok := want.(string)
		return ok && vs == ws
	}
	if ws, ok := want.(string); ok {
		if vf, ok := toFrac(value); ok {
			if wf, err := ParseFrac(ws); err == nil {
				return vf.Equal(wf)
			}
		}
		return false
	}
	vf, okV := toFrac(value)
	wf, okW := toFrac(want)
	return okV && okW && vf.Equal(wf)
}

// noteTableString renders a note list for the CLI.
func noteTableString(list *NoteList) string {
	var sb strings.Builder
	cols := []string{"mc", "mn", "onset", "duration", "gracenote", "nominal_duration", "scalar", "tied", "tpc", "midi", "staff", "voice", "volta"}
	if !list.Flat {
		cols = append([]string{"section"}, cols...)
	}
	if list.HasN {
		cols = append(cols, "n")
	}
	if list.HasOctaves {
		cols = append(cols, "octaves")
	}
	if list.HasNoteNames {
		cols = append(cols, "note_names")
	}
	if list.HasPCs {
		cols = append(cols, "pcs")
	}
	if list.HasBeats {
		cols = append(cols, "beats")
	}
	sb.WriteString(strings.Join(cols, "\t") + "\n")
	for i := range list.Notes {
		qn := &list.Notes[i]
		var fields []string
		if !list.Flat {
			fields = append(fields, qn.SectionKey)
		}
		tied := ""
		if qn.Tied != nil {
			tied = strconv.Itoa(*qn.Tied)
		}
		volta := ""
		if qn.Volta != 0 {
			volta = strconv.Itoa(qn.Volta)
		}
		fields = append(fields,
			strconv.Itoa(qn.MC), strconv.Itoa(qn.MN), qn.Onset.String(),
			qn.Duration.String(), qn.Gracenote, qn.NominalDur.String(),
			qn.Scalar.String(), tied, strconv.Itoa(qn.TPC),
			strconv.Itoa(qn.MIDI), strconv.Itoa(qn.Staff),
			strconv.Itoa(qn.Voice), volta)
		if list.HasN {
			fields = append(fields, strconv.Itoa(qn.N))
		}
		if list.HasOctaves {
			fields = append(fields, strconv.Itoa(qn.Octave))
		}
		if list.HasNoteNames {
			fields = append(fields, qn.NoteName)
		}
		if list.HasPCs {
			fields = append(fields, strconv.Itoa(qn.PC))
		}
		if list.HasBeats {
			fields = append(fields, qn.Beat)
		}
		sb.WriteString(strings.Join(fields, "\t") + "\n")
	}
	return sb.String()
}
