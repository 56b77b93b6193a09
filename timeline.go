package main

import (
	"fmt"
	"strings"
)

// TimelineEntry marks where one measure starts in the playback-expanded
// score.
type TimelineEntry struct {
	MC      int  `json:"mc"`
	Section int  `json:"section"`
	Pass    int  `json:"pass"`  // 1-based repetition of the section
	Onset   Frac `json:"onset"` // whole notes from the start of playback
}

// Timeline is the full playback expansion of a score: every measure once
// per play, with repeats unrolled and volta alternatives resolved per pass.
type Timeline struct {
	Entries []TimelineEntry `json:"entries"`
	Total   Frac            `json:"total"`
}

// PlaybackTimeline unrolls the section order into a measure-by-measure
// timeline. On the k-th pass through a section with voltas, the k-th
// alternative is played (the last one absorbs any further passes).
func (s *Score) PlaybackTimeline() *Timeline {
	t := &Timeline{}
	passes := map[int]int{}
	pos := Frac{}
	for _, id := range s.SectionOrder {
		sec := s.Sections[id]
		pass := passes[id]
		passes[id]++

		voltaOf := map[int]int{}
		for gi, voltaRange := range sec.Voltas {
			for _, mc := range voltaRange {
				voltaOf[mc] = gi
			}
		}
		active := pass
		if len(sec.Voltas) > 0 && active >= len(sec.Voltas) {
			active = len(sec.Voltas) - 1
		}
		for mc := sec.FirstMC; mc <= sec.LastMC; mc++ {
			if gi, inVolta := voltaOf[mc]; inVolta && gi != active {
				continue
			}
			t.Entries = append(t.Entries, TimelineEntry{
				MC:      mc,
				Section: id,
				Pass:    pass + 1,
				Onset:   pos,
			})
			pos = pos.Add(s.Measures[mc].ActDur)
		}
	}
	t.Total = pos
	return t
}

// EntryAt finds the timeline entry containing the given playback onset.
func (t *Timeline) EntryAt(onset Frac) *TimelineEntry {
	for i := len(t.Entries) - 1; i >= 0; i-- {
		if t.Entries[i].Onset.Cmp(onset) <= 0 {
			return &t.Entries[i]
		}
	}
	return nil
}

// String returns a string representation of the timeline.
func (t *Timeline) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Timeline: %d measures, total length %s\n", len(t.Entries), t.Total))
	for _, e := range t.Entries {
		sb.WriteString(fmt.Sprintf("  MC %d (section %d, pass %d) at %s\n", e.MC, e.Section, e.Pass, e.Onset))
	}
	return sb.String()
}
