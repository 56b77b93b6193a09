package main

import (
	"fmt"
)

// Section is one structural unit of the score: a repeated or unrepeated
// passage, possibly carved into subsections by separating barlines.
type Section struct {
	Index      int     `json:"index"`
	FirstMC    int     `json:"first_mc"`
	LastMC     int     `json:"last_mc"`
	FirstMN    int     `json:"first_mn"`
	LastMN     int     `json:"last_mn"`
	Repeated   bool    `json:"repeated"`
	StartBreak string  `json:"start_break"`
	EndBreak   string  `json:"end_break"`
	Voltas     [][]int `json:"voltas,omitempty"`
	// SubsectionOf points to the super-section id when separating barlines
	// split an outer section.
	SubsectionOf *int   `json:"subsection_of,omitempty"`
	Previous     *int   `json:"previous,omitempty"`
	Next         *int   `json:"next,omitempty"`
	Notes        []Note `json:"notes"`
}

func (s *Section) String() string {
	rep := "S"
	if s.Repeated {
		rep = "Repeated s"
	}
	sub := "ection"
	if s.SubsectionOf != nil {
		sub = "ubsection"
	}
	voltas := "without voltas"
	if len(s.Voltas) > 0 {
		voltas = fmt.Sprintf("with %d voltas", len(s.Voltas))
	}
	return fmt.Sprintf("%s%s from MC %d (%s) to MC %d (%s), %s.",
		rep, sub, s.FirstMC, s.StartBreak, s.LastMC, s.EndBreak, voltas)
}

// newSection appends a section covering [fro, to], links it into the
// previous/next chain and parses its notes.
func (s *Score) newSection(fro, to int, repeated bool, startBreak, endBreak string) int {
	idx := len(s.Sections)
	sec := &Section{
		Index:      idx,
		FirstMC:    fro,
		LastMC:     to,
		Repeated:   repeated,
		StartBreak: startBreak,
		EndBreak:   endBreak,
	}
	if idx > 0 {
		prev := idx - 1
		sec.Previous = &prev
		next := idx
		s.Sections[prev].Next = &next
	}
	s.Sections = append(s.Sections, sec)
	s.parseSectionNotes(sec)
	return idx
}

// createSection emits the section(s) covering [fro, to], splitting at
// separating barlines into subsections that share one super-section.
func (s *Score) createSection(fro, to int, repeated bool) {
	rows := s.Measures
	startReason := rows[fro].Repeats
	if startReason == "" {
		if repeated {
			startReason = "startRepeat"
		} else {
			startReason = "startNormal"
		}
	}
	endReason := rows[to].Repeats
	if endReason == "" {
		if repeated {
			endReason = "endRepeat"
		} else {
			endReason = "endNormal"
		}
	}

	separating := map[string]bool{}
	for _, b := range s.SeparatingBarlines {
		separating[b] = true
	}
	var splitMCs []int
	for mc := fro + 1; mc <= to-1; mc++ {
		if rows[mc].Barline != "" && separating[rows[mc].Barline] {
			splitMCs = append(splitMCs, mc)
		}
	}

	var subsections []int
	if len(splitMCs) > 0 {
		from, reason := fro, startReason
		for _, mc := range splitMCs {
			boundary := rows[mc].Barline + "_barline"
			subsections = append(subsections, s.newSection(from, mc, repeated, reason, boundary))
			from, reason = mc+1, boundary
		}
		subsections = append(subsections, s.newSection(from, to, repeated, reason, endReason))
	} else {
		subsections = append(subsections, s.newSection(fro, to, repeated, startReason, endReason))
	}

	passes := 1
	if repeated {
		passes = 2
	}
	for i := 0; i < passes; i++ {
		s.SectionOrder = append(s.SectionOrder, subsections...)
	}
	superID := len(s.SuperSections)
	s.SuperSections = append(s.SuperSections, subsections)
	if len(subsections) > 1 {
		for _, id := range subsections {
			super := superID
			s.Sections[id].SubsectionOf = &super
		}
	}
	for i := 0; i < passes; i++ {
		s.SuperSectionOrder = append(s.SuperSectionOrder, superID)
	}
	repStr := ""
	if repeated {
		repStr = "repeated "
	}
	s.log.debugf("Created %ssection from %d to %d.", repStr, fro, to)
}

// createSections partitions the score along the repeated spans: gaps before
// and after repeats become unrepeated sections.
func (s *Score) createSections(spans []repeatSpan) {
	lastTo := -1
	to := -1
	for _, span := range spans {
		if span.start != lastTo+1 {
			s.createSection(lastTo+1, span.start-1, false)
		}
		s.createSection(span.start, span.end, true)
		lastTo = span.end
		to = span.end
	}
	if to != s.LastMC {
		start := 0
		if len(spans) > 0 {
			start = to + 1
		}
		s.createSection(start, s.LastMC, false)
	}
}

// assignVoltaGroups attaches every volta group to the section whose range
// contains all of its measure counts, and stamps the section id onto every
// master-table row.
func (s *Score) assignVoltaGroups(structure [][][]int) {
	secIdx := 0
	for _, group := range structure {
		maxMC := -1
		for _, voltaRange := range group {
			for _, mc := range voltaRange {
				if mc > maxMC {
					maxMC = mc
				}
			}
		}
		for secIdx < len(s.Sections)-1 && maxMC > s.Sections[secIdx].LastMC {
			secIdx++
		}
		s.Sections[secIdx].Voltas = group
	}

	for i := range s.Measures {
		s.Measures[i].Section = -1
	}
	for _, sec := range s.Sections {
		for mc := sec.FirstMC; mc <= sec.LastMC && mc < len(s.Measures); mc++ {
			s.Measures[mc].Section = sec.Index
		}
	}
	for i := range s.Measures {
		if s.Measures[i].Section == -1 {
			s.log.criticalf("Not all measure nodes have been assigned to a section.")
			break
		}
	}
}

// setSectionMNs stores the first and last displayed measure number of every
// section.
func (s *Score) setSectionMNs() {
	for _, sec := range s.Sections {
		sec.FirstMN = s.Measures[sec.FirstMC].MN
		sec.LastMN = s.Measures[sec.LastMC].MN
	}
}
