package main

import (
	"fmt"
	"strings"
)

// repeatSpan is the inclusive measure-count range of a repeated passage.
type repeatSpan struct {
	start, end int
}

// computeVoltaStructure groups consecutive volta spans. For every group it
// returns one list of measure counts per volta. Overlapping declarations are
// reported and the claimed measures removed; a group whose voltas differ in
// length is accepted only when every measure of the non-first voltas is
// excluded from the bar count.
func computeVoltaStructure(rows []Measure, lg *scoreLogger) [][][]int {
	ok := true
	starts := map[int]bool{}
	for mc := range rows {
		if rows[mc].voltaLen != nil {
			starts[mc] = true
		}
	}

	var structure [][][]int
	next := -1
	for mc := range rows {
		if rows[mc].voltaLen == nil {
			continue
		}
		length := *rows[mc].voltaLen
		var voltaRange, overlaps []int
		for i := mc; i < mc+length && i < len(rows); i++ {
			if i > mc && starts[i] {
				overlaps = append(overlaps, i)
			} else {
				voltaRange = append(voltaRange, i)
			}
		}
		if len(overlaps) > 0 {
			plural := ""
			if len(overlaps) > 1 {
				plural = "s"
			}
			lg.warningf("Voltas overlap in MC%s %v", plural, overlaps)
		}
		if mc != next {
			structure = append(structure, [][]int{voltaRange})
		} else {
			structure[len(structure)-1] = append(structure[len(structure)-1], voltaRange)
		}
		next = mc + len(voltaRange)
		for _, i := range voltaRange {
			if rows[i].Repeats == "startRepeat" {
				lg.errorf("Volta with range %v contains startRepeat!", voltaRange)
				ok = false
			}
		}
	}

	for _, group := range structure {
		uniform := true
		for _, voltaRange := range group[1:] {
			if len(voltaRange) != len(group[0]) {
				uniform = false
			}
		}
		if !uniform {
			excluded := true
			for _, voltaRange := range group[1:] {
				for _, mc := range voltaRange {
					if !rows[mc].DontCount {
						excluded = false
					}
				}
			}
			if !excluded {
				lg.warningf("Voltas with measure counts %v have different lengths. Check measure numbers with an authoritative score: either make all voltas the same length or exclude all measures in voltas > 1 from the bar count.", group)
				ok = false
			}
		}
	}

	if ok {
		lg.debugf("Volta structure OK.")
	}
	return structure
}

// writeVoltaOrdinals replaces the declared lengths in the master table with
// each measure's ordinal position within its volta group.
func writeVoltaOrdinals(rows []Measure, structure [][][]int) {
	for _, group := range structure {
		for i, voltaRange := range group {
			for _, mc := range voltaRange {
				rows[mc].Volta = i + 1
			}
		}
	}
}

// computeRepeatStructure locates the repeated spans of the score from the
// repeat marks, using the firstMeasure/lastMeasure sentinels to resolve
// implicit boundaries.
func computeRepeatStructure(rows []Measure, lg *scoreLogger) []repeatSpan {
	type entry struct {
		mc      int
		repeats string
		volta   int
	}
	var considered []entry
	for mc := range rows {
		if rows[mc].Repeats != "" || rows[mc].Volta != 0 {
			considered = append(considered, entry{mc, rows[mc].Repeats, rows[mc].Volta})
		}
	}
	if n := len(considered); n > 0 {
		last := considered[n-1]
		if last.repeats == "lastMeasure" && last.volta == 0 {
			considered = considered[:n-1]
		}
	}
	if len(considered) <= 1 {
		return nil
	}
	if considered[0].repeats == "firstMeasure" {
		i := 1
		for i < len(considered)-1 && considered[i].repeats == "" {
			i++
		}
		if considered[i].repeats == "endRepeat" {
			considered[0].repeats = "startRepeat"
		} else {
			considered = considered[1:]
		}
	}

	var startMCs, endMCs []int
	for i, e := range considered {
		if e.repeats == "startRepeat" {
			startMCs = append(startMCs, e.mc)
		}
		if i+1 < len(considered) && considered[i+1].repeats == "startRepeat" {
			endMCs = append(endMCs, e.mc)
		}
	}
	endMCs = append(endMCs, considered[len(considered)-1].mc)

	var spans []repeatSpan
	for i := 0; i < len(startMCs) && i < len(endMCs); i++ {
		spans = append(spans, repeatSpan{startMCs[i], endMCs[i]})
	}
	if len(startMCs) != len(endMCs) {
		lg.errorf("Unbalanced repeat marks: %d start against %d end positions.", len(startMCs), len(endMCs))
	}
	return spans
}

// computeNext fills the playback successor lists of the master table. The
// default successor is the following measure; the end of a repeated section
// additionally jumps back to its beginning, and volta groups divert the
// measure before the group to the first measure of every alternative.
func (s *Score) computeNext() {
	rows := s.Measures
	beforeVolta := map[int][]int{}
	for _, sec := range s.Sections {
		fro, to := sec.FirstMC, sec.LastMC
		voltaMCs := map[int]bool{}
		for _, voltaRange := range sec.Voltas {
			for _, mc := range voltaRange {
				voltaMCs[mc] = true
			}
		}
		var normal []int
		repeatLast := false
		if len(voltaMCs) == 0 {
			for mc := fro; mc <= to; mc++ {
				normal = append(normal, mc)
			}
			repeatLast = sec.Repeated
		} else {
			for mc := fro; mc <= to; mc++ {
				if !voltaMCs[mc] {
					normal = append(normal, mc)
				}
			}
			n := len(sec.Voltas)
			for idx := n - 1; idx >= 0; idx-- {
				group := sec.Voltas[idx]
				if idx > 0 {
					var notExcluded []int
					for _, mc := range group {
						if rows[mc].DontCount || rows[mc].NumberingOffset != nil {
							continue
						}
						notExcluded = append(notExcluded, mc)
					}
					if len(notExcluded) > 0 {
						plural, verb := "", "has"
						if len(notExcluded) > 1 {
							plural, verb = "s", "have"
						}
						s.log.warningf("MC%s %v in volta %v %s not been excluded from bar count.", plural, notExcluded, group, verb)
					}
				}
				if idx == n-1 { // final volta plays through
					normal = append(normal, group...)
					for _, mc := range group {
						if rows[mc].Repeats == "startRepeat" || rows[mc].Repeats == "endRepeat" {
							s.log.warningf("Final volta with MC %v contains a repeat sign.", group)
							break
						}
					}
					continue
				}
				for j := len(group) - 1; j >= 0; j-- {
					mc := group[j]
					if j == len(group)-1 { // jumps back to the section start
						rows[mc].Next = []int{fro}
						if rows[mc].Repeats != "endRepeat" {
							s.log.warningf("Volta with MC %v is missing the endRepeat.", group)
						}
					} else {
						normal = append(normal, mc)
					}
				}
			}
			if len(sec.Voltas) > 0 && len(sec.Voltas[0]) > 0 {
				firsts := make([]int, 0, len(sec.Voltas))
				for _, voltaRange := range sec.Voltas {
					if len(voltaRange) > 0 {
						firsts = append(firsts, voltaRange[0])
					}
				}
				beforeVolta[sec.Voltas[0][0]-1] = firsts
			}
		}
		for _, mc := range normal {
			rows[mc].Next = []int{mc + 1}
		}
		if repeatLast {
			rows[to].Next = append(rows[to].Next, fro)
		}
	}
	for mc, firsts := range beforeVolta {
		if mc >= 0 && mc < len(rows) {
			rows[mc].Next = firsts
		}
	}
	last := len(rows) - 1
	trimmed := rows[last].Next[:0]
	for _, mc := range rows[last].Next {
		if mc != last+1 {
			trimmed = append(trimmed, mc)
		}
	}
	rows[last].Next = trimmed
}

// computeOffsets assigns the logical onset offset of pickup and split
// measures and checks that irregular measure lengths reconcile with their
// successors.
func (s *Score) computeOffsets() {
	rows := s.Measures
	notExcluded := func(m *Measure) bool {
		return !m.DontCount && m.NumberingOffset == nil
	}
	for mc := range rows {
		r := &rows[mc]
		cmp := r.ActDur.Cmp(r.NominalDur)
		if cmp == 0 && r.Repeats != "endRepeat" {
			continue
		}
		switch {
		case cmp > 0:
			s.log.infof("MC %d is longer than its nominal value.", mc)
		case cmp == 0: // endRepeat into possibly irregular targets
			var irrMCs []int
			var irrVals []string
			for _, n := range r.Next {
				if n >= 0 && n < len(rows) && !rows[n].ActDur.Equal(rows[n].NominalDur) {
					irrMCs = append(irrMCs, n)
					irrVals = append(irrVals, rows[n].ActDur.String())
				}
			}
			if len(irrMCs) > 0 {
				plural := ""
				if len(irrMCs) > 1 {
					plural = "s"
				}
				s.log.warningf("The endRepeat in MC %d (%s) is not adapted to the irregular measure length%s in MC%s %v (%s).", mc, r.ActDur, plural, plural, irrMCs, strings.Join(irrVals, ", "))
			}
		case mc == 0: // anacrusis
			r.Offset = r.NominalDur.Sub(r.ActDur)
			if notExcluded(r) {
				s.log.warningf("MC %d seems to be a pickup measure but has not been excluded from bar count!", mc)
			}
		default: // incomplete measure
			if !r.Offset.IsZero() {
				continue // already assigned as the completion of a split
			}
			missing := r.NominalDur.Sub(r.ActDur)
			for _, n := range r.Next {
				if n < 0 || n >= len(rows) {
					continue
				}
				if rows[n].ActDur.Equal(missing) {
					rows[n].Offset = r.ActDur
					if notExcluded(&rows[n]) {
						s.log.warningf("MC %d is completing MC %d but has not been excluded from bar count!", n, mc)
					}
				} else {
					s.log.warningf("MC %d (%s) and MC %d (%s) don't add up to %s.", mc, r.ActDur, n, rows[n].ActDur, r.NominalDur)
				}
			}
		}
	}
}

// measureTableString renders the master table for the CLI report.
func measureTableString(rows []Measure) string {
	var sb strings.Builder
	sb.WriteString("mc\tmn\tkeysig\ttimesig\tact_dur\toffset\tvoices\trepeats\tvolta\tbarline\tsection\tnext\n")
	for i := range rows {
		r := &rows[i]
		volta := ""
		if r.Volta != 0 {
			volta = fmt.Sprintf("%d", r.Volta)
		}
		sb.WriteString(fmt.Sprintf("%d\t%d\t%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%d\t%v\n",
			r.MC, r.MN, r.KeySig, r.TimeSig, r.ActDur, r.Offset, r.Voices,
			r.Repeats, volta, r.Barline, r.Section, r.Next))
	}
	return sb.String()
}
