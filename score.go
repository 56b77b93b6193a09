package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Newest MuseScore 3 release this parser knows about. Older 3.x files log a
// warning; other major versions are rejected.
const newestMuseScore = "3.3.0"

// ScoreOptions configures a parse.
type ScoreOptions struct {
	// Features enables optional note columns. Recognized: "articulation".
	Features []string
	// SeparatingBarlines lists the barline subtypes that split sections into
	// subsections. Defaults to ["double"].
	SeparatingBarlines []string
	// Logger receives all recoverable findings; defaults to log.Default().
	Logger *log.Logger
	// LogLevel is the minimum reported severity; defaults to WARNING.
	LogLevel LogLevel
}

// Score is the parsed, queryable model of one MuseScore 3 file.
//
// Measure count mc is the zero-based position of a measure node in the
// score, identical across staves. Measure number mn is the number displayed
// to the reader; one mn can span several mc (split measures) and numbers can
// be skipped or offset by user hints.
type Score struct {
	Path               string   `json:"path,omitempty"`
	Filename           string   `json:"filename,omitempty"`
	Features           []string `json:"features,omitempty"`
	SeparatingBarlines []string `json:"separating_barlines"`

	// Measures is the master measure table, one row per mc.
	Measures []Measure `json:"measures"`
	// Sections partition the measure counts; every mc belongs to exactly one.
	Sections []*Section `json:"sections"`
	// SectionOrder lists section ids in playback order, repeated sections
	// twice.
	SectionOrder []int `json:"section_order"`
	// SuperSections groups the subsection ids that share one repetition
	// bracket.
	SuperSections     [][]int `json:"super_sections"`
	SuperSectionOrder []int   `json:"super_section_order"`
	LastMC            int     `json:"last_mc"`

	log          *scoreLogger
	staffIDs     []int
	measureNodes map[int][]*XMLNode
}

// OpenScore parses the MSCX file at the given path.
func OpenScore(filename string, opts *ScoreOptions) (*Score, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("error opening score file: %w", err)
	}
	defer file.Close()

	score, err := ParseScore(file, opts)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", filepath.Base(filename), err)
	}
	abs, err := filepath.Abs(filename)
	if err == nil {
		score.Path = filepath.Dir(abs)
	}
	score.Filename = filepath.Base(filename)
	return score, nil
}

// ParseScore parses a MuseScore 3 XML document and runs the full structural
// analysis. Recoverable findings are logged; fatal ones are returned.
func ParseScore(r io.Reader, opts *ScoreOptions) (*Score, error) {
	if opts == nil {
		opts = &ScoreOptions{}
	}
	separating := opts.SeparatingBarlines
	if separating == nil {
		separating = []string{"double"}
	}
	s := &Score{
		Features:           opts.Features,
		SeparatingBarlines: separating,
		log:                newScoreLogger(opts.Logger, opts.LogLevel),
		measureNodes:       map[int][]*XMLNode{},
	}

	root, err := decodeXML(r)
	if err != nil {
		return nil, err
	}

	pv := root.Find("programVersion")
	if pv == nil {
		return nil, fmt.Errorf("document has no programVersion element")
	}
	version := pv.Text()
	if version != newestMuseScore {
		s.log.warningf("Score was created with MuseScore %s. Auto-conversion will be implemented in the future.", version)
	}
	if major, _, _ := strings.Cut(version, "."); major != "3" {
		return nil, fmt.Errorf("not a MuseScore 3 file (version %s)", version)
	}

	staves := findStaves(root)
	if len(staves) == 0 {
		return nil, fmt.Errorf("document contains no Staff elements after Part")
	}

	tables := map[int][]mcRow{}
	for pos, staff := range staves {
		id := pos + 1
		if v, ok := staff.Attr("id"); ok {
			if parsed, err := strconv.Atoi(v); err == nil {
				id = parsed
			}
		}
		s.staffIDs = append(s.staffIDs, id)
		s.log.debugf("Stored staff with ID %d.", id)
		tables[id] = s.buildStaffTable(id, staff)
	}
	for _, id := range s.staffIDs {
		if err := s.completeStaffTable(id, tables[id]); err != nil {
			return nil, err
		}
	}

	s.Measures, err = s.reconcileStaves(tables)
	if err != nil {
		return nil, err
	}
	s.LastMC = len(s.Measures) - 1

	computeMN(s.Measures, s.log)

	voltaStructure := computeVoltaStructure(s.Measures, s.log)
	writeVoltaOrdinals(s.Measures, voltaStructure)

	spans := computeRepeatStructure(s.Measures, s.log)
	s.createSections(spans)
	s.assignVoltaGroups(voltaStructure)
	s.checkMeasureBoundaries()
	s.setSectionMNs()
	s.computeNext()
	s.computeOffsets()

	s.log.infof("Done parsing.")
	return s, nil
}

// findStaves locates the first Part element and returns its following Staff
// siblings, in document order.
func findStaves(root *XMLNode) []*XMLNode {
	var staves []*XMLNode
	var walk func(n *XMLNode) bool
	walk = func(n *XMLNode) bool {
		partIdx := -1
		for i := range n.Nodes {
			if n.Nodes[i].Name() == "Part" {
				partIdx = i
				break
			}
		}
		if partIdx >= 0 {
			for i := partIdx + 1; i < len(n.Nodes); i++ {
				if n.Nodes[i].Name() == "Staff" {
					staves = append(staves, &n.Nodes[i])
				}
			}
			return true
		}
		for i := range n.Nodes {
			if walk(&n.Nodes[i]) {
				return true
			}
		}
		return false
	}
	walk(root)
	return staves
}

// String renders a short report of the parsed structure.
func (s *Score) String() string {
	var sb strings.Builder
	if s.Filename != "" {
		sb.WriteString(fmt.Sprintf("Score: %s\n", s.Filename))
	}
	sb.WriteString(fmt.Sprintf("Measures: %d\n", len(s.Measures)))
	sb.WriteString(fmt.Sprintf("Sections: %d\n", len(s.Sections)))
	for _, sec := range s.Sections {
		sb.WriteString("  " + sec.String() + "\n")
	}
	sb.WriteString(fmt.Sprintf("Section order: %v\n", s.SectionOrder))
	sb.WriteString(fmt.Sprintf("Super-section order: %v\n", s.SuperSectionOrder))
	return sb.String()
}
