package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	gmTicksPerQuarter = 480
	gmTempo           = 120.0
	gmVelocity        = 100
	gmProgramPiano    = 0
)

// MidiEvent represents a MIDI event with absolute timing
type MidiEvent struct {
	Time    uint32
	Message smf.Message
}

// TrackInfo contains information needed to create a MIDI track
type TrackInfo struct {
	Name    string      // Track name for meta event
	Channel uint8       // MIDI channel
	Program uint8       // GM program number
	Events  []MidiEvent // All MIDI events for this track
}

// GeneralMidiExporter manages the construction of a General MIDI file
type GeneralMidiExporter struct {
	smf    *smf.SMF    // Target MIDI file being built
	tracks []TrackInfo // Accumulated track information
}

// NewGeneralMidiExporter creates a new MIDI exporter
func NewGeneralMidiExporter() *GeneralMidiExporter {
	return &GeneralMidiExporter{
		smf:    smf.NewSMF1(),
		tracks: make([]TrackInfo, 0),
	}
}

// SetupTimingTrack writes the conductor track: a fixed tempo plus the
// score's starting time signature.
func (e *GeneralMidiExporter) SetupTimingTrack(s *Score) error {
	if len(s.Measures) == 0 {
		return fmt.Errorf("score has no measures")
	}
	e.smf.TimeFormat = smf.MetricTicks(gmTicksPerQuarter)

	tempoTrack := smf.Track{}
	tempoTrack = append(tempoTrack, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTrackSequenceName("Tempo"))})
	tempoTrack = append(tempoTrack, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTempo(gmTempo))})

	numStr, denStr, _ := strings.Cut(s.Measures[0].TimeSig, "/")
	num, err1 := strconv.Atoi(numStr)
	den, err2 := strconv.Atoi(denStr)
	if err1 != nil || err2 != nil {
		return fmt.Errorf("invalid starting time signature %q", s.Measures[0].TimeSig)
	}
	tempoTrack = append(tempoTrack, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTimeSig(uint8(num), uint8(den), 24, 8))})
	tempoTrack = append(tempoTrack, smf.Event{Delta: 0, Message: smf.EOT})

	e.smf.Add(tempoTrack)
	return nil
}

// soundingNote is one playback interval, after tie merging.
type soundingNote struct {
	staff, midi int
	start, end  Frac
}

// AddStaffTracks renders the score's notes along the playback timeline, one
// MIDI track per staff. Tied continuations extend the sounding note instead
// of restriking it; grace notes carry no duration and are skipped.
func (e *GeneralMidiExporter) AddStaffTracks(s *Score, timeline *Timeline) error {
	var intervals []soundingNote
	open := map[[2]int]int{} // (staff, midi) -> index of the sounding interval

	for _, entry := range timeline.Entries {
		sec := s.Sections[entry.Section]
		for i := range sec.Notes {
			n := &sec.Notes[i]
			if n.MC != entry.MC || n.Duration.IsZero() {
				continue
			}
			start := entry.Onset.Add(n.Onset)
			end := start.Add(n.Duration)
			key := [2]int{n.Staff, n.MIDI}
			if n.Tied != nil && *n.Tied <= 0 {
				if idx, ok := open[key]; ok {
					intervals[idx].end = end
					if *n.Tied == -1 {
						delete(open, key)
					}
					continue
				}
			}
			intervals = append(intervals, soundingNote{staff: n.Staff, midi: n.MIDI, start: start, end: end})
			if n.Tied != nil && *n.Tied >= 0 {
				open[key] = len(intervals) - 1
			}
		}
	}
	if len(intervals) == 0 {
		return fmt.Errorf("no sounding notes to export")
	}

	ticks := func(f Frac) uint32 {
		t := f.Mul(Frac{4 * gmTicksPerQuarter, 1})
		return uint32(t.Num() / t.Den())
	}

	staffEvents := map[int][]MidiEvent{}
	for _, iv := range intervals {
		channel := uint8((iv.staff - 1) % 16)
		if channel == 9 {
			channel = 10 // keep melodic staves off the GM drum channel
		}
		key := uint8(iv.midi)
		staffEvents[iv.staff] = append(staffEvents[iv.staff],
			MidiEvent{Time: ticks(iv.start), Message: smf.Message(midi.NoteOn(channel, key, gmVelocity))},
			MidiEvent{Time: ticks(iv.end), Message: smf.Message(midi.NoteOff(channel, key))})
	}

	var staffIDs []int
	for id := range staffEvents {
		staffIDs = append(staffIDs, id)
	}
	sort.Ints(staffIDs)
	for _, id := range staffIDs {
		channel := uint8((id - 1) % 16)
		if channel == 9 {
			channel = 10
		}
		e.tracks = append(e.tracks, TrackInfo{
			Name:    fmt.Sprintf("Staff %d", id),
			Channel: channel,
			Program: gmProgramPiano,
			Events:  staffEvents[id],
		})
	}
	return nil
}

// WriteTo finalizes the MIDI file and writes it to the provided writer
func (e *GeneralMidiExporter) WriteTo(writer io.Writer) error {
	if len(e.tracks) == 0 {
		return fmt.Errorf("no tracks to export")
	}

	for _, trackInfo := range e.tracks {
		midiTrack := createMidiTrack(trackInfo)
		e.smf.Add(midiTrack)
	}

	_, err := e.smf.WriteTo(writer)
	if err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}

	return nil
}

// createMidiTrack builds a complete MIDI track from TrackInfo
func createMidiTrack(trackInfo TrackInfo) smf.Track {
	track := smf.Track{}

	trackNameMsg := smf.Message(smf.MetaTrackSequenceName(trackInfo.Name))
	track = append(track, smf.Event{Delta: 0, Message: trackNameMsg})

	programChangeMsg := smf.Message(midi.ProgramChange(trackInfo.Channel, trackInfo.Program))
	track = append(track, smf.Event{Delta: 0, Message: programChangeMsg})

	// Sort events by time, note-offs before note-ons at the same tick so a
	// repeated pitch is released before it restrikes
	events := make([]MidiEvent, len(trackInfo.Events))
	copy(events, trackInfo.Events)
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Time == events[j].Time {
			var ch1, note1, vel1 uint8
			var ch2, note2, vel2 uint8
			isNoteOff1 := events[i].Message.GetNoteOff(&ch1, &note1, &vel1)
			isNoteOff2 := events[j].Message.GetNoteOff(&ch2, &note2, &vel2)
			return isNoteOff1 && !isNoteOff2
		}
		return events[i].Time < events[j].Time
	})

	// Add events with proper delta times
	var lastTime uint32
	for _, event := range events {
		delta := event.Time - lastTime
		track = append(track, smf.Event{Delta: delta, Message: event.Message})
		lastTime = event.Time
	}

	track = append(track, smf.Event{Delta: 0, Message: smf.EOT})
	return track
}

// WriteGeneralMidiTo renders the playback-expanded score as a General MIDI
// file.
func WriteGeneralMidiTo(writer io.Writer, s *Score) error {
	exporter := NewGeneralMidiExporter()
	if err := exporter.SetupTimingTrack(s); err != nil {
		return err
	}
	if err := exporter.AddStaffTracks(s, s.PlaybackTimeline()); err != nil {
		return err
	}
	return exporter.WriteTo(writer)
}
