package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/gomidi/midi/v2/smf"
)

func TestWriteGeneralMidiRepeat(t *testing.T) {
	score := parseFixture(t, plainRepeatScore())

	var buf bytes.Buffer
	require.NoError(t, WriteGeneralMidiTo(&buf, score))

	out, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, out.Tracks, 2) // conductor plus one staff

	noteOns := 0
	var ch, key, vel uint8
	for _, event := range out.Tracks[1] {
		if event.Message.GetNoteOn(&ch, &key, &vel) && vel > 0 {
			noteOns++
			assert.Equal(t, uint8(60), key)
		}
	}
	// four measures played twice
	assert.Equal(t, 8, noteOns)
}

func TestWriteGeneralMidiTieMerging(t *testing.T) {
	score := parseFixture(t, graceAndTieScore())

	var buf bytes.Buffer
	require.NoError(t, WriteGeneralMidiTo(&buf, score))

	out, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, out.Tracks, 2)

	type interval struct{ on, off uint32 }
	open := map[uint8]uint32{}
	intervals := map[uint8][]interval{}
	var tick uint32
	var ch, key, vel uint8
	for _, event := range out.Tracks[1] {
		tick += event.Delta
		if event.Message.GetNoteOn(&ch, &key, &vel) && vel > 0 {
			open[key] = tick
		} else if event.Message.GetNoteOff(&ch, &key, &vel) ||
			(event.Message.GetNoteOn(&ch, &key, &vel) && vel == 0) {
			intervals[key] = append(intervals[key], interval{open[key], tick})
		}
	}

	// the grace note carries no duration and is not exported
	assert.Empty(t, intervals[59])
	// the tied C sounds once, from beat 4 of measure one to the end of
	// measure two (480 ticks per quarter)
	require.Len(t, intervals[60], 1)
	assert.Equal(t, uint32(3*480), intervals[60][0].on)
	assert.Equal(t, uint32(8*480), intervals[60][0].off)
}

func TestWriteGeneralMidiConductor(t *testing.T) {
	score := parseFixture(t, plainRepeatScore())

	var buf bytes.Buffer
	require.NoError(t, WriteGeneralMidiTo(&buf, score))

	out, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	var sawTempo, sawTimeSig bool
	var bpm float64
	var num, denom uint8
	for _, event := range out.Tracks[0] {
		if event.Message.GetMetaTempo(&bpm) {
			sawTempo = true
			assert.InDelta(t, 120.0, bpm, 0.01)
		}
		if event.Message.GetMetaTimeSig(&num, &denom, nil, nil) {
			sawTimeSig = true
			assert.Equal(t, uint8(4), num)
		}
	}
	assert.True(t, sawTempo)
	assert.True(t, sawTimeSig)
}
