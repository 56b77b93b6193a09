package main

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *scoreLogger {
	return newScoreLogger(log.New(io.Discard, "", 0), LevelCritical)
}

// makeRows builds a master table of n regular 4/4 measures.
func makeRows(n int) []Measure {
	rows := make([]Measure, n)
	for i := range rows {
		rows[i] = Measure{
			MC:         i,
			TimeSig:    "4/4",
			NominalDur: NewFrac(1, 1),
			ActDur:     NewFrac(1, 1),
			Voices:     1,
		}
	}
	rows[0].Repeats = "firstMeasure"
	rows[n-1].Repeats = "lastMeasure"
	return rows
}

func TestComputeRepeatStructure(t *testing.T) {
	rows := makeRows(41)
	rows[16].Volta = 1
	rows[17].Repeats = "endRepeat"
	rows[17].Volta = 1
	rows[18].Volta = 2
	rows[19].Repeats = "startRepeat"
	rows[23].Repeats = "endRepeat"
	rows[23].Volta = 1
	rows[24].Repeats = "endRepeat"
	rows[24].Volta = 2
	rows[25].Volta = 3
	rows[31].Repeats = "startRepeat"
	rows[39].Repeats = "endRepeat"
	rows[39].Volta = 1
	rows[40].Volta = 2

	spans := computeRepeatStructure(rows, testLogger())
	assert.Equal(t, []repeatSpan{{0, 18}, {19, 25}, {31, 40}}, spans)
}

func TestComputeRepeatStructureNoRepeats(t *testing.T) {
	rows := makeRows(8)
	assert.Empty(t, computeRepeatStructure(rows, testLogger()))
}

func TestComputeRepeatStructureImplicitStart(t *testing.T) {
	rows := makeRows(4)
	rows[3].Repeats = "endRepeat"
	spans := computeRepeatStructure(rows, testLogger())
	assert.Equal(t, []repeatSpan{{0, 3}}, spans)
}

func TestComputeRepeatStructureMidScore(t *testing.T) {
	rows := makeRows(10)
	rows[4].Repeats = "startRepeat"
	rows[7].Repeats = "endRepeat"
	spans := computeRepeatStructure(rows, testLogger())
	assert.Equal(t, []repeatSpan{{4, 7}}, spans)
}

func intp(v int) *int { return &v }

func TestComputeVoltaStructureGroups(t *testing.T) {
	rows := makeRows(16)
	rows[5].voltaLen = intp(2)
	rows[7].voltaLen = intp(2)
	rows[12].voltaLen = intp(1)

	structure := computeVoltaStructure(rows, testLogger())
	require.Len(t, structure, 2)
	assert.Equal(t, [][]int{{5, 6}, {7, 8}}, structure[0])
	assert.Equal(t, [][]int{{12}}, structure[1])

	writeVoltaOrdinals(rows, structure)
	assert.Equal(t, 1, rows[5].Volta)
	assert.Equal(t, 1, rows[6].Volta)
	assert.Equal(t, 2, rows[7].Volta)
	assert.Equal(t, 2, rows[8].Volta)
	assert.Equal(t, 1, rows[12].Volta)
	assert.Equal(t, 0, rows[9].Volta)
}

func TestComputeVoltaStructureOverlap(t *testing.T) {
	rows := makeRows(12)
	rows[5].voltaLen = intp(3) // claims 5,6,7 but 7 starts the next volta
	rows[7].voltaLen = intp(1)
	rows[7].DontCount = true

	structure := computeVoltaStructure(rows, testLogger())
	require.Len(t, structure, 1)
	assert.Equal(t, [][]int{{5, 6}, {7}}, structure[0])
}

func TestComputeMNTable(t *testing.T) {
	rows := makeRows(5)
	rows[1].DontCount = true
	rows[3].NumberingOffset = intp(-1)

	computeMN(rows, testLogger())
	var mns []int
	for _, r := range rows {
		mns = append(mns, r.MN)
	}
	assert.Equal(t, []int{1, 1, 2, 2, 3}, mns)
}

func TestCheckMNGapReported(t *testing.T) {
	rows := makeRows(3)
	rows[0].MN = 1
	rows[1].MN = 3
	rows[2].MN = 4

	buf := &logCapture{}
	checkMN(rows, newScoreLogger(log.New(buf, "", 0), LevelError))
	require.NotEmpty(t, buf.lines)
	assert.Contains(t, buf.lines[0], "numbering gap")
}

type logCapture struct {
	lines []string
}

func (c *logCapture) Write(p []byte) (int, error) {
	c.lines = append(c.lines, string(p))
	return len(p), nil
}
