package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseSectionArg turns the -section flag into a GetNotes section selector:
// an index, an a:b range, or a comma-separated list.
func parseSectionArg(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	if fro, to, ok := strings.Cut(s, ":"); ok {
		a, err1 := strconv.Atoi(strings.TrimSpace(fro))
		b, err2 := strconv.Atoi(strings.TrimSpace(to))
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("invalid section range %q", s)
		}
		return [2]int{a, b}, nil
	}
	if strings.Contains(s, ",") {
		var list []int
		for _, part := range strings.Split(s, ",") {
			i, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("invalid section list %q", s)
			}
			list = append(list, i)
		}
		return list, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid section %q", s)
	}
	return i, nil
}

func main() {
	_ = godotenv.Load()

	logLevel := flag.String("log", envOr("SCORETOOL_LOG", "INFO"), "Set logging to one of DEBUG, INFO, WARNING, ERROR, CRITICAL")
	jsonOutput := flag.Bool("json", false, "Output information as JSON (supported with: default analysis, -measures, -notes, -timeline)")
	showMeasures := flag.Bool("measures", false, "Print the master measure table")
	showNotes := flag.Bool("notes", false, "Print the flattened note table")
	sectionArg := flag.String("section", "", "Restrict -notes to sections: an index, an a:b range, or a comma-separated list")
	beatsizeArg := flag.String("beatsize", "", "Add a beats column to -notes; 'auto' uses the time-signature map, otherwise pass a fraction such as 1/4")
	noteNames := flag.Bool("note-names", false, "Add spelled pitch names to -notes")
	octaves := flag.Bool("octaves", false, "Add an octave column to -notes")
	pcs := flag.Bool("pcs", false, "Add a pitch-class column to -notes")
	printTimeline := flag.Bool("timeline", false, "Print the playback timeline with repeats unrolled")
	exportGm := flag.Bool("export-gm", false, "Export the playback-expanded score to a General MIDI file")
	features := flag.String("features", "", "Comma-separated extra note features (articulation)")
	barlines := flag.String("separating-barlines", envOr("SCORETOOL_BARLINES", "double"), "Comma-separated barline subtypes that split sections")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file.mscx> [output]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	filename := flag.Arg(0)

	level, err := ParseLogLevel(strings.ToUpper(*logLevel))
	if err != nil {
		log.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	score, err := OpenScore(filename, &ScoreOptions{
		Features:           splitList(*features),
		SeparatingBarlines: splitList(*barlines),
		Logger:             log.Default(),
		LogLevel:           level,
	})
	if err != nil {
		log.Printf("Error parsing score: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *exportGm:
		outputFile := flag.Arg(1)
		if outputFile == "" {
			outputFile = "score.mid"
		}
		file, err := os.Create(outputFile)
		if err != nil {
			log.Printf("Error creating output file: %v\n", err)
			os.Exit(1)
		}
		defer file.Close()
		if err := WriteGeneralMidiTo(file, score); err != nil {
			log.Printf("Error exporting MIDI: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("General MIDI exported to: %s\n", outputFile)

	case *printTimeline:
		timeline := score.PlaybackTimeline()
		if *jsonOutput {
			printJSON(timeline)
		} else {
			fmt.Print(timeline.String())
		}

	case *showNotes:
		selector, err := parseSectionArg(*sectionArg)
		if err != nil {
			log.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		var beatsize any
		switch *beatsizeArg {
		case "":
		case "auto", "true":
			beatsize = true
		default:
			beatsize = *beatsizeArg
		}
		list := score.GetNotes(NoteQuery{
			Section:   selector,
			Beatsize:  beatsize,
			Octaves:   *octaves,
			NoteNames: *noteNames,
			PCs:       *pcs,
		})
		if *jsonOutput {
			printJSON(list.Notes)
		} else {
			fmt.Print(noteTableString(list))
		}

	case *showMeasures:
		if *jsonOutput {
			printJSON(score.Measures)
		} else {
			fmt.Print(measureTableString(score.Measures))
		}

	default:
		if *jsonOutput {
			printJSON(score)
		} else {
			fmt.Print(score.String())
		}
	}
}

func printJSON(v any) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Error marshaling to JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jsonData))
}
