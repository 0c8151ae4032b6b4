package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/civiclab/scenario-engine/internal/grading"
)

func main() {
	rosterPath := flag.String("roster", "", "path to the student roster CSV")
	activityPath := flag.String("activity", "", "path to the recorded reflection activity CSV")
	outDir := flag.String("out", ".", "directory for the generated grade CSVs")
	cutoff := flag.String("cutoff", "", "override the name-format cutoff date (YYYY-MM-DD)")
	debug := flag.Bool("debug", false, "print every unmatched row")
	flag.Parse()

	if *rosterPath == "" || *activityPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if *cutoff != "" {
		t, err := time.Parse("2006-01-02", *cutoff)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid cutoff date %q: %v\n", *cutoff, err)
			os.Exit(1)
		}
		grading.FormatCutoff = t
	}

	roster, err := grading.LoadRoster(*rosterPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load roster: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d students from roster\n", roster.Len())

	rows, err := grading.ReadActivity(*activityPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read activity file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Found %d completed reflections\n", len(rows))

	groups := grading.GroupCompletions(rows, roster)

	titles := make([]string, 0, len(groups.ByScenario))
	for title := range groups.ByScenario {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	for _, title := range titles {
		completions := groups.ByScenario[title]
		path, err := grading.WriteGradeCSV(*outDir, title, completions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write grades for %q: %v\n", title, err)
			os.Exit(1)
		}
		fmt.Printf("  %s: %d students -> %s\n", title, len(completions), path)
	}

	if len(groups.Unmatched) > 0 {
		fmt.Printf("\n%d rows could not be matched to the roster\n", len(groups.Unmatched))
		if *debug {
			for _, row := range groups.Unmatched {
				fmt.Printf("  unmatched: %q (%s)\n", row.StudentName, row.ScenarioTitle)
			}
		} else {
			fmt.Println("Re-run with -debug to list them")
		}
	}
}
