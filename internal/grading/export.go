package grading

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// timestampLayouts covers the formats seen in recorded activity exports.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	time.RFC3339,
}

// activityColumns is the expected header of a reflection activity export.
var activityColumns = []string{
	"Timestamp",
	"Student Name",
	"Scenario Title",
	"Scenario Outcome",
	"Choices Made",
	"Reflection 1",
	"Reflection 2",
	"Reflection 3",
	"Completion Status",
}

// ActivityRow is one completed-scenario record from the activity export.
type ActivityRow struct {
	Timestamp     time.Time
	TimestampOK   bool
	StudentName   string
	ScenarioTitle string
	Outcome       string
}

// Completion is a matched activity row ready for the grade CSV.
type Completion struct {
	OrgID       string
	StudentName string
}

// GradeGroups holds completions grouped per scenario plus the rows that
// could not be matched to the roster.
type GradeGroups struct {
	ByScenario map[string][]Completion
	Unmatched  []ActivityRow
}

// ReadActivity parses a recorded activity CSV and returns rows marked
// "Completed". Files with or without a header row are accepted.
func ReadActivity(path string) ([]ActivityRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open activity file: %w", err)
	}
	defer func() {
		_ = f.Close() // Ignore error in defer
	}()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read activity file: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	start := 0
	if !looksLikeTimestamp(records[0][0]) {
		start = 1
	}

	var rows []ActivityRow
	for _, record := range records[start:] {
		if len(record) < len(activityColumns) {
			continue
		}
		status := strings.TrimSpace(record[8])
		if !strings.EqualFold(status, "Completed") {
			continue
		}

		row := ActivityRow{
			StudentName:   strings.TrimSpace(record[1]),
			ScenarioTitle: strings.TrimSpace(record[2]),
			Outcome:       strings.TrimSpace(record[3]),
		}
		if ts, ok := parseTimestamp(record[0]); ok {
			row.Timestamp = ts
			row.TimestampOK = true
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// GroupCompletions matches activity rows against the roster and groups them
// per scenario, deduplicating repeat completions by the same student.
func GroupCompletions(rows []ActivityRow, roster *Roster) GradeGroups {
	groups := GradeGroups{ByScenario: make(map[string][]Completion)}
	seen := make(map[string]map[string]bool) // scenario -> org id -> recorded

	for _, row := range rows {
		// Rows with unparseable timestamps take the fuzzy path.
		entryTime := row.Timestamp
		if !row.TimestampOK {
			entryTime = FormatCutoff.Add(-time.Hour)
		}

		orgID, ok := roster.Match(row.StudentName, entryTime)
		if !ok {
			groups.Unmatched = append(groups.Unmatched, row)
			continue
		}

		if seen[row.ScenarioTitle] == nil {
			seen[row.ScenarioTitle] = make(map[string]bool)
		}
		if seen[row.ScenarioTitle][orgID] {
			continue
		}
		seen[row.ScenarioTitle][orgID] = true

		groups.ByScenario[row.ScenarioTitle] = append(groups.ByScenario[row.ScenarioTitle], Completion{
			OrgID:       orgID,
			StudentName: row.StudentName,
		})
	}
	return groups
}

// WriteGradeCSV writes one grade import file for a scenario's completions.
// Returns the path of the written file.
func WriteGradeCSV(outDir, scenarioTitle string, completions []Completion) (string, error) {
	path := filepath.Join(outDir, safeFilename(scenarioTitle)+"_grades.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create grade file: %w", err)
	}
	defer func() {
		_ = f.Close() // Ignore error in defer
	}()

	writer := csv.NewWriter(f)
	header := []string{"OrgDefinedId", scenarioTitle + " Points Grade", "End-of-Line Indicator"}
	if err := writer.Write(header); err != nil {
		return "", fmt.Errorf("failed to write grade header: %w", err)
	}
	for _, c := range completions {
		row := []string{strings.TrimPrefix(c.OrgID, "#"), "20", "#"}
		if err := writer.Write(row); err != nil {
			return "", fmt.Errorf("failed to write grade row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush grade file: %w", err)
	}
	return path, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func looksLikeTimestamp(s string) bool {
	_, ok := parseTimestamp(s)
	return ok
}

// safeFilename keeps letters, digits, dashes and underscores, replacing
// everything else so scenario titles make valid file names.
func safeFilename(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "scenario"
	}
	return b.String()
}
