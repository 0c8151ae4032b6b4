// Package grading implements the batch grade exporter: it matches recorded
// reflection rows against a student roster and writes one grade CSV per
// scenario. It runs out-of-band and never touches the interactive engine.
package grading

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// NameEntry is one roster name variation kept for fuzzy matching.
type NameEntry struct {
	Name  string
	OrgID string
}

// Roster holds lookup tables built from the student roster CSV.
type Roster struct {
	byLastFirst map[string]string // normalized "Last, First" -> OrgDefinedId
	byFirstLast map[string]string // normalized "First Last" -> OrgDefinedId
	names       []NameEntry       // all variations, for fuzzy matching
}

// LoadRoster reads a roster CSV with OrgDefinedId, Last Name and First Name
// columns and builds lookups in both name orders.
func LoadRoster(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer func() {
		_ = f.Close() // Ignore error in defer
	}()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("roster %s has no student rows", path)
	}

	header := rows[0]
	idCol, lastCol, firstCol := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "OrgDefinedId":
			idCol = i
		case "Last Name":
			lastCol = i
		case "First Name":
			firstCol = i
		}
	}
	if idCol < 0 || lastCol < 0 || firstCol < 0 {
		return nil, fmt.Errorf("roster %s is missing OrgDefinedId, Last Name or First Name columns", path)
	}

	r := &Roster{
		byLastFirst: make(map[string]string),
		byFirstLast: make(map[string]string),
	}

	for _, row := range rows[1:] {
		if len(row) <= idCol || len(row) <= lastCol || len(row) <= firstCol {
			continue
		}
		orgID := strings.TrimSpace(row[idCol])
		lastName := strings.TrimSpace(row[lastCol])
		firstName := strings.TrimSpace(row[firstCol])
		if orgID == "" || lastName == "" || firstName == "" {
			continue
		}

		lastFirst := lastName + ", " + firstName
		firstLast := firstName + " " + lastName

		r.byLastFirst[normalizeName(lastFirst)] = orgID
		r.byFirstLast[normalizeName(firstLast)] = orgID
		r.names = append(r.names,
			NameEntry{Name: lastFirst, OrgID: orgID},
			NameEntry{Name: firstLast, OrgID: orgID})
	}

	return r, nil
}

// Len returns the number of students in the roster.
func (r *Roster) Len() int {
	return len(r.byLastFirst)
}
