package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	domainRoster "directory/internal/domain/roster"
)

// RowSource is the subset of a roster source the seeder uses.
type RowSource interface {
	Rows(ctx context.Context) ([][]string, error)
	AppendRow(ctx context.Context, values []string) error
}

// SeedRosterDeps holds dependencies for SeedRoster.
type SeedRosterDeps struct {
	Source RowSource
}

// SampleHeaders is the column layout of the development roster.
var SampleHeaders = []string{
	domainRoster.FieldName, domainRoster.FieldLocation, domainRoster.FieldRole,
	domainRoster.FieldEmail, domainRoster.FieldContactNumber, domainRoster.FieldContactExtn,
	domainRoster.FieldDays, domainRoster.FieldAgeGroup, domainRoster.FieldSpecialty,
	domainRoster.FieldLanguages, domainRoster.FieldPhoto,
}

// sampleStaff are fictional clinicians for local development.
var sampleStaff = [][]string{
	{"Ann Lee", "NPD", "Speech Language Pathologist", "ann.lee@example.org", "555-0101", "101", "Mon, Tue", "Child", "Autism\nFeeding", "English, Mandarin", ""},
	{"Ben Roy", "CDC", "Occupational Therapist", "ben.roy@example.org", "555-0102", "102", "Wed, Thu", "Adult", "Sensory integration", "English", ""},
	{"Cara Diaz", "NPS", "Speech Language Pathologist", "cara.diaz@example.org", "555-0103", "103", "Fri", "Child", "Stuttering", "Spanish, English", ""},
	{"Dev Patel", "NPD, NPS", "Psychologist", "dev.patel@example.org", "555-0104", "104", "Mon, Wed", "Adolescent", "ADHD\nAnxiety", "Hindi, English", ""},
	{"Eli Moss", "CDC", "Physiotherapist", "eli.moss@example.org", "555-0105", "105", "Tue, Thu", "Adult", "Gait\nVestibular", "English", ""},
}

// ExecuteSeedRoster writes the sample roster into an empty source.
// PRE: none
// POST: A source that already has rows is left untouched; returns the number of rows written
func ExecuteSeedRoster(ctx context.Context, deps SeedRosterDeps) (int, error) {
	rows, err := deps.Source.Rows(ctx)
	if err != nil {
		return 0, fmt.Errorf("read source before seeding: %w", err)
	}
	if len(rows) > 0 {
		return 0, nil
	}
	written := 0
	for _, row := range append([][]string{SampleHeaders}, sampleStaff...) {
		if err := deps.Source.AppendRow(ctx, row); err != nil {
			return written, fmt.Errorf("seed row %d: %w", written+1, err)
		}
		written++
	}
	slog.Info("roster_seeded", "rows", written)
	return written, nil
}
