package sqlite

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/mmynk/tripmatch/internal/models"
)

// tables lists every model with its foreign keys.
// Child tables reference travel_groups or trips; nothing cascades in normal flow except votes,
// which go away with the candidates they reference.
var tables = []struct {
	model       any
	foreignKeys []string
}{
	{model: (*models.Group)(nil)},
	{model: (*models.Member)(nil), foreignKeys: []string{`("group_id") REFERENCES "travel_groups" ("id")`}},
	{model: (*models.Preference)(nil), foreignKeys: []string{`("group_id") REFERENCES "travel_groups" ("id")`}},
	{model: (*models.TimeSlot)(nil), foreignKeys: []string{`("group_id") REFERENCES "travel_groups" ("id")`}},
	{model: (*models.Candidate)(nil), foreignKeys: []string{`("group_id") REFERENCES "travel_groups" ("id")`}},
	{model: (*models.Vote)(nil), foreignKeys: []string{
		`("group_id") REFERENCES "travel_groups" ("id")`,
		`("candidate_id") REFERENCES "candidates" ("id") ON DELETE CASCADE`,
	}},
	{model: (*models.Region)(nil)},
	{model: (*models.Trip)(nil), foreignKeys: []string{`("group_id") REFERENCES "travel_groups" ("id")`}},
	{model: (*models.Flight)(nil), foreignKeys: []string{`("trip_id") REFERENCES "trips" ("id")`}},
	{model: (*models.Accommodation)(nil), foreignKeys: []string{`("trip_id") REFERENCES "trips" ("id")`}},
	{model: (*models.TripMember)(nil), foreignKeys: []string{`("trip_id") REFERENCES "trips" ("id")`}},
}

var indexes = []struct {
	name  string
	query string
}{
	{"idx_group_members_group", "CREATE INDEX IF NOT EXISTS idx_group_members_group ON group_members (group_id)"},
	{"idx_time_slots_group_user", "CREATE INDEX IF NOT EXISTS idx_time_slots_group_user ON time_slots (group_id, user_id)"},
	{"idx_candidates_group", "CREATE INDEX IF NOT EXISTS idx_candidates_group ON candidates (group_id)"},
	{"idx_votes_group_user", "CREATE INDEX IF NOT EXISTS idx_votes_group_user ON votes (group_id, user_id)"},
	{"idx_trips_group", "CREATE INDEX IF NOT EXISTS idx_trips_group ON trips (group_id)"},
	{"idx_flights_trip", "CREATE INDEX IF NOT EXISTS idx_flights_trip ON flights (trip_id)"},
}

// seedRegions are the regions known out of the box, keyed by airport code.
var seedRegions = []models.Region{
	{ID: "jp-tokyo", Code: "NRT", Name: "Tokyo", Country: "JP"},
	{ID: "jp-tokyo-hnd", Code: "HND", Name: "Tokyo Haneda", Country: "JP"},
	{ID: "jp-osaka", Code: "KIX", Name: "Osaka", Country: "JP"},
	{ID: "jp-fukuoka", Code: "FUK", Name: "Fukuoka", Country: "JP"},
	{ID: "jp-okinawa", Code: "OKA", Name: "Okinawa", Country: "JP"},
	{ID: "kr-seoul", Code: "ICN", Name: "Seoul", Country: "KR"},
	{ID: "kr-busan", Code: "PUS", Name: "Busan", Country: "KR"},
	{ID: "th-bangkok", Code: "BKK", Name: "Bangkok", Country: "TH"},
	{ID: "sg-singapore", Code: "SIN", Name: "Singapore", Country: "SG"},
	{ID: "hk-hongkong", Code: "HKG", Name: "Hong Kong", Country: "HK"},
	{ID: "vn-danang", Code: "DAD", Name: "Da Nang", Country: "VN"},
}

// runMigrations creates tables and indexes and seeds the region table.
// Safe to call multiple times.
func runMigrations(ctx context.Context, db *bun.DB) error {
	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", t.model, err)
		}
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx.query); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	regions := append([]models.Region(nil), seedRegions...)
	if _, err := db.NewInsert().Model(&regions).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed regions: %w", err)
	}

	return nil
}
