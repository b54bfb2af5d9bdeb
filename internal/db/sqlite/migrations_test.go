package sqlite

import (
	"context"
	"testing"
)

func TestModerationIndexesExistAfterMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	tables := map[string][]string{
		"infractions": {"idx_infractions_user_kind", "idx_infractions_timed_mutes"},
		"appeals":     {"idx_appeals_pending", "idx_appeals_case"},
	}

	for table, required := range tables {
		rows, err := client.db.QueryContext(ctx, "PRAGMA index_list('"+table+"')")
		if err != nil {
			t.Fatalf("query index_list for %s: %v", table, err)
		}

		indexes := make(map[string]struct{})
		for rows.Next() {
			var (
				seq     int
				name    string
				unique  int
				origin  string
				partial int
			)
			if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
				t.Fatalf("scan index row: %v", err)
			}
			indexes[name] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			t.Fatalf("iterate index rows: %v", err)
		}
		_ = rows.Close()

		for _, name := range required {
			if _, ok := indexes[name]; !ok {
				t.Fatalf("required index %q not found on %s", name, table)
			}
		}
	}
}
