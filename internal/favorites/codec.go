package favorites

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"moviefinder/internal/domain"
)

// timestampLayout matches the millisecond ISO-8601 form used by browsers,
// e.g. "2024-01-01T00:00:00.000Z".
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// record is the persisted shape of a favorite. Older payloads carried the
// identifier under "imdbID"; it is still accepted on read.
type record struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Year        int    `json:"year"`
	ExternalID  string `json:"externalId"`
	LegacyID    string `json:"imdbID,omitempty"`
	FavoritedAt string `json:"favoritedAt"`
}

func encodeFavorites(items []domain.FavoriteMovie) (string, error) {
	records := make([]record, 0, len(items))
	for _, item := range items {
		records = append(records, record{
			ID:          item.ID,
			Title:       item.Title,
			Year:        item.Year,
			ExternalID:  item.ExternalID,
			FavoritedAt: formatTimestamp(item.FavoritedAt),
		})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeFavorites parses a stored value. Records without an identifier are
// dropped and later duplicates of an identifier are ignored.
func decodeFavorites(raw string) ([]domain.FavoriteMovie, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var records []record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode favorites: %w", err)
	}

	items := make([]domain.FavoriteMovie, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		id := strings.TrimSpace(rec.ExternalID)
		if id == "" {
			id = strings.TrimSpace(rec.LegacyID)
		}
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		items = append(items, domain.FavoriteMovie{
			Movie: domain.Movie{
				ID:         rec.ID,
				Title:      rec.Title,
				Year:       rec.Year,
				ExternalID: id,
			},
			FavoritedAt: parseTimestamp(rec.FavoritedAt),
		})
	}
	return items, nil
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(timestampLayout)
}

// parseTimestamp returns the zero time for empty or unparseable values.
func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
