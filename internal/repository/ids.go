package repository

import "github.com/google/uuid"

// isUUID reports whether id can name a row. Postgres rejects malformed uuid input
// with 22P02 and aborts the surrounding transaction, so such ids never reach a query.
func isUUID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// uuidsOnly drops ids that cannot name a row.
func uuidsOnly(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			out = append(out, id)
		}
	}
	return out
}
