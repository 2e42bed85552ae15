package firestore

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// List cursors encode the last document's sort timestamp and id so pages
// survive concurrent inserts.
func encodeListToken(ts time.Time, docID string) string {
	payload := ts.UTC().Format(time.RFC3339Nano) + "|" + docID
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeListToken(token string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return time.Time{}, "", errors.New("malformed page token")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	return ts, parts[1], nil
}
