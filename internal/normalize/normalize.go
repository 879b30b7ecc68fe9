// Package normalize turns raw review records into normalized user, item, and
// review records with surrogate ids.
//
// Apply is pure apart from the registry interaction: it never fails, it never
// drops a record, and malformed or missing fields degrade to nil values.
package normalize

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"reviewetl/internal/identity"
	"reviewetl/pkg/records"
)

// Raw input field names.
const (
	FieldReviewerID = "reviewerID"
	FieldItemID     = "asin"
	FieldReviewTime = "reviewTime"
)

// ReviewTimeLayout parses the human-readable "MM DD, YYYY" review dates,
// accepting unpadded months and days (e.g. "05 11, 2004", "5 1, 2004").
const ReviewTimeLayout = "1 2, 2006"

// Spec selects which raw fields flow into each normalized record. Field order
// is preserved in the emitted records' column order.
type Spec struct {
	// UserFields are copied from the raw record into a new user record.
	UserFields []string
	// ItemFields are copied from the raw record into a new item record.
	ItemFields []string
	// ReviewFields are copied into every review record in addition to id,
	// reviewer_id, and item_id.
	ReviewFields []string
}

// Apply normalizes one raw record against the shared registries.
//
// The user and item results are nil when their natural key was already
// registered; the review is always non-nil, carries a fresh surrogate id, and
// references the surviving user/item ids. The review's reviewTime field is
// parsed into a time.Time (nil when absent or unparsable).
func Apply(raw records.Record, users, items *identity.Registry, spec Spec) (user, item, review records.Record) {
	reviewID := uuid.NewString()

	userID, newUser := users.RegisterIfAbsent(raw.String(FieldReviewerID))
	if newUser {
		user = records.Record{"id": userID}
		for _, f := range spec.UserFields {
			if f == "id" {
				continue
			}
			user[f] = cleanValue(raw.Value(f))
		}
	}

	itemID, newItem := items.RegisterIfAbsent(raw.String(FieldItemID))
	if newItem {
		item = records.Record{"id": itemID}
		for _, f := range spec.ItemFields {
			if f == "id" {
				continue
			}
			item[f] = cleanValue(raw.Value(f))
		}
	}

	review = records.Record{
		"id":          reviewID,
		"reviewer_id": userID,
		"item_id":     itemID,
	}
	for _, f := range spec.ReviewFields {
		switch f {
		case "id", "reviewer_id", "item_id":
			continue
		case FieldReviewTime:
			if t, ok := raw.Time(FieldReviewTime, ReviewTimeLayout); ok {
				review[f] = t
			} else {
				review[f] = nil
			}
		default:
			review[f] = cleanValue(raw.Value(f))
		}
	}
	return user, item, review
}

// cleanValue maps decoded JSON values onto the types the stores expect:
// strings are NFC-normalized, json.Number becomes int64 or float64, integer
// arrays (helpful votes) become []int64. Everything else passes through.
func cleanValue(v any) any {
	switch t := v.(type) {
	case string:
		return norm.NFC.String(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		if ints, ok := intsFrom(t); ok {
			return ints
		}
		return t
	case nil:
		return nil
	default:
		return v
	}
}

// intsFrom converts a JSON array to []int64 when every element is an
// integer; otherwise it reports false and the array passes through unchanged.
func intsFrom(arr []any) ([]int64, bool) {
	out := make([]int64, len(arr))
	for i, v := range arr {
		n, ok := v.(json.Number)
		if !ok {
			return nil, false
		}
		iv, err := n.Int64()
		if err != nil {
			return nil, false
		}
		out[i] = iv
	}
	return out, true
}

// ParseReviewTime exposes the date parsing used for reviewTime so callers and
// tests share one definition.
func ParseReviewTime(s string) (time.Time, bool) {
	t, err := time.Parse(ReviewTimeLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
