package normalize

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"reviewetl/internal/identity"
	"reviewetl/pkg/records"
)

func testSpec() Spec {
	return Spec{
		UserFields:   []string{"reviewerID", "reviewerName"},
		ItemFields:   []string{"asin", "category"},
		ReviewFields: []string{"reviewText", "helpful", "overall", "summary", "unixReviewTime", "reviewTime", "category"},
	}
}

func rawRecord(reviewer, asin string) records.Record {
	return records.Record{
		"reviewerID":     reviewer,
		"reviewerName":   "Alice",
		"asin":           asin,
		"category":       "Digital music",
		"reviewText":     "great album",
		"helpful":        []any{json.Number("3"), json.Number("4")},
		"overall":        json.Number("4.0"),
		"summary":        "great",
		"unixReviewTime": json.Number("1084226400"),
		"reviewTime":     "05 11, 2004",
	}
}

func TestApply_FirstSightEmitsUserAndItem(t *testing.T) {
	t.Parallel()

	users, items := identity.NewRegistry(), identity.NewRegistry()
	user, item, review := Apply(rawRecord("A1", "X1"), users, items, testSpec())

	if user == nil || item == nil {
		t.Fatalf("first sight: user=%v item=%v, want both non-nil", user, item)
	}
	if user.String("reviewerID") != "A1" || user.String("reviewerName") != "Alice" {
		t.Fatalf("user fields = %v", user)
	}
	if item.String("asin") != "X1" || item.String("category") != "Digital music" {
		t.Fatalf("item fields = %v", item)
	}
	if review.String("reviewer_id") != user.String("id") {
		t.Fatalf("reviewer_id = %q, want %q", review.String("reviewer_id"), user.String("id"))
	}
	if review.String("item_id") != item.String("id") {
		t.Fatalf("item_id = %q, want %q", review.String("item_id"), item.String("id"))
	}
	if review.String("id") == "" || review.String("id") == user.String("id") {
		t.Fatalf("review id %q not distinct", review.String("id"))
	}
}

func TestApply_RepeatKeyReusesSurrogate(t *testing.T) {
	t.Parallel()

	users, items := identity.NewRegistry(), identity.NewRegistry()
	spec := testSpec()

	u1, i1, r1 := Apply(rawRecord("A1", "X1"), users, items, spec)
	u2, i2, r2 := Apply(rawRecord("A1", "X2"), users, items, spec)

	if u2 != nil {
		t.Fatalf("repeat reviewer produced a second user: %v", u2)
	}
	if i2 == nil {
		t.Fatalf("new item X2 not emitted")
	}
	if r2.String("reviewer_id") != u1.String("id") {
		t.Fatalf("second review reviewer_id = %q, want %q", r2.String("reviewer_id"), u1.String("id"))
	}
	if r1.String("item_id") != i1.String("id") {
		t.Fatalf("first review item_id mismatch")
	}
	if r1.String("id") == r2.String("id") {
		t.Fatalf("reviews share id %q", r1.String("id"))
	}
}

func TestApply_CoercesPayloadValues(t *testing.T) {
	t.Parallel()

	users, items := identity.NewRegistry(), identity.NewRegistry()
	_, _, review := Apply(rawRecord("A1", "X1"), users, items, testSpec())

	if got, want := review.Value("helpful"), []int64{3, 4}; !reflect.DeepEqual(got, want) {
		t.Fatalf("helpful = %#v, want %#v", got, want)
	}
	if got := review.Value("overall"); got != 4.0 {
		t.Fatalf("overall = %#v, want 4.0", got)
	}
	if got := review.Value("unixReviewTime"); got != int64(1084226400) {
		t.Fatalf("unixReviewTime = %#v, want int64", got)
	}
	ts, ok := review.Value("reviewTime").(time.Time)
	if !ok {
		t.Fatalf("reviewTime = %#v, want time.Time", review.Value("reviewTime"))
	}
	if want := time.Date(2004, time.May, 11, 0, 0, 0, 0, time.UTC); !ts.Equal(want) {
		t.Fatalf("reviewTime = %v, want %v", ts, want)
	}
}

func TestApply_MissingFieldsBecomeNil(t *testing.T) {
	t.Parallel()

	users, items := identity.NewRegistry(), identity.NewRegistry()
	raw := records.Record{"reviewerID": "A9", "asin": "Z9"}
	user, item, review := Apply(raw, users, items, testSpec())

	if user.Value("reviewerName") != nil {
		t.Fatalf("reviewerName = %#v, want nil", user.Value("reviewerName"))
	}
	if item.Value("category") != nil {
		t.Fatalf("category = %#v, want nil", item.Value("category"))
	}
	if review.Value("reviewTime") != nil {
		t.Fatalf("reviewTime = %#v, want nil", review.Value("reviewTime"))
	}
	if review.Value("overall") != nil {
		t.Fatalf("overall = %#v, want nil", review.Value("overall"))
	}
}

func TestApply_BadDateBecomesNil(t *testing.T) {
	t.Parallel()

	users, items := identity.NewRegistry(), identity.NewRegistry()
	raw := rawRecord("A1", "X1")
	raw["reviewTime"] = "sometime in 2004"
	_, _, review := Apply(raw, users, items, testSpec())

	if review.Value("reviewTime") != nil {
		t.Fatalf("reviewTime = %#v, want nil", review.Value("reviewTime"))
	}
}

func TestParseReviewTime_Unpadded(t *testing.T) {
	t.Parallel()

	got, ok := ParseReviewTime("5 1, 2004")
	if !ok {
		t.Fatalf("ParseReviewTime rejected unpadded date")
	}
	if want := time.Date(2004, time.May, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("ParseReviewTime = %v, want %v", got, want)
	}
}
