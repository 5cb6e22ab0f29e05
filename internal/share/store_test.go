package share

import (
	"context"
	"testing"
	"time"

	"github.com/kianyangchn/mainu-web/internal/menu"
)

func sampleTemplate() menu.Template {
	price := "12"
	return menu.NewTemplate([]menu.Section{
		{
			Title: "Chef's Picks",
			Dishes: []menu.Dish{
				{
					OriginalName:   "Mapo Tofu",
					TranslatedName: "Spicy Mapo Tofu",
					Description:    "Classic Sichuan tofu",
					Price:          &price,
				},
			},
		},
	})
}

func TestCreateAndFetch(t *testing.T) {
	store := NewMemoryStore(time.Minute)

	token, err := store.Create(context.Background(), sampleTemplate())
	if err != nil {
		t.Fatal(err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	fetched, err := store.FetchTemplate(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if fetched == nil {
		t.Fatal("expected the stored template back")
	}
	if fetched.Sections[0].Dishes[0].TranslatedName != "Spicy Mapo Tofu" {
		t.Fatalf("template mutated in storage: %+v", fetched)
	}
}

func TestDescribeMetadata(t *testing.T) {
	store := NewMemoryStore(time.Minute)

	token, err := store.Create(context.Background(), sampleTemplate())
	if err != nil {
		t.Fatal(err)
	}

	record, err := store.Describe(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if record == nil {
		t.Fatal("expected a record")
	}
	if record.Token != token {
		t.Fatalf("expected token %q, got %q", token, record.Token)
	}
	if record.RemainingSeconds() <= 0 {
		t.Fatalf("fresh record must have positive remaining lifetime, got %d",
			record.RemainingSeconds())
	}
	if !record.ExpiresAt.After(record.CreatedAt) {
		t.Fatal("expiry must be after creation")
	}
}

func TestFetchExpired(t *testing.T) {
	store := NewMemoryStore(20 * time.Millisecond)

	token, err := store.Create(context.Background(), sampleTemplate())
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(40 * time.Millisecond)

	fetched, err := store.FetchTemplate(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if fetched != nil {
		t.Fatal("expired share must behave as not found")
	}
}

func TestRemainingSecondsClampedAtZero(t *testing.T) {
	record := Record{ExpiresAt: time.Now().UTC().Add(-time.Minute)}
	if got := record.RemainingSeconds(); got != 0 {
		t.Fatalf("expected 0 for an expired record, got %d", got)
	}
}

func TestPurgeExpired(t *testing.T) {
	store := NewMemoryStore(20 * time.Millisecond)

	token, err := store.Create(context.Background(), sampleTemplate())
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(40 * time.Millisecond)
	if err := store.PurgeExpired(context.Background()); err != nil {
		t.Fatal(err)
	}

	record, err := store.Describe(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if record != nil {
		t.Fatal("purged share should be gone")
	}
}
