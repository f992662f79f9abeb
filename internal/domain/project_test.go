package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestProjectSettingsEffectiveDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		duration int
		want     int
	}{
		{"configured", 12, 12},
		{"zero falls back", 0, DefaultDurationMinutes},
		{"negative falls back", -5, DefaultDurationMinutes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProjectSettings{DurationMinutes: tt.duration}.EffectiveDuration()
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestProjectFindItemAndOwnership(t *testing.T) {
	t.Parallel()
	owner := uuid.New()
	item := Item{ID: uuid.New(), Title: "Home espresso on a budget"}
	p := Project{ID: uuid.New(), OwnerID: owner, Name: "Coffee", Items: []Item{item}}

	if err := p.Validate(); err != nil {
		t.Fatalf("Expected valid project, got %v", err)
	}

	found, ok := p.FindItem(item.ID)
	if !ok || found.Title != item.Title {
		t.Errorf("Expected to find item %s", item.ID)
	}
	if _, ok := p.FindItem(uuid.New()); ok {
		t.Error("Expected unknown item lookup to fail")
	}

	if !p.OwnedBy(owner) {
		t.Error("Expected project to be owned by its owner")
	}
	if p.OwnedBy(uuid.New()) || p.OwnedBy(uuid.Nil) {
		t.Error("Expected project not to be owned by other principals")
	}
}
