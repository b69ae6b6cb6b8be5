package pricing

import (
	"context"
	"errors"
	"testing"

	"convoyage/internal/testutil"
)

func TestStore_CRUDAndActiveOrdering(t *testing.T) {
	store := NewStore(testutil.SetupDB(t))
	ctx := context.Background()

	inputs := []RateInput{
		{CustomerType: CustomerProfessional, DistanceMinKm: 41, DistanceMaxKm: intPtr(90), RatePerKm: dec("1.82"), IsActive: true},
		{CustomerType: CustomerIndividual, DistanceMinKm: 41, DistanceMaxKm: intPtr(90), RatePerKm: dec("2.20"), IsActive: true},
		{CustomerType: CustomerIndividual, DistanceMinKm: 0, DistanceMaxKm: intPtr(40), RatePerKm: dec("4.20"), IsActive: true},
		{CustomerType: CustomerIndividual, DistanceMinKm: 91, RatePerKm: dec("1.51"), IsActive: false},
	}
	var created []Rate
	for _, in := range inputs {
		r, err := store.CreateRate(ctx, in)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		created = append(created, r)
	}

	active, err := store.ActiveRates(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("expected 3 active rates, got %d", len(active))
	}
	if active[0].CustomerType != CustomerIndividual || active[0].DistanceMinKm != 0 {
		t.Fatalf("expected individual 0 km first, got %+v", active[0])
	}
	if active[2].CustomerType != CustomerProfessional {
		t.Fatalf("expected professional last, got %+v", active[2])
	}
	if !active[0].RatePerKm.Equal(dec("4.20")) {
		t.Fatalf("expected 4.20, got %s", active[0].RatePerKm)
	}

	all, err := store.ListRates(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 rates including inactive, got %d", len(all))
	}

	unbounded := created[3]
	if unbounded.DistanceMaxKm != nil {
		t.Fatalf("expected unbounded max, got %d", *unbounded.DistanceMaxKm)
	}
	updated, err := store.UpdateRate(ctx, unbounded.ID, RateInput{CustomerType: CustomerIndividual, DistanceMinKm: 91, RatePerKm: dec("1.60"), IsActive: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.IsActive || !updated.RatePerKm.Equal(dec("1.60")) {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if err := store.DeleteRate(ctx, created[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteRate(ctx, created[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.UpdateRate(ctx, created[0].ID, inputs[0]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}
