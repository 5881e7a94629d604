package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

func TestCreateAndGetEquipment(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateEquipment(ctx, database, EquipmentParams{
		Name:      "Projector",
		Category:  "electronics",
		Kind:      model.KindPrimary,
		Quantity:  3,
		Condition: model.ConditionNew,
	})
	if err != nil {
		t.Fatalf("CreateEquipment: %v", err)
	}
	if item.Name != "Projector" {
		t.Errorf("expected name 'Projector', got %q", item.Name)
	}
	if item.Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", item.Quantity)
	}
	if item.Kind != model.KindPrimary {
		t.Errorf("expected kind 'primary', got %q", item.Kind)
	}

	got, err := GetEquipment(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetEquipment: %v", err)
	}
	if got.Name != "Projector" {
		t.Errorf("expected name 'Projector', got %q", got.Name)
	}
}

func TestListEquipmentByCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	seedEquipment(t, database, "Camera", 1)
	tripod, err := CreateEquipment(ctx, database, EquipmentParams{
		Name:      "Tripod",
		Category:  "accessories",
		Kind:      model.KindPrimary,
		Quantity:  2,
		Condition: model.ConditionGood,
	})
	if err != nil {
		t.Fatalf("CreateEquipment: %v", err)
	}

	all, _ := ListEquipment(ctx, database, "")
	if len(all) != 2 {
		t.Errorf("expected 2 items, got %d", len(all))
	}

	accessories, _ := ListEquipment(ctx, database, "accessories")
	if len(accessories) != 1 {
		t.Fatalf("expected 1 accessory, got %d", len(accessories))
	}
	if accessories[0].ID != tripod.ID {
		t.Errorf("expected tripod, got %q", accessories[0].Name)
	}
}

func TestUpdateEquipmentLeavesQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := seedEquipment(t, database, "Speaker", 5)

	err := UpdateEquipment(ctx, database, item.ID, EquipmentParams{
		Name:      "Speaker (renamed)",
		Category:  "audio",
		Kind:      model.KindPrimary,
		Quantity:  99, // must be ignored
		Condition: model.ConditionFair,
	})
	if err != nil {
		t.Fatalf("UpdateEquipment: %v", err)
	}

	got, _ := GetEquipment(ctx, database, item.ID)
	if got.Name != "Speaker (renamed)" {
		t.Errorf("expected renamed item, got %q", got.Name)
	}
	if got.Quantity != 5 {
		t.Errorf("expected quantity unchanged at 5, got %d", got.Quantity)
	}
}

func TestAdjustEquipmentQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := seedEquipment(t, database, "Cable", 2)

	if err := AdjustEquipmentQuantity(ctx, database, item.ID, 3); err != nil {
		t.Fatalf("AdjustEquipmentQuantity(+3): %v", err)
	}
	if q := availableQuantity(t, database, item.ID); q != 5 {
		t.Errorf("expected quantity 5 after restock, got %d", q)
	}

	if err := AdjustEquipmentQuantity(ctx, database, item.ID, -4); err != nil {
		t.Fatalf("AdjustEquipmentQuantity(-4): %v", err)
	}
	if q := availableQuantity(t, database, item.ID); q != 1 {
		t.Errorf("expected quantity 1 after write-off, got %d", q)
	}

	// Cannot write off more than is available.
	err := AdjustEquipmentQuantity(ctx, database, item.ID, -2)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
	if q := availableQuantity(t, database, item.ID); q != 1 {
		t.Errorf("expected quantity untouched at 1, got %d", q)
	}
}

func TestDeleteEquipmentBlockedWhileHeld(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	staff := seedUser(t, database, "staff", model.RoleModerator)
	member := seedUser(t, database, "member", model.RoleUser)
	item := seedEquipment(t, database, "Drone", 1)

	req := mustRequest(t, database, member.ID, item.ID, 1, now)
	if _, err := SetResponsibilityStatus(ctx, database, req.ID, model.StatusApproved, staff.ID, now, testLoanDays); err != nil {
		t.Fatalf("approving request: %v", err)
	}

	err := DeleteEquipment(ctx, database, item.ID)
	if !errors.Is(err, ErrEquipmentInUse) {
		t.Fatalf("expected ErrEquipmentInUse while units are out, got %v", err)
	}

	if _, err := SetResponsibilityStatus(ctx, database, req.ID, model.StatusReturned, staff.ID, now, testLoanDays); err != nil {
		t.Fatalf("returning request: %v", err)
	}

	if err := DeleteEquipment(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteEquipment after return: %v", err)
	}

	items, _ := ListEquipment(ctx, database, "")
	if len(items) != 0 {
		t.Errorf("expected 0 items after soft delete, got %d", len(items))
	}

	// Should still be fetchable by ID (for history).
	got, _ := GetEquipment(ctx, database, item.ID)
	if got == nil {
		t.Error("expected soft-deleted equipment to still be fetchable by ID")
	}
}

func TestEquipmentImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := seedEquipment(t, database, "Photo Item", 1)
	imageData := []byte("fake image data")
	if err := SetEquipmentImage(ctx, database, item.ID, imageData, "image/png"); err != nil {
		t.Fatalf("SetEquipmentImage: %v", err)
	}

	data, mime, err := GetEquipmentImage(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetEquipmentImage: %v", err)
	}
	if string(data) != "fake image data" {
		t.Errorf("expected image data, got %q", string(data))
	}
	if mime != "image/png" {
		t.Errorf("expected mime 'image/png', got %q", mime)
	}
}
