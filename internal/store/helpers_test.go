package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

// alwaysOpen accepts requests at any time of day, so tests only exercise the
// window logic when they mean to.
var alwaysOpen = Window{Open: 0, Close: 24 * 60, Loc: time.UTC}

const testLoanDays = 14

func seedUser(t *testing.T, database *sql.DB, username, role string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, username, "hash", role)
	if err != nil {
		t.Fatalf("seeding user %s: %v", username, err)
	}
	return u
}

func seedEquipment(t *testing.T, database *sql.DB, name string, quantity int) *model.Equipment {
	t.Helper()
	e, err := CreateEquipment(context.Background(), database, EquipmentParams{
		Name:      name,
		Category:  "electronics",
		Kind:      model.KindPrimary,
		Quantity:  quantity,
		Condition: model.ConditionGood,
	})
	if err != nil {
		t.Fatalf("seeding equipment %s: %v", name, err)
	}
	return e
}

func seedSecondary(t *testing.T, database *sql.DB, name string, primaryID int64, quantity int) *model.Equipment {
	t.Helper()
	e, err := CreateEquipment(context.Background(), database, EquipmentParams{
		Name:              name,
		Category:          "accessories",
		Kind:              model.KindSecondary,
		LinkedEquipmentID: &primaryID,
		Quantity:          quantity,
		Condition:         model.ConditionGood,
	})
	if err != nil {
		t.Fatalf("seeding secondary equipment %s: %v", name, err)
	}
	return e
}

// request files a request with the always-open window and default loan term.
func request(t *testing.T, database *sql.DB, userID int64, equipmentID int64, qty int, now time.Time) (*model.Responsibility, error) {
	t.Helper()
	return CreateRequest(context.Background(), database, CreateRequestParams{
		UserID:      userID,
		Role:        model.RoleUser,
		EquipmentID: equipmentID,
		Quantity:    qty,
		Now:         now,
		Window:      alwaysOpen,
		LoanDays:    testLoanDays,
	})
}

func mustRequest(t *testing.T, database *sql.DB, userID int64, equipmentID int64, qty int, now time.Time) *model.Responsibility {
	t.Helper()
	r, err := request(t, database, userID, equipmentID, qty, now)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	return r
}

func availableQuantity(t *testing.T, database *sql.DB, equipmentID int64) int {
	t.Helper()
	e, err := GetEquipment(context.Background(), database, equipmentID)
	if err != nil || e == nil {
		t.Fatalf("getting equipment %d: %v", equipmentID, err)
	}
	return e.Quantity
}
