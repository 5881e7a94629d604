package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/erazemk/izposoja/internal/model"
)

// Window is the daily interval during which equipment requests are accepted,
// expressed as minutes since midnight in Loc.
type Window struct {
	Open  int
	Close int
	Loc   *time.Location
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	loc := w.Loc
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= w.Open && minutes < w.Close
}

// CreateRequestParams holds everything admission needs. Now is passed
// explicitly so the window check and dates are deterministic in tests.
type CreateRequestParams struct {
	UserID      int64
	Role        string
	EquipmentID int64
	Quantity    int
	Notes       string
	Now         time.Time
	Window      Window
	LoanDays    int
}

// CreateRequest admits a new equipment request. Rules are evaluated in
// order: request window, role eligibility, one live request per (user,
// equipment), secondary auto-approval, then stock-based routing into
// pending or waiting. The stock check and the insert happen in one
// transaction, so two concurrent requests cannot both reserve the last
// unit.
func CreateRequest(ctx context.Context, db *sql.DB, p CreateRequestParams) (*model.Responsibility, error) {
	if p.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	if !p.Window.Contains(p.Now) {
		return nil, ErrOutOfWindow
	}

	if p.Role == model.RoleSuperuser {
		return nil, ErrRoleIneligible
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM responsibilities
		 WHERE user_id = ? AND equipment_id = ? AND status IN ('pending', 'approved', 'waiting')`,
		p.UserID, p.EquipmentID,
	).Scan(&active)
	if err != nil {
		return nil, fmt.Errorf("checking active requests: %w", err)
	}
	if active > 0 {
		return nil, ErrDuplicateActiveRequest
	}

	var kind string
	var linked sql.NullInt64
	var available int
	err = tx.QueryRowContext(ctx,
		`SELECT kind, linked_equipment_id, quantity FROM equipment
		 WHERE id = ? AND deleted_at IS NULL`, p.EquipmentID,
	).Scan(&kind, &linked, &available)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting equipment: %w", err)
	}

	status := model.StatusPending
	var issueDate, dueDate *time.Time

	// Holding the linked primary item unlocks auto-approval for a secondary,
	// provided stock can actually be reserved. If it can't, the request
	// falls through to normal stock routing.
	if kind == model.KindSecondary && linked.Valid {
		var holdsPrimary int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM responsibilities
			 WHERE user_id = ? AND equipment_id = ? AND status = 'approved'`,
			p.UserID, linked.Int64,
		).Scan(&holdsPrimary)
		if err != nil {
			return nil, fmt.Errorf("checking linked equipment hold: %w", err)
		}

		if holdsPrimary > 0 {
			err = reserveEquipment(ctx, tx, p.EquipmentID, p.Quantity)
			if err == nil {
				status = model.StatusApproved
				issue := p.Now
				due := p.Now.AddDate(0, 0, p.LoanDays)
				issueDate, dueDate = &issue, &due
			} else if !errors.Is(err, ErrInsufficientStock) {
				return nil, err
			}
		}
	}

	if status == model.StatusPending && available < p.Quantity {
		// No stock to hand out: park the request. Waiting entries reserve
		// nothing; they are resolved by a peer transfer or by stock coming
		// back before manual approval.
		status = model.StatusWaiting
	}

	reference := ulid.Make().String()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO responsibilities
		 (reference, user_id, equipment_id, quantity, status, request_date, issue_date, due_date, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reference, p.UserID, p.EquipmentID, p.Quantity, status, p.Now, issueDate, dueDate, p.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("creating responsibility: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting responsibility id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing request: %w", err)
	}

	return GetResponsibility(ctx, db, id)
}
