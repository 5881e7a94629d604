package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

const responsibilityColumns = `r.id, r.reference, r.user_id, r.equipment_id, r.quantity,
	r.status, r.request_date, r.issue_date, r.return_date, r.due_date, r.notes, r.approved_by`

// GetResponsibility returns a responsibility by ID with its transfer chain
// and joined display names, or nil if it does not exist.
func GetResponsibility(ctx context.Context, db *sql.DB, id int64) (*model.Responsibility, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+responsibilityColumns+`, u.username, e.name
		 FROM responsibilities r
		 LEFT JOIN users u ON u.id = r.user_id
		 LEFT JOIN equipment e ON e.id = r.equipment_id
		 WHERE r.id = ?`, id,
	)

	r, err := scanResponsibilityNamed(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting responsibility: %w", err)
	}

	chain, err := getTransferChain(ctx, db, r.ID)
	if err != nil {
		return nil, err
	}
	r.TransferChain = chain
	return r, nil
}

// ListResponsibilities returns responsibilities most recent first. If userID
// is non-zero, only that user's responsibilities are returned (regular
// members see their own; staff pass zero to see all).
func ListResponsibilities(ctx context.Context, db *sql.DB, userID int64) ([]model.Responsibility, error) {
	query := `SELECT ` + responsibilityColumns + `, u.username, e.name
	          FROM responsibilities r
	          LEFT JOIN users u ON u.id = r.user_id
	          LEFT JOIN equipment e ON e.id = r.equipment_id`
	var args []any

	if userID != 0 {
		query += ` WHERE r.user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY r.request_date DESC, r.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing responsibilities: %w", err)
	}
	defer rows.Close()

	var result []model.Responsibility
	for rows.Next() {
		r, err := scanResponsibilityNamed(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning responsibility: %w", err)
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

// GetWaitlist returns all waiting responsibilities for an equipment entry in
// FIFO order (earliest request first). Entries reserve no stock; the order
// is the contract a transfer or freed-up approval should respect.
func GetWaitlist(ctx context.Context, db *sql.DB, equipmentID int64) ([]model.Responsibility, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+responsibilityColumns+`, u.username, e.name
		 FROM responsibilities r
		 LEFT JOIN users u ON u.id = r.user_id
		 LEFT JOIN equipment e ON e.id = r.equipment_id
		 WHERE r.equipment_id = ? AND r.status = 'waiting'
		 ORDER BY r.request_date ASC, r.id ASC`, equipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting waitlist: %w", err)
	}
	defer rows.Close()

	var result []model.Responsibility
	for rows.Next() {
		r, err := scanResponsibilityNamed(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning waitlist entry: %w", err)
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

// SetResponsibilityStatus performs a staff decision on a responsibility.
// Legal transitions:
//
//	pending  -> approved   reserves stock, sets issue and due dates
//	waiting  -> approved   same, once stock has come back
//	pending  -> rejected   no stock effect
//	waiting  -> rejected   no stock effect
//	approved -> overdue    no stock effect (external scheduler hook)
//	approved -> returned   releases stock, sets return date
//	overdue  -> returned   releases stock, sets return date
//
// Anything else fails with ErrInvalidTransition and changes nothing. An
// approval that cannot reserve stock fails with ErrInsufficientStock and
// leaves the responsibility pending.
func SetResponsibilityStatus(ctx context.Context, db *sql.DB, id int64, newStatus string, actingStaffID int64, now time.Time, loanDays int) (*model.Responsibility, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	var equipmentID int64
	var quantity int
	err = tx.QueryRowContext(ctx,
		`SELECT status, equipment_id, quantity FROM responsibilities WHERE id = ?`, id,
	).Scan(&status, &equipmentID, &quantity)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting responsibility: %w", err)
	}

	switch {
	case (status == model.StatusPending || status == model.StatusWaiting) &&
		newStatus == model.StatusApproved:
		if err := reserveEquipment(ctx, tx, equipmentID, quantity); err != nil {
			return nil, err
		}
		due := now.AddDate(0, 0, loanDays)
		_, err = tx.ExecContext(ctx,
			`UPDATE responsibilities
			 SET status = ?, issue_date = ?, due_date = ?, approved_by = ?
			 WHERE id = ?`,
			newStatus, now, due, actingStaffID, id,
		)

	case (status == model.StatusPending || status == model.StatusWaiting) &&
		newStatus == model.StatusRejected:
		_, err = tx.ExecContext(ctx,
			`UPDATE responsibilities SET status = ?, approved_by = ? WHERE id = ?`,
			newStatus, actingStaffID, id,
		)

	case status == model.StatusApproved && newStatus == model.StatusOverdue:
		_, err = tx.ExecContext(ctx,
			`UPDATE responsibilities SET status = ? WHERE id = ?`,
			newStatus, id,
		)

	case (status == model.StatusApproved || status == model.StatusOverdue) &&
		newStatus == model.StatusReturned:
		if err := releaseEquipment(ctx, tx, equipmentID, quantity); err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE responsibilities SET status = ?, return_date = ? WHERE id = ?`,
			newStatus, now, id,
		)

	default:
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, status, newStatus)
	}
	if err != nil {
		return nil, fmt.Errorf("updating responsibility status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing status change: %w", err)
	}

	return GetResponsibility(ctx, db, id)
}

// ForceReturn is the privileged override: staff return a held responsibility
// on the holder's behalf. Only approved and overdue responsibilities carry a
// stock reservation, so only those can be force-returned; anything already
// returned fails with ErrAlreadyReturned, everything else with
// ErrInvalidTransition.
func ForceReturn(ctx context.Context, db *sql.DB, id int64, actingStaff string, now time.Time) (*model.Responsibility, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	var equipmentID int64
	var quantity int
	var notes sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT status, equipment_id, quantity, notes FROM responsibilities WHERE id = ?`, id,
	).Scan(&status, &equipmentID, &quantity, &notes)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting responsibility: %w", err)
	}

	switch status {
	case model.StatusReturned:
		return nil, ErrAlreadyReturned
	case model.StatusApproved, model.StatusOverdue:
		// ok
	default:
		return nil, fmt.Errorf("%w: cannot force-return a %s responsibility", ErrInvalidTransition, status)
	}

	if err := releaseEquipment(ctx, tx, equipmentID, quantity); err != nil {
		return nil, err
	}

	marker := fmt.Sprintf("[force-returned by %s on %s]", actingStaff, now.Format("2006-01-02"))
	newNotes := marker
	if notes.String != "" {
		newNotes = notes.String + " " + marker
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE responsibilities SET status = 'returned', return_date = ?, notes = ? WHERE id = ?`,
		now, newNotes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("force-returning responsibility: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing force return: %w", err)
	}

	return GetResponsibility(ctx, db, id)
}

// MarkOverdue flips approved responsibilities whose due date has passed to
// overdue and returns how many were flipped. Meant to be driven
// periodically by an external scheduler; stock stays reserved.
func MarkOverdue(ctx context.Context, db *sql.DB, now time.Time) (int, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE responsibilities SET status = 'overdue'
		 WHERE status = 'approved' AND due_date IS NOT NULL AND due_date < ?`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("marking overdue responsibilities: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("marking overdue responsibilities: %w", err)
	}
	return int(affected), nil
}

func scanResponsibilityNamed(s scanner) (*model.Responsibility, error) {
	r := &model.Responsibility{}
	var notes, username, equipmentName sql.NullString
	var approvedBy sql.NullInt64
	var issueDate, returnDate, dueDate sql.NullTime
	err := s.Scan(&r.ID, &r.Reference, &r.UserID, &r.EquipmentID, &r.Quantity,
		&r.Status, &r.RequestDate, &issueDate, &returnDate, &dueDate, &notes, &approvedBy,
		&username, &equipmentName)
	if err != nil {
		return nil, err
	}
	if issueDate.Valid {
		r.IssueDate = &issueDate.Time
	}
	if returnDate.Valid {
		r.ReturnDate = &returnDate.Time
	}
	if dueDate.Valid {
		r.DueDate = &dueDate.Time
	}
	if approvedBy.Valid {
		r.ApprovedBy = &approvedBy.Int64
	}
	r.Notes = notes.String
	r.Username = username.String
	r.EquipmentName = equipmentName.String
	return r, nil
}
