package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

// TransferResponsibility hands an approved responsibility from its current
// holder to a user waiting on the same equipment. Both records flip in one
// transaction: the source becomes transferred, the target's waitlist entry
// becomes approved, and the target inherits the source's custody chain plus
// one new link. Available stock never changes; the reservation just changes
// owner, which is why the target must already be waitlisted.
func TransferResponsibility(ctx context.Context, db *sql.DB, sourceID, targetUserID, actingUserID int64, now time.Time) (*model.Responsibility, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var srcUserID, srcEquipmentID int64
	var srcStatus string
	var srcDueDate sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, equipment_id, status, due_date FROM responsibilities WHERE id = ?`,
		sourceID,
	).Scan(&srcUserID, &srcEquipmentID, &srcStatus, &srcDueDate)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting source responsibility: %w", err)
	}

	if srcStatus != model.StatusApproved || srcUserID != actingUserID {
		return nil, ErrNotHolder
	}

	// First in line for this user; request_date order matches GetWaitlist.
	var targetID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM responsibilities
		 WHERE user_id = ? AND equipment_id = ? AND status = 'waiting'
		 ORDER BY request_date ASC, id ASC LIMIT 1`,
		targetUserID, srcEquipmentID,
	).Scan(&targetID)
	if err == sql.ErrNoRows {
		return nil, ErrTargetNotWaitlisted
	}
	if err != nil {
		return nil, fmt.Errorf("finding waitlisted target: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE responsibilities SET status = 'transferred', return_date = ? WHERE id = ?`,
		now, sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("closing source responsibility: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE responsibilities SET status = 'approved', issue_date = ?, due_date = ? WHERE id = ?`,
		now, srcDueDate, targetID,
	)
	if err != nil {
		return nil, fmt.Errorf("approving target responsibility: %w", err)
	}

	// Carry the source's chain over so the unit's full history reads off the
	// receiving responsibility, then append this handoff.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO transfer_links (responsibility_id, from_user_id, to_user_id, date)
		 SELECT ?, from_user_id, to_user_id, date FROM transfer_links
		 WHERE responsibility_id = ? ORDER BY id ASC`,
		targetID, sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("copying transfer chain: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transfer_links (responsibility_id, from_user_id, to_user_id, date)
		 VALUES (?, ?, ?, ?)`,
		targetID, srcUserID, targetUserID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("appending transfer link: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transfer: %w", err)
	}

	return GetResponsibility(ctx, db, targetID)
}

// ChainOfCustodyReport returns every responsibility with requester, equipment,
// and approver identities resolved, plus the full transfer chain, most recent
// request first. Pure projection: LEFT JOINs throughout, so rows with missing
// or pre-migration data still come back.
func ChainOfCustodyReport(ctx context.Context, db *sql.DB) ([]model.CustodyRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+responsibilityColumns+`, u.username, e.name, e.category, a.username
		 FROM responsibilities r
		 LEFT JOIN users u ON u.id = r.user_id
		 LEFT JOIN equipment e ON e.id = r.equipment_id
		 LEFT JOIN users a ON a.id = r.approved_by
		 ORDER BY r.request_date DESC, r.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("building custody report: %w", err)
	}
	defer rows.Close()

	var records []model.CustodyRecord
	for rows.Next() {
		var rec model.CustodyRecord
		var notes, username, equipmentName, category, approver sql.NullString
		var approvedBy sql.NullInt64
		var issueDate, returnDate, dueDate sql.NullTime
		err := rows.Scan(&rec.ID, &rec.Reference, &rec.UserID, &rec.EquipmentID, &rec.Quantity,
			&rec.Status, &rec.RequestDate, &issueDate, &returnDate, &dueDate, &notes, &approvedBy,
			&username, &equipmentName, &category, &approver)
		if err != nil {
			return nil, fmt.Errorf("scanning custody record: %w", err)
		}
		if issueDate.Valid {
			rec.IssueDate = &issueDate.Time
		}
		if returnDate.Valid {
			rec.ReturnDate = &returnDate.Time
		}
		if dueDate.Valid {
			rec.DueDate = &dueDate.Time
		}
		if approvedBy.Valid {
			rec.ApprovedBy = &approvedBy.Int64
		}
		rec.Notes = notes.String
		rec.Username = username.String
		rec.EquipmentName = equipmentName.String
		rec.EquipmentCategory = category.String
		rec.ApproverUsername = approver.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading custody records: %w", err)
	}

	for i := range records {
		chain, err := getTransferChain(ctx, db, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].TransferChain = chain
	}

	return records, nil
}

// getTransferChain returns a responsibility's custody chain in insertion
// order with usernames resolved.
func getTransferChain(ctx context.Context, db *sql.DB, responsibilityID int64) ([]model.TransferLink, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT t.id, t.responsibility_id, t.from_user_id, t.to_user_id, t.date,
		        fu.username, tu.username
		 FROM transfer_links t
		 LEFT JOIN users fu ON fu.id = t.from_user_id
		 LEFT JOIN users tu ON tu.id = t.to_user_id
		 WHERE t.responsibility_id = ?
		 ORDER BY t.id ASC`, responsibilityID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting transfer chain: %w", err)
	}
	defer rows.Close()

	var chain []model.TransferLink
	for rows.Next() {
		var link model.TransferLink
		var fromName, toName sql.NullString
		if err := rows.Scan(&link.ID, &link.ResponsibilityID, &link.FromUserID, &link.ToUserID,
			&link.Date, &fromName, &toName); err != nil {
			return nil, fmt.Errorf("scanning transfer link: %w", err)
		}
		link.FromUsername = fromName.String
		link.ToUsername = toName.String
		chain = append(chain, link)
	}
	return chain, rows.Err()
}
