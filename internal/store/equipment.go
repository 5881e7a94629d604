package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/model"
)

const equipmentColumns = `id, name, category, kind, linked_equipment_id, quantity,
	condition, description, image_mime, created_at, updated_at, deleted_at`

// EquipmentParams holds the writable fields of a catalog entry.
type EquipmentParams struct {
	Name              string
	Category          string
	Kind              string
	LinkedEquipmentID *int64
	Quantity          int
	Condition         string
	Description       string
}

// CreateEquipment creates a new catalog entry.
func CreateEquipment(ctx context.Context, db *sql.DB, p EquipmentParams) (*model.Equipment, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO equipment (name, category, kind, linked_equipment_id, quantity, condition, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Category, p.Kind, p.LinkedEquipmentID, p.Quantity, p.Condition, p.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating equipment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting equipment id: %w", err)
	}

	return GetEquipment(ctx, db, id)
}

// GetEquipment returns a catalog entry by ID.
func GetEquipment(ctx context.Context, db *sql.DB, id int64) (*model.Equipment, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+equipmentColumns+` FROM equipment WHERE id = ?`, id,
	)
	return scanEquipment(row)
}

// ListEquipment returns all non-deleted catalog entries, optionally filtered
// by category.
func ListEquipment(ctx context.Context, db *sql.DB, category string) ([]model.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE deleted_at IS NULL`
	var args []any

	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing equipment: %w", err)
	}
	defer rows.Close()

	var items []model.Equipment
	for rows.Next() {
		e, err := scanEquipmentRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *e)
	}
	return items, rows.Err()
}

// UpdateEquipment updates a catalog entry's metadata. Quantity is not
// touched here: available stock only moves through reserve/release paired
// with a responsibility transition, or through AdjustEquipmentQuantity.
func UpdateEquipment(ctx context.Context, db *sql.DB, id int64, p EquipmentParams) error {
	_, err := db.ExecContext(ctx,
		`UPDATE equipment
		 SET name = ?, category = ?, kind = ?, linked_equipment_id = ?,
		     condition = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		p.Name, p.Category, p.Kind, p.LinkedEquipmentID, p.Condition, p.Description, id,
	)
	if err != nil {
		return fmt.Errorf("updating equipment: %w", err)
	}
	return nil
}

// AdjustEquipmentQuantity changes available stock by delta (restocking or
// writing off units). Fails with ErrInsufficientStock if the adjustment
// would push available quantity below zero.
func AdjustEquipmentQuantity(ctx context.Context, db *sql.DB, id int64, delta int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE equipment SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND quantity + ? >= 0`,
		delta, id, delta,
	)
	if err != nil {
		return fmt.Errorf("adjusting equipment quantity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjusting equipment quantity: %w", err)
	}
	if affected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// DeleteEquipment soft-deletes a catalog entry. Deletion is blocked while
// any units are reserved out on approved or overdue responsibilities, so
// conservation cannot be broken by removing the pool they return to.
func DeleteEquipment(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var reserved int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM responsibilities
		 WHERE equipment_id = ? AND status IN ('approved', 'overdue')`, id,
	).Scan(&reserved)
	if err != nil {
		return fmt.Errorf("checking reserved units: %w", err)
	}
	if reserved > 0 {
		return ErrEquipmentInUse
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE equipment SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting equipment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting equipment: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// SetEquipmentImage sets a catalog entry's image data.
func SetEquipmentImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE equipment SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting equipment image: %w", err)
	}
	return nil
}

// GetEquipmentImage returns a catalog entry's image data and MIME type.
func GetEquipmentImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM equipment WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting equipment image: %w", err)
	}
	return image, mime.String, nil
}

// reserveEquipment decrements available quantity inside tx. The guarded
// UPDATE is the atomic check-and-decrement: zero rows affected means there
// was not enough stock, and nothing changed.
func reserveEquipment(ctx context.Context, tx *sql.Tx, id int64, qty int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE equipment SET quantity = quantity - ?
		 WHERE id = ? AND deleted_at IS NULL AND quantity >= ?`,
		qty, id, qty,
	)
	if err != nil {
		return fmt.Errorf("reserving equipment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserving equipment: %w", err)
	}
	if affected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// releaseEquipment increments available quantity inside tx. The upper bound
// holds by construction: every release is paired with exactly one earlier
// reserve.
func releaseEquipment(ctx context.Context, tx *sql.Tx, id int64, qty int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE equipment SET quantity = quantity + ? WHERE id = ?`,
		qty, id,
	)
	if err != nil {
		return fmt.Errorf("releasing equipment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("releasing equipment: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEquipment(row *sql.Row) (*model.Equipment, error) {
	e, err := scanEquipmentFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting equipment: %w", err)
	}
	return e, nil
}

func scanEquipmentRows(rows *sql.Rows) (*model.Equipment, error) {
	e, err := scanEquipmentFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning equipment: %w", err)
	}
	return e, nil
}

func scanEquipmentFrom(s scanner) (*model.Equipment, error) {
	e := &model.Equipment{}
	var linked sql.NullInt64
	var description, imageMime sql.NullString
	err := s.Scan(&e.ID, &e.Name, &e.Category, &e.Kind, &linked, &e.Quantity,
		&e.Condition, &description, &imageMime, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt)
	if err != nil {
		return nil, err
	}
	if linked.Valid {
		e.LinkedEquipmentID = &linked.Int64
	}
	e.Description = description.String
	e.ImageMime = imageMime.String
	return e, nil
}
