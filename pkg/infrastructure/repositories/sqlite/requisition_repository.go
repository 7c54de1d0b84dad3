package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
)

const requisitionColumns = `
	id, program_id, facility_id, processing_period_id, supervisory_node_id,
	supplying_facility_id, emergency, status, number_of_months_in_period, currency,
	default_price_per_pack, line_items, template, previous_requisitions,
	stock_adjustment_reasons, date_physical_stock_count_completed, created_date,
	modified_date, version`

// RequisitionRepository stores requisitions in sqlite. Line items, template
// and previous requisition snapshots are stored as JSON documents; the status
// history has its own table.
type RequisitionRepository struct {
	db *sqlx.DB
}

// NewRequisitionRepository creates a repository on an open database
func NewRequisitionRepository(db *sqlx.DB) *RequisitionRepository {
	return &RequisitionRepository{db: db}
}

// Verify interface compliance
var _ repositories.RequisitionRepository = (*RequisitionRepository)(nil)

type updateArgs struct {
	requisitionRow
	ExpectedVersion int64 `db:"expected_version"`
}

// Get loads a requisition with its status history
func (r *RequisitionRepository) Get(ctx context.Context, id uuid.UUID) (*entities.Requisition, error) {
	var row requisitionRow
	err := r.db.GetContext(ctx, &row, `SELECT `+requisitionColumns+` FROM requisitions WHERE id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("requisition %s: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get requisition %s: %w", id, err)
	}

	loaded, err := r.attachStatusChanges(ctx, []requisitionRow{row})
	if err != nil {
		return nil, err
	}
	return loaded[0], nil
}

// Save inserts a new requisition or updates a stored one when the versions match
func (r *RequisitionRepository) Save(ctx context.Context, requisition *entities.Requisition) error {
	row, err := toRow(requisition, requisition.Version+1)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if requisition.Version == 0 {
		err = insertRequisition(ctx, tx, row)
	} else {
		err = updateRequisition(ctx, tx, row, requisition.Version)
	}
	if err != nil {
		return err
	}

	for _, change := range toStatusChangeRows(requisition) {
		const q = `
			INSERT INTO status_changes (id, requisition_id, position, status, author_id, created_date, previous_status_change_id)
			VALUES (:id, :requisition_id, :position, :status, :author_id, :created_date, :previous_status_change_id)
			ON CONFLICT(id) DO NOTHING`
		if _, err := tx.NamedExecContext(ctx, q, change); err != nil {
			return fmt.Errorf("failed to save status change %s: %w", change.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit requisition %s: %w", requisition.ID, err)
	}
	requisition.Version = row.Version
	return nil
}

func insertRequisition(ctx context.Context, tx *sqlx.Tx, row requisitionRow) error {
	const q = `
		INSERT INTO requisitions (` + requisitionColumns + `)
		VALUES (:id, :program_id, :facility_id, :processing_period_id, :supervisory_node_id,
			:supplying_facility_id, :emergency, :status, :number_of_months_in_period, :currency,
			:default_price_per_pack, :line_items, :template, :previous_requisitions,
			:stock_adjustment_reasons, :date_physical_stock_count_completed, :created_date,
			:modified_date, :version)
		ON CONFLICT(id) DO NOTHING`
	result, err := tx.NamedExecContext(ctx, q, row)
	if err != nil {
		return fmt.Errorf("failed to insert requisition %s: %w", row.ID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("requisition %s already exists: %w", row.ID, entities.ErrVersionMismatch)
	}
	return nil
}

func updateRequisition(ctx context.Context, tx *sqlx.Tx, row requisitionRow, expectedVersion int64) error {
	const q = `
		UPDATE requisitions SET
			supervisory_node_id = :supervisory_node_id,
			supplying_facility_id = :supplying_facility_id,
			emergency = :emergency,
			status = :status,
			number_of_months_in_period = :number_of_months_in_period,
			currency = :currency,
			default_price_per_pack = :default_price_per_pack,
			line_items = :line_items,
			template = :template,
			previous_requisitions = :previous_requisitions,
			stock_adjustment_reasons = :stock_adjustment_reasons,
			date_physical_stock_count_completed = :date_physical_stock_count_completed,
			modified_date = :modified_date,
			version = :version
		WHERE id = :id AND version = :expected_version`
	result, err := tx.NamedExecContext(ctx, q, updateArgs{requisitionRow: row, ExpectedVersion: expectedVersion})
	if err != nil {
		return fmt.Errorf("failed to update requisition %s: %w", row.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update requisition %s: %w", row.ID, err)
	}
	if affected > 0 {
		return nil
	}

	var stored int64
	err = tx.GetContext(ctx, &stored, `SELECT version FROM requisitions WHERE id = ?`, row.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("requisition %s: %w", row.ID, entities.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read version of requisition %s: %w", row.ID, err)
	}
	return fmt.Errorf("requisition %s has version %d, got %d: %w",
		row.ID, stored, expectedVersion, entities.ErrVersionMismatch)
}

// Delete removes a requisition and its status history
func (r *RequisitionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM status_changes WHERE requisition_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete status changes of %s: %w", id, err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM requisitions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete requisition %s: %w", id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("requisition %s: %w", id, entities.ErrNotFound)
	}
	return tx.Commit()
}

// Search returns one page of matching requisitions ordered by creation date
func (r *RequisitionRepository) Search(ctx context.Context, criteria repositories.SearchCriteria) (repositories.Page, error) {
	where, args, err := buildWhere(criteria)
	if err != nil {
		return repositories.Page{}, err
	}

	var total int
	countQuery := r.db.Rebind(`SELECT COUNT(*) FROM requisitions` + where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return repositories.Page{}, fmt.Errorf("failed to count requisitions: %w", err)
	}

	query := `SELECT ` + requisitionColumns + ` FROM requisitions` + where + ` ORDER BY created_date, id`
	if criteria.PageSize > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, criteria.PageSize, criteria.Page*criteria.PageSize)
	}

	var rows []requisitionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return repositories.Page{}, fmt.Errorf("failed to search requisitions: %w", err)
	}

	items, err := r.attachStatusChanges(ctx, rows)
	if err != nil {
		return repositories.Page{}, err
	}
	return repositories.Page{
		Items:         items,
		TotalElements: total,
		Page:          criteria.Page,
		PageSize:      criteria.PageSize,
	}, nil
}

func buildWhere(criteria repositories.SearchCriteria) (string, []interface{}, error) {
	var clauses []string
	var args []interface{}

	addID := func(column string, id uuid.UUID) {
		if id != uuid.Nil {
			clauses = append(clauses, column+" = ?")
			args = append(args, id.String())
		}
	}
	addID("facility_id", criteria.FacilityID)
	addID("program_id", criteria.ProgramID)
	addID("processing_period_id", criteria.ProcessingPeriodID)
	addID("supervisory_node_id", criteria.SupervisoryNodeID)

	if criteria.Emergency != nil {
		clauses = append(clauses, "emergency = ?")
		args = append(args, *criteria.Emergency)
	}
	if criteria.CreatedFrom != nil {
		clauses = append(clauses, "created_date >= ?")
		args = append(args, formatTime(*criteria.CreatedFrom))
	}
	if criteria.CreatedTo != nil {
		clauses = append(clauses, "created_date <= ?")
		args = append(args, formatTime(*criteria.CreatedTo))
	}
	if len(criteria.Statuses) > 0 {
		names := make([]string, len(criteria.Statuses))
		for i, s := range criteria.Statuses {
			names[i] = s.String()
		}
		clause, inArgs, err := sqlx.In("status IN (?)", names)
		if err != nil {
			return "", nil, fmt.Errorf("failed to construct IN query for statuses: %w", err)
		}
		clauses = append(clauses, clause)
		args = append(args, inArgs...)
	}

	if len(clauses) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// LastRegularRequisition returns the newest non emergency requisition
func (r *RequisitionRepository) LastRegularRequisition(ctx context.Context, facilityID, programID uuid.UUID) (*entities.Requisition, error) {
	recent, err := r.RecentRegularRequisitions(ctx, facilityID, programID, 1)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, fmt.Errorf("no regular requisition for facility %s and program %s: %w",
			facilityID, programID, entities.ErrNotFound)
	}
	return recent[0], nil
}

// RecentRegularRequisitions returns up to limit non emergency requisitions, oldest first
func (r *RequisitionRepository) RecentRegularRequisitions(ctx context.Context, facilityID, programID uuid.UUID, limit int) ([]*entities.Requisition, error) {
	query := `SELECT ` + requisitionColumns + ` FROM requisitions
		WHERE facility_id = ? AND program_id = ? AND emergency = 0
		ORDER BY created_date DESC, id DESC`
	args := []interface{}{facilityID.String(), programID.String()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []requisitionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get recent requisitions: %w", err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return r.attachStatusChanges(ctx, rows)
}

// attachStatusChanges loads the status history of every row in one query
func (r *RequisitionRepository) attachStatusChanges(ctx context.Context, rows []requisitionRow) ([]*entities.Requisition, error) {
	result := make([]*entities.Requisition, 0, len(rows))
	if len(rows) == 0 {
		return result, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	query, args, err := sqlx.In(`
		SELECT id, requisition_id, position, status, author_id, created_date, previous_status_change_id
		FROM status_changes
		WHERE requisition_id IN (?)
		ORDER BY requisition_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to construct IN query for status changes: %w", err)
	}

	var changes []statusChangeRow
	if err := r.db.SelectContext(ctx, &changes, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get status changes: %w", err)
	}
	byRequisition := make(map[string][]statusChangeRow, len(rows))
	for _, change := range changes {
		byRequisition[change.RequisitionID] = append(byRequisition[change.RequisitionID], change)
	}

	for _, row := range rows {
		requisition, err := fromRow(row, byRequisition[row.ID])
		if err != nil {
			return nil, fmt.Errorf("failed to decode requisition %s: %w", row.ID, err)
		}
		result = append(result, requisition)
	}
	return result, nil
}
