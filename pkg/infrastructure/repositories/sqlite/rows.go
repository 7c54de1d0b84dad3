package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/requisition/pkg/domain/entities"
)

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type requisitionRow struct {
	ID                              string         `db:"id"`
	ProgramID                       string         `db:"program_id"`
	FacilityID                      string         `db:"facility_id"`
	ProcessingPeriodID              string         `db:"processing_period_id"`
	SupervisoryNodeID               sql.NullString `db:"supervisory_node_id"`
	SupplyingFacilityID             sql.NullString `db:"supplying_facility_id"`
	Emergency                       bool           `db:"emergency"`
	Status                          string         `db:"status"`
	NumberOfMonthsInPeriod          int            `db:"number_of_months_in_period"`
	Currency                        string         `db:"currency"`
	DefaultPricePerPack             string         `db:"default_price_per_pack"`
	LineItems                       string         `db:"line_items"`
	Template                        sql.NullString `db:"template"`
	PreviousRequisitions            string         `db:"previous_requisitions"`
	StockAdjustmentReasons          string         `db:"stock_adjustment_reasons"`
	DatePhysicalStockCountCompleted sql.NullString `db:"date_physical_stock_count_completed"`
	CreatedDate                     string         `db:"created_date"`
	ModifiedDate                    string         `db:"modified_date"`
	Version                         int64          `db:"version"`
}

type statusChangeRow struct {
	ID                     string         `db:"id"`
	RequisitionID          string         `db:"requisition_id"`
	Position               int            `db:"position"`
	Status                 string         `db:"status"`
	AuthorID               string         `db:"author_id"`
	CreatedDate            string         `db:"created_date"`
	PreviousStatusChangeID sql.NullString `db:"previous_status_change_id"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func parseNullableID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func marshalJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func toRow(r *entities.Requisition, version int64) (requisitionRow, error) {
	row := requisitionRow{
		ID:                     r.ID.String(),
		ProgramID:              r.ProgramID.String(),
		FacilityID:             r.FacilityID.String(),
		ProcessingPeriodID:     r.ProcessingPeriodID.String(),
		SupervisoryNodeID:      nullableID(r.SupervisoryNodeID),
		SupplyingFacilityID:    nullableID(r.SupplyingFacilityID),
		Emergency:              r.Emergency,
		Status:                 r.Status.String(),
		NumberOfMonthsInPeriod: r.NumberOfMonthsInPeriod,
		Currency:               string(r.Currency),
		DefaultPricePerPack:    r.DefaultPricePerPack.String(),
		CreatedDate:            formatTime(r.CreatedDate),
		ModifiedDate:           formatTime(r.ModifiedDate),
		Version:                version,
	}

	var err error
	if row.LineItems, err = marshalJSON(r.LineItems); err != nil {
		return row, fmt.Errorf("failed to encode line items: %w", err)
	}
	if row.PreviousRequisitions, err = marshalJSON(r.PreviousRequisitions); err != nil {
		return row, fmt.Errorf("failed to encode previous requisitions: %w", err)
	}
	if row.StockAdjustmentReasons, err = marshalJSON(r.StockAdjustmentReasons); err != nil {
		return row, fmt.Errorf("failed to encode stock adjustment reasons: %w", err)
	}
	if r.Template != nil {
		template, err := marshalJSON(r.Template)
		if err != nil {
			return row, fmt.Errorf("failed to encode template: %w", err)
		}
		row.Template = sql.NullString{String: template, Valid: true}
	}
	if r.DatePhysicalStockCountCompleted != nil {
		row.DatePhysicalStockCountCompleted = sql.NullString{
			String: formatTime(*r.DatePhysicalStockCountCompleted),
			Valid:  true,
		}
	}
	return row, nil
}

func toStatusChangeRows(r *entities.Requisition) []statusChangeRow {
	rows := make([]statusChangeRow, len(r.StatusChanges))
	for i, change := range r.StatusChanges {
		rows[i] = statusChangeRow{
			ID:                     change.ID.String(),
			RequisitionID:          r.ID.String(),
			Position:               i,
			Status:                 change.Status.String(),
			AuthorID:               change.AuthorID.String(),
			CreatedDate:            formatTime(change.CreatedDate),
			PreviousStatusChangeID: nullableID(change.PreviousStatusChangeID),
		}
	}
	return rows
}

func fromRow(row requisitionRow, changes []statusChangeRow) (*entities.Requisition, error) {
	r := &entities.Requisition{
		Emergency:              row.Emergency,
		NumberOfMonthsInPeriod: row.NumberOfMonthsInPeriod,
		Currency:               entities.CurrencyUnit(row.Currency),
		Version:                row.Version,
	}

	var err error
	if r.ID, err = uuid.Parse(row.ID); err != nil {
		return nil, fmt.Errorf("invalid requisition id %q: %w", row.ID, err)
	}
	if r.ProgramID, err = uuid.Parse(row.ProgramID); err != nil {
		return nil, fmt.Errorf("invalid program id %q: %w", row.ProgramID, err)
	}
	if r.FacilityID, err = uuid.Parse(row.FacilityID); err != nil {
		return nil, fmt.Errorf("invalid facility id %q: %w", row.FacilityID, err)
	}
	if r.ProcessingPeriodID, err = uuid.Parse(row.ProcessingPeriodID); err != nil {
		return nil, fmt.Errorf("invalid processing period id %q: %w", row.ProcessingPeriodID, err)
	}
	if r.SupervisoryNodeID, err = parseNullableID(row.SupervisoryNodeID); err != nil {
		return nil, fmt.Errorf("invalid supervisory node id: %w", err)
	}
	if r.SupplyingFacilityID, err = parseNullableID(row.SupplyingFacilityID); err != nil {
		return nil, fmt.Errorf("invalid supplying facility id: %w", err)
	}
	if r.Status, err = entities.ParseRequisitionStatus(row.Status); err != nil {
		return nil, err
	}
	if r.DefaultPricePerPack, err = decimal.NewFromString(row.DefaultPricePerPack); err != nil {
		return nil, fmt.Errorf("invalid default price per pack %q: %w", row.DefaultPricePerPack, err)
	}
	if r.CreatedDate, err = time.Parse(timeLayout, row.CreatedDate); err != nil {
		return nil, fmt.Errorf("invalid created date %q: %w", row.CreatedDate, err)
	}
	if r.ModifiedDate, err = time.Parse(timeLayout, row.ModifiedDate); err != nil {
		return nil, fmt.Errorf("invalid modified date %q: %w", row.ModifiedDate, err)
	}
	if row.DatePhysicalStockCountCompleted.Valid {
		date, err := time.Parse(timeLayout, row.DatePhysicalStockCountCompleted.String)
		if err != nil {
			return nil, fmt.Errorf("invalid stock count date: %w", err)
		}
		r.DatePhysicalStockCountCompleted = &date
	}

	if err := json.Unmarshal([]byte(row.LineItems), &r.LineItems); err != nil {
		return nil, fmt.Errorf("failed to decode line items: %w", err)
	}
	if r.LineItems == nil {
		r.LineItems = []*entities.RequisitionLineItem{}
	}
	if err := json.Unmarshal([]byte(row.PreviousRequisitions), &r.PreviousRequisitions); err != nil {
		return nil, fmt.Errorf("failed to decode previous requisitions: %w", err)
	}
	if err := json.Unmarshal([]byte(row.StockAdjustmentReasons), &r.StockAdjustmentReasons); err != nil {
		return nil, fmt.Errorf("failed to decode stock adjustment reasons: %w", err)
	}
	if row.Template.Valid {
		r.Template = &entities.RequisitionTemplate{}
		if err := json.Unmarshal([]byte(row.Template.String), r.Template); err != nil {
			return nil, fmt.Errorf("failed to decode template: %w", err)
		}
	}

	r.StatusChanges = make([]entities.StatusChange, 0, len(changes))
	for _, c := range changes {
		change, err := fromStatusChangeRow(c)
		if err != nil {
			return nil, err
		}
		r.StatusChanges = append(r.StatusChanges, change)
	}
	return r, nil
}

func fromStatusChangeRow(row statusChangeRow) (entities.StatusChange, error) {
	var change entities.StatusChange
	var err error
	if change.ID, err = uuid.Parse(row.ID); err != nil {
		return change, fmt.Errorf("invalid status change id %q: %w", row.ID, err)
	}
	if change.RequisitionID, err = uuid.Parse(row.RequisitionID); err != nil {
		return change, fmt.Errorf("invalid status change requisition id %q: %w", row.RequisitionID, err)
	}
	if change.AuthorID, err = uuid.Parse(row.AuthorID); err != nil {
		return change, fmt.Errorf("invalid status change author id %q: %w", row.AuthorID, err)
	}
	if change.Status, err = entities.ParseRequisitionStatus(row.Status); err != nil {
		return change, err
	}
	if change.CreatedDate, err = time.Parse(timeLayout, row.CreatedDate); err != nil {
		return change, fmt.Errorf("invalid status change date %q: %w", row.CreatedDate, err)
	}
	if change.PreviousStatusChangeID, err = parseNullableID(row.PreviousStatusChangeID); err != nil {
		return change, fmt.Errorf("invalid previous status change id: %w", err)
	}
	return change, nil
}
