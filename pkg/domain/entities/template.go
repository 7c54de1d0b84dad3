package entities

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Column identifies a requisition template column
type Column int

const (
	ColumnRequestedQuantity Column = iota
	ColumnRequestedQuantityExplanation
	ColumnBeginningBalance
	ColumnTotalReceivedQuantity
	ColumnTotalConsumedQuantity
	ColumnTotalLossesAndAdjustments
	ColumnStockOnHand
	ColumnTotalStockoutDays
	ColumnTotal
	ColumnAdjustedConsumption
	ColumnAverageConsumption
	ColumnMaximumStockQuantity
	ColumnCalculatedOrderQuantity
	ColumnCalculatedOrderQuantityISA
	ColumnIdealStockAmount
	ColumnApprovedQuantity
	ColumnPacksToShip
	ColumnPricePerPack
	ColumnTotalCost
	ColumnRemarks
	ColumnSkipped
)

var columnNames = map[Column]string{
	ColumnRequestedQuantity:            "requestedQuantity",
	ColumnRequestedQuantityExplanation: "requestedQuantityExplanation",
	ColumnBeginningBalance:             "beginningBalance",
	ColumnTotalReceivedQuantity:        "totalReceivedQuantity",
	ColumnTotalConsumedQuantity:        "totalConsumedQuantity",
	ColumnTotalLossesAndAdjustments:    "totalLossesAndAdjustments",
	ColumnStockOnHand:                  "stockOnHand",
	ColumnTotalStockoutDays:            "totalStockoutDays",
	ColumnTotal:                        "total",
	ColumnAdjustedConsumption:          "adjustedConsumption",
	ColumnAverageConsumption:           "averageConsumption",
	ColumnMaximumStockQuantity:         "maximumStockQuantity",
	ColumnCalculatedOrderQuantity:      "calculatedOrderQuantity",
	ColumnCalculatedOrderQuantityISA:   "calculatedOrderQuantityIsa",
	ColumnIdealStockAmount:             "idealStockAmount",
	ColumnApprovedQuantity:             "approvedQuantity",
	ColumnPacksToShip:                  "packsToShip",
	ColumnPricePerPack:                 "pricePerPack",
	ColumnTotalCost:                    "totalCost",
	ColumnRemarks:                      "remarks",
	ColumnSkipped:                      "skipped",
}

// String returns the column name used by templates and serialized forms
func (c Column) String() string {
	if name, ok := columnNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseColumn looks up a column by name
func ParseColumn(name string) (Column, error) {
	trimmed := strings.TrimSpace(name)
	for column, columnName := range columnNames {
		if strings.EqualFold(columnName, trimmed) {
			return column, nil
		}
	}
	return 0, newValidationError("column", "unknown template column %q", name)
}

// AllColumns lists every known column in declaration order
func AllColumns() []Column {
	columns := make([]Column, 0, len(columnNames))
	for c := ColumnRequestedQuantity; c <= ColumnSkipped; c++ {
		columns = append(columns, c)
	}
	return columns
}

// MarshalText encodes the column by name so it can key JSON objects
func (c Column) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a column name
func (c *Column) UnmarshalText(text []byte) error {
	parsed, err := ParseColumn(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// SourceType tells where a column's value comes from
type SourceType int

const (
	SourceUserInput SourceType = iota
	SourceCalculated
	SourceReferenceData
	SourceStockCards
)

// String method for SourceType enum
func (s SourceType) String() string {
	switch s {
	case SourceUserInput:
		return "USER_INPUT"
	case SourceCalculated:
		return "CALCULATED"
	case SourceReferenceData:
		return "REFERENCE_DATA"
	case SourceStockCards:
		return "STOCK_CARDS"
	default:
		return "UNKNOWN"
	}
}

// ParseSourceType converts a source name such as "CALCULATED"
func ParseSourceType(name string) (SourceType, error) {
	for s := SourceUserInput; s <= SourceStockCards; s++ {
		if strings.EqualFold(s.String(), strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return 0, newValidationError("source", "unknown column source %q", name)
}

// MarshalText encodes the source by name
func (s SourceType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a source name
func (s *SourceType) UnmarshalText(text []byte) error {
	parsed, err := ParseSourceType(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ColumnDefinition configures a single template column
type ColumnDefinition struct {
	Displayed bool       `json:"displayed"`
	Source    SourceType `json:"source"`
	Label     string     `json:"label,omitempty"`
}

var columnLabelPattern = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)

// RequisitionTemplate configures which line item columns are displayed and
// which of them are calculated by the system. It is owned outside the core.
type RequisitionTemplate struct {
	ID                       uuid.UUID                   `json:"id"`
	ProgramID                uuid.UUID                   `json:"programId"`
	Columns                  map[Column]ColumnDefinition `json:"columns"`
	PeriodsSkippable         bool                        `json:"periodsSkippable"`
	NumberOfPeriodsToAverage int                         `json:"numberOfPeriodsToAverage"`
}

// NewRequisitionTemplate creates a template for a program
func NewRequisitionTemplate(programID uuid.UUID, columns map[Column]ColumnDefinition) *RequisitionTemplate {
	copied := make(map[Column]ColumnDefinition, len(columns))
	for c, def := range columns {
		copied[c] = def
	}
	return &RequisitionTemplate{
		ID:        uuid.New(),
		ProgramID: programID,
		Columns:   copied,
	}
}

// IsColumnInTemplate reports whether the template defines the column at all
func (t *RequisitionTemplate) IsColumnInTemplate(c Column) bool {
	if t == nil {
		return false
	}
	_, ok := t.Columns[c]
	return ok
}

// IsColumnDisplayed reports whether the column is shown; absent columns are hidden
func (t *RequisitionTemplate) IsColumnDisplayed(c Column) bool {
	if t == nil {
		return false
	}
	return t.Columns[c].Displayed
}

// IsColumnInTemplateAndDisplayed reports whether the column is defined and shown
func (t *RequisitionTemplate) IsColumnInTemplateAndDisplayed(c Column) bool {
	return t.IsColumnInTemplate(c) && t.IsColumnDisplayed(c)
}

// IsColumnCalculated reports whether the column value is produced by the system
func (t *RequisitionTemplate) IsColumnCalculated(c Column) bool {
	if t == nil {
		return false
	}
	def, ok := t.Columns[c]
	return ok && def.Source == SourceCalculated
}

// SetColumnLabel changes a column label. Labels may only contain letters,
// digits and spaces.
func (t *RequisitionTemplate) SetColumnLabel(c Column, label string) error {
	def, ok := t.Columns[c]
	if !ok {
		return newValidationError("column", "column %s is not part of the template", c)
	}
	err := validation.Validate(label,
		validation.Required,
		validation.By(func(interface{}) error {
			if strings.TrimSpace(label) == "" {
				return validation.NewError("validation_blank", "must not be blank")
			}
			return nil
		}),
		validation.Match(columnLabelPattern),
	)
	if err != nil {
		return newValidationError("label", "invalid label %q for column %s: %v", label, c, err)
	}
	def.Label = label
	t.Columns[c] = def
	return nil
}
