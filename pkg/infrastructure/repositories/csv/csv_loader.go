package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Scenario file names inside a scenario directory
const (
	ProductsFile = "products.csv"
	ReasonsFile  = "reasons.csv"
	TemplateFile = "template.csv"
	EntriesFile  = "entries.csv"
)

// Product is a catalog row together with the facility's current stock
type Product struct {
	Orderable         entities.Orderable
	MaxPeriodsOfStock decimal.Decimal
	StockOnHand       *int
}

// FullSupply reports whether the product is on the program's full supply list
func (p Product) FullSupply() bool {
	return len(p.Orderable.Programs) > 0 && p.Orderable.Programs[0].FullSupply
}

// Adjustment is a stock adjustment entered against a named reason
type Adjustment struct {
	Reason   string
	Quantity int
}

// Entry holds what the facility reports for one product in one period
type Entry struct {
	Period                       int
	ProductCode                  string
	BeginningBalance             *int
	TotalReceivedQuantity        *int
	StockOnHand                  *int
	TotalConsumedQuantity        *int
	TotalStockoutDays            *int
	RequestedQuantity            *int
	RequestedQuantityExplanation string
	Adjustments                  []Adjustment
}

// Scenario is everything needed to replay requisitions for one facility and program
type Scenario struct {
	ProgramID uuid.UUID
	Products  []Product
	Reasons   []entities.StockAdjustmentReason
	Template  *entities.RequisitionTemplate
	Entries   []Entry
}

// Periods returns the number of periods the entries span
func (s *Scenario) Periods() int {
	periods := 0
	for _, e := range s.Entries {
		if e.Period+1 > periods {
			periods = e.Period + 1
		}
	}
	return periods
}

// EntriesFor returns the entries of one period in file order
func (s *Scenario) EntriesFor(period int) []Entry {
	var entries []Entry
	for _, e := range s.Entries {
		if e.Period == period {
			entries = append(entries, e)
		}
	}
	return entries
}

// ProductByCode finds a product by its code
func (s *Scenario) ProductByCode(code string) (Product, bool) {
	for _, p := range s.Products {
		if p.Orderable.ProductCode == code {
			return p, true
		}
	}
	return Product{}, false
}

// ReasonByName finds a stock adjustment reason by name, ignoring case
func (s *Scenario) ReasonByName(name string) (entities.StockAdjustmentReason, bool) {
	for _, r := range s.Reasons {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return entities.StockAdjustmentReason{}, false
}

// Loader handles loading requisition scenarios from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadScenario reads the four scenario files from a directory. The reasons
// file is optional.
func (l *Loader) LoadScenario(dir string, programID uuid.UUID) (*Scenario, error) {
	scenario := &Scenario{ProgramID: programID}

	var err error
	if scenario.Products, err = l.LoadProducts(filepath.Join(dir, ProductsFile), programID); err != nil {
		return nil, err
	}
	reasonsPath := filepath.Join(dir, ReasonsFile)
	if _, statErr := os.Stat(reasonsPath); statErr == nil {
		if scenario.Reasons, err = l.LoadReasons(reasonsPath); err != nil {
			return nil, err
		}
	}
	if scenario.Template, err = l.LoadTemplate(filepath.Join(dir, TemplateFile), programID); err != nil {
		return nil, err
	}
	if scenario.Entries, err = l.LoadEntries(filepath.Join(dir, EntriesFile)); err != nil {
		return nil, err
	}

	for i, e := range scenario.Entries {
		if _, ok := scenario.ProductByCode(e.ProductCode); !ok {
			return nil, fmt.Errorf("entries CSV row %d: unknown product_code %s", i+2, e.ProductCode)
		}
		for _, a := range e.Adjustments {
			if _, ok := scenario.ReasonByName(a.Reason); !ok {
				return nil, fmt.Errorf("entries CSV row %d: unknown adjustment reason %s", i+2, a.Reason)
			}
		}
	}
	return scenario, nil
}

func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	// spreadsheet exports often start with a UTF-8 byte order mark
	decoded := transform.NewReader(file, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
	}
	return rows, nil
}

// LoadProducts loads the program catalog from a CSV file
func (l *Loader) LoadProducts(filename string, programID uuid.UUID) ([]Product, error) {
	expectedHeader := []string{
		"product_code", "full_product_name", "net_content", "pack_rounding_threshold",
		"round_to_zero", "full_supply", "price_per_pack", "max_periods_of_stock", "stock_on_hand",
	}
	rows, err := readRecords(filename, "products", expectedHeader)
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for i, record := range rows {
		product, err := parseProduct(record, programID, i+1)
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: %w", i+2, err)
		}
		if seen[product.Orderable.ProductCode] {
			return nil, fmt.Errorf("products CSV row %d: duplicate product_code %s", i+2, product.Orderable.ProductCode)
		}
		seen[product.Orderable.ProductCode] = true
		products = append(products, product)
	}
	return products, nil
}

// LoadReasons loads stock adjustment reasons from a CSV file
func (l *Loader) LoadReasons(filename string) ([]entities.StockAdjustmentReason, error) {
	rows, err := readRecords(filename, "reasons", []string{"name", "additive"})
	if err != nil {
		return nil, err
	}

	reasons := make([]entities.StockAdjustmentReason, 0, len(rows))
	for i, record := range rows {
		if record[0] == "" {
			return nil, fmt.Errorf("reasons CSV row %d: name is required", i+2)
		}
		additive, err := strconv.ParseBool(record[1])
		if err != nil {
			return nil, fmt.Errorf("reasons CSV row %d: invalid additive: %s", i+2, record[1])
		}
		reasons = append(reasons, entities.StockAdjustmentReason{ID: uuid.New(), Name: record[0], Additive: additive})
	}
	return reasons, nil
}

// LoadTemplate loads the column layout of a program template from a CSV file
func (l *Loader) LoadTemplate(filename string, programID uuid.UUID) (*entities.RequisitionTemplate, error) {
	rows, err := readRecords(filename, "template", []string{"column", "displayed", "source", "label"})
	if err != nil {
		return nil, err
	}

	template := entities.NewRequisitionTemplate(programID, nil)
	for i, record := range rows {
		column, err := entities.ParseColumn(record[0])
		if err != nil {
			return nil, fmt.Errorf("template CSV row %d: %w", i+2, err)
		}
		displayed, err := strconv.ParseBool(record[1])
		if err != nil {
			return nil, fmt.Errorf("template CSV row %d: invalid displayed: %s", i+2, record[1])
		}
		source, err := entities.ParseSourceType(record[2])
		if err != nil {
			return nil, fmt.Errorf("template CSV row %d: %w", i+2, err)
		}
		template.Columns[column] = entities.ColumnDefinition{Displayed: displayed, Source: source}
		if record[3] != "" {
			if err := template.SetColumnLabel(column, record[3]); err != nil {
				return nil, fmt.Errorf("template CSV row %d: %w", i+2, err)
			}
		}
	}
	return template, nil
}

// LoadEntries loads the per period figures reported by the facility
func (l *Loader) LoadEntries(filename string) ([]Entry, error) {
	expectedHeader := []string{
		"period", "product_code", "beginning_balance", "total_received_quantity", "stock_on_hand",
		"total_consumed_quantity", "total_stockout_days", "requested_quantity",
		"requested_quantity_explanation", "adjustments",
	}
	rows, err := readRecords(filename, "entries", expectedHeader)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for i, record := range rows {
		entry, err := parseEntry(record)
		if err != nil {
			return nil, fmt.Errorf("entries CSV row %d: %w", i+2, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseProduct(record []string, programID uuid.UUID, displayOrder int) (Product, error) {
	if record[0] == "" {
		return Product{}, fmt.Errorf("product_code is required")
	}

	netContent, err := strconv.ParseInt(record[2], 10, 64)
	if err != nil || netContent <= 0 {
		return Product{}, fmt.Errorf("invalid net_content: %s", record[2])
	}
	threshold, err := strconv.ParseInt(record[3], 10, 64)
	if err != nil || threshold < 0 {
		return Product{}, fmt.Errorf("invalid pack_rounding_threshold: %s", record[3])
	}
	roundToZero, err := strconv.ParseBool(record[4])
	if err != nil {
		return Product{}, fmt.Errorf("invalid round_to_zero: %s", record[4])
	}
	fullSupply, err := strconv.ParseBool(record[5])
	if err != nil {
		return Product{}, fmt.Errorf("invalid full_supply: %s", record[5])
	}

	programOrderable := entities.ProgramOrderable{
		ProgramID:    programID,
		FullSupply:   fullSupply,
		Active:       true,
		DisplayOrder: displayOrder,
	}
	if record[6] != "" {
		price, err := decimal.NewFromString(record[6])
		if err != nil || price.IsNegative() {
			return Product{}, fmt.Errorf("invalid price_per_pack: %s", record[6])
		}
		money := entities.NewMoney(price, entities.DefaultCurrency)
		programOrderable.PricePerPack = &money
	}

	maxPeriods := decimal.Zero
	if record[7] != "" {
		if maxPeriods, err = decimal.NewFromString(record[7]); err != nil {
			return Product{}, fmt.Errorf("invalid max_periods_of_stock: %s", record[7])
		}
	}
	stockOnHand, err := parseOptionalInt(record[8], "stock_on_hand")
	if err != nil {
		return Product{}, err
	}

	return Product{
		Orderable: entities.Orderable{
			ID:                    uuid.New(),
			ProductCode:           record[0],
			FullProductName:       record[1],
			NetContent:            netContent,
			PackRoundingThreshold: threshold,
			RoundToZero:           roundToZero,
			Programs:              []entities.ProgramOrderable{programOrderable},
		},
		MaxPeriodsOfStock: maxPeriods,
		StockOnHand:       stockOnHand,
	}, nil
}

func parseEntry(record []string) (Entry, error) {
	period, err := strconv.Atoi(record[0])
	if err != nil || period < 0 {
		return Entry{}, fmt.Errorf("invalid period: %s", record[0])
	}
	entry := Entry{Period: period, ProductCode: record[1], RequestedQuantityExplanation: record[8]}
	if entry.ProductCode == "" {
		return Entry{}, fmt.Errorf("product_code is required")
	}

	fields := []struct {
		target **int
		value  string
		name   string
	}{
		{&entry.BeginningBalance, record[2], "beginning_balance"},
		{&entry.TotalReceivedQuantity, record[3], "total_received_quantity"},
		{&entry.StockOnHand, record[4], "stock_on_hand"},
		{&entry.TotalConsumedQuantity, record[5], "total_consumed_quantity"},
		{&entry.TotalStockoutDays, record[6], "total_stockout_days"},
		{&entry.RequestedQuantity, record[7], "requested_quantity"},
	}
	for _, f := range fields {
		if *f.target, err = parseOptionalInt(f.value, f.name); err != nil {
			return Entry{}, err
		}
	}

	if entry.Adjustments, err = parseAdjustments(record[9]); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// parseAdjustments reads "Reason:quantity" pairs separated by semicolons
func parseAdjustments(s string) ([]Adjustment, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var adjustments []Adjustment
	for _, part := range strings.Split(s, ";") {
		name, quantity, ok := strings.Cut(part, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid adjustment %q (expected Reason:quantity)", part)
		}
		q, err := strconv.Atoi(strings.TrimSpace(quantity))
		if err != nil || q < 0 {
			return nil, fmt.Errorf("invalid adjustment quantity in %q", part)
		}
		adjustments = append(adjustments, Adjustment{Reason: strings.TrimSpace(name), Quantity: q})
	}
	return adjustments, nil
}

func parseOptionalInt(s, name string) (*int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %s", name, s)
	}
	return &v, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range expected {
		if strings.TrimSpace(strings.ToLower(actual[i])) != col {
			return false
		}
	}
	return true
}
