package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vsinha/requisition/pkg/application/dto"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Supported output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	// Writer receives stdout output; nil means os.Stdout
	Writer      io.Writer
	ElapsedTime time.Duration
}

func (c Config) writer() io.Writer {
	if c.Writer == nil {
		return os.Stdout
	}
	return c.Writer
}

// Generate creates output in the specified format
func Generate(summaries []*dto.RequisitionSummary, config Config) error {
	switch config.Format {
	case FormatText, "":
		return generateTextOutput(summaries, config)
	case FormatJSON:
		return generateJSONOutput(summaries, config)
	case FormatCSV:
		return generateCSVOutput(summaries, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

var statusCaser = cases.Title(language.English)

// StatusLabel turns IN_APPROVAL into "In Approval"
func StatusLabel(status entities.RequisitionStatus) string {
	return statusCaser.String(strings.ReplaceAll(strings.ToLower(status.String()), "_", " "))
}

func optional(p *message.Printer, v *int) string {
	if v == nil {
		return "-"
	}
	return p.Sprintf("%d", *v)
}

func optionalPacks(p *message.Printer, v *int64) string {
	if v == nil {
		return "-"
	}
	return p.Sprintf("%d", *v)
}

// generateTextOutput creates human-readable text output
func generateTextOutput(summaries []*dto.RequisitionSummary, config Config) error {
	w := config.writer()
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "Requisition Summary\n")
	p.Fprintf(w, "===================\n\n")
	p.Fprintf(w, "Requisitions: %d\n", len(summaries))
	if config.ElapsedTime > 0 {
		p.Fprintf(w, "Elapsed Time: %v\n", config.ElapsedTime)
	}
	fmt.Fprintln(w)

	for _, s := range summaries {
		kind := "Regular"
		if s.Emergency {
			kind = "Emergency"
		}
		p.Fprintf(w, "%s requisition %s\n", kind, s.ID)
		p.Fprintf(w, "  Status: %s (version %d)\n", StatusLabel(s.Status), s.Version)
		if s.SupplyingFacilityID != nil {
			p.Fprintf(w, "  Supplying facility: %s\n", *s.SupplyingFacilityID)
		}
		p.Fprintf(w, "  Lines: %d full supply, %d non full supply, %d skipped\n",
			s.FullSupplyLines, s.NonFullSupplyLines, s.SkippedLines)
		p.Fprintf(w, "  Cost: %s full supply + %s non full supply = %s\n",
			s.FullSupplyCost, s.NonFullSupplyCost, s.TotalCost)

		if len(s.Lines) > 0 {
			fmt.Fprintf(w, "  %-10s %-10s %-10s %-10s %-10s %-10s %-10s %-8s %-12s\n",
				"Product", "Begin", "SOH", "Adj Cons", "Max", "Calc Ord", "Approved", "Packs", "Cost")
			for _, line := range s.Lines {
				product := line.ProductCode
				if product == "" {
					product = line.OrderableID.String()[:8]
				}
				if line.Skipped {
					product += "*"
				}
				cost := "-"
				if line.TotalCost != nil {
					cost = line.TotalCost.String()
				}
				fmt.Fprintf(w, "  %-10s %-10s %-10s %-10s %-10s %-10s %-10s %-8s %-12s\n",
					product,
					optional(p, line.BeginningBalance),
					optional(p, line.StockOnHand),
					optional(p, line.AdjustedConsumption),
					optional(p, line.MaximumStock),
					optional(p, line.CalculatedOrder),
					optional(p, line.ApprovedQuantity),
					optionalPacks(p, line.PacksToShip),
					cost)
			}
		}

		if config.Verbose && len(s.History) > 0 {
			fmt.Fprintf(w, "  History:\n")
			for _, h := range s.History {
				fmt.Fprintf(w, "    %s  %-12s %s\n", h.Date.Format(time.RFC3339), StatusLabel(h.Status), h.AuthorID)
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

// generateJSONOutput creates JSON output
func generateJSONOutput(summaries []*dto.RequisitionSummary, config Config) error {
	jsonData, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		_, err = fmt.Fprintln(config.writer(), string(jsonData))
		return err
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, "requisitions.json")
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes one row per line item
func generateCSVOutput(summaries []*dto.RequisitionSummary, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, "requisition_lines.csv")
	if err := writeLinesCSV(summaries, filename); err != nil {
		return fmt.Errorf("failed to write requisition lines CSV: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "CSV results saved to: %s\n", filename)
	}
	return nil
}

func writeLinesCSV(summaries []*dto.RequisitionSummary, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{
		"requisition_id", "status", "emergency", "product_code", "orderable_id", "full_supply", "skipped",
		"beginning_balance", "stock_on_hand", "adjusted_consumption", "average_consumption",
		"maximum_stock_quantity", "calculated_order_quantity", "requested_quantity",
		"approved_quantity", "packs_to_ship", "total_cost",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	cell := func(v *int) string {
		if v == nil {
			return ""
		}
		return strconv.Itoa(*v)
	}
	for _, s := range summaries {
		for _, line := range s.Lines {
			packs, cost := "", ""
			if line.PacksToShip != nil {
				packs = strconv.FormatInt(*line.PacksToShip, 10)
			}
			if line.TotalCost != nil {
				cost = line.TotalCost.Amount.StringFixed(2)
			}
			record := []string{
				s.ID.String(), s.Status.String(), strconv.FormatBool(s.Emergency),
				line.ProductCode, line.OrderableID.String(),
				strconv.FormatBool(line.FullSupply), strconv.FormatBool(line.Skipped),
				cell(line.BeginningBalance), cell(line.StockOnHand), cell(line.AdjustedConsumption),
				cell(line.AverageConsumption), cell(line.MaximumStock), cell(line.CalculatedOrder),
				cell(line.RequestedQuantity), cell(line.ApprovedQuantity), packs, cost,
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}
