package csv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsinha/requisition/pkg/domain/entities"
)

const (
	productsCSV = "product_code,full_product_name,net_content,pack_rounding_threshold,round_to_zero,full_supply,price_per_pack,max_periods_of_stock,stock_on_hand\n" +
		"AMOX250,Amoxicillin 250mg,100,20,false,true,4.50,3,400\n" +
		"ZINC20,Zinc sulfate 20mg,50,10,true,false,,,\n"
	reasonsCSV  = "name,additive\nTransfer in,true\nDamaged,false\n"
	templateCSV = "column,displayed,source,label\n" +
		"stockOnHand,true,USER_INPUT,Stock on hand\n" +
		"totalConsumedQuantity,true,CALCULATED,\n" +
		"remarks,false,USER_INPUT,\n"
	entriesCSV = "period,product_code,beginning_balance,total_received_quantity,stock_on_hand,total_consumed_quantity,total_stockout_days,requested_quantity,requested_quantity_explanation,adjustments\n" +
		"0,AMOX250,500,100,400,,0,,,Damaged:2;Transfer in:10\n" +
		"1,AMOX250,,,380,,,120,rainy season,\n"
)

func writeScenario(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func validFiles() map[string]string {
	return map[string]string{
		ProductsFile: productsCSV,
		ReasonsFile:  reasonsCSV,
		TemplateFile: templateCSV,
		EntriesFile:  entriesCSV,
	}
}

func TestLoadScenario(t *testing.T) {
	program := uuid.New()
	scenario, err := NewLoader().LoadScenario(writeScenario(t, validFiles()), program)
	require.NoError(t, err)

	require.Len(t, scenario.Products, 2)
	amox, ok := scenario.ProductByCode("AMOX250")
	require.True(t, ok)
	assert.True(t, amox.FullSupply())
	assert.Equal(t, int64(100), amox.Orderable.NetContent)
	assert.Equal(t, 400, *amox.StockOnHand)
	assert.True(t, amox.MaxPeriodsOfStock.Equal(decimal.NewFromInt(3)))
	po, ok := amox.Orderable.ProgramOrderable(program)
	require.True(t, ok)
	assert.True(t, po.PricePerPack.Amount.Equal(decimal.RequireFromString("4.50")))

	zinc, ok := scenario.ProductByCode("ZINC20")
	require.True(t, ok)
	assert.False(t, zinc.FullSupply())
	assert.Nil(t, zinc.StockOnHand)
	assert.True(t, zinc.Orderable.RoundToZero)

	_, ok = scenario.ReasonByName("damaged")
	assert.True(t, ok)

	assert.True(t, scenario.Template.IsColumnCalculated(entities.ColumnTotalConsumedQuantity))
	assert.False(t, scenario.Template.IsColumnDisplayed(entities.ColumnRemarks))
	assert.True(t, scenario.Template.IsColumnInTemplate(entities.ColumnRemarks))
	assert.Equal(t, "Stock on hand", scenario.Template.Columns[entities.ColumnStockOnHand].Label)

	assert.Equal(t, 2, scenario.Periods())
	first := scenario.EntriesFor(0)
	require.Len(t, first, 1)
	assert.Equal(t, 500, *first[0].BeginningBalance)
	assert.Nil(t, first[0].TotalConsumedQuantity)
	assert.Equal(t, []Adjustment{{Reason: "Damaged", Quantity: 2}, {Reason: "Transfer in", Quantity: 10}}, first[0].Adjustments)

	second := scenario.EntriesFor(1)
	require.Len(t, second, 1)
	assert.Nil(t, second[0].BeginningBalance)
	assert.Equal(t, 120, *second[0].RequestedQuantity)
	assert.Equal(t, "rainy season", second[0].RequestedQuantityExplanation)
}

func TestLoadScenario_ReasonsOptionalAndBOM(t *testing.T) {
	files := validFiles()
	delete(files, ReasonsFile)
	files[EntriesFile] = "\uFEFF" + "period,product_code,beginning_balance,total_received_quantity,stock_on_hand,total_consumed_quantity,total_stockout_days,requested_quantity,requested_quantity_explanation,adjustments\n" +
		"0,AMOX250,1,2,3,,,,,\n"

	scenario, err := NewLoader().LoadScenario(writeScenario(t, files), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, scenario.Reasons)
	assert.Len(t, scenario.Entries, 1)
}

func TestLoadScenario_Errors(t *testing.T) {
	entriesHeader := "period,product_code,beginning_balance,total_received_quantity,stock_on_hand,total_consumed_quantity,total_stockout_days,requested_quantity,requested_quantity_explanation,adjustments\n"
	tests := []struct {
		name string
		file string
		body string
	}{
		{"bad header", ProductsFile, "code,name\nA,B\n"},
		{"no rows", ReasonsFile, "name,additive\n"},
		{"duplicate product", ProductsFile, productsCSV + "AMOX250,Again,1,0,false,true,,,\n"},
		{"zero net content", ProductsFile, "product_code,full_product_name,net_content,pack_rounding_threshold,round_to_zero,full_supply,price_per_pack,max_periods_of_stock,stock_on_hand\nX,X,0,0,false,true,,,\n"},
		{"unknown column", TemplateFile, "column,displayed,source,label\nfoo,true,USER_INPUT,\n"},
		{"bad source", TemplateFile, "column,displayed,source,label\nremarks,true,MAGIC,\n"},
		{"bad label", TemplateFile, "column,displayed,source,label\nremarks,true,USER_INPUT,Notes!\n"},
		{"unknown product", EntriesFile, entriesHeader + "0,NOPE,1,,,,,,,\n"},
		{"unknown reason", EntriesFile, entriesHeader + "0,AMOX250,1,,,,,,,Stolen:3\n"},
		{"bad adjustment", EntriesFile, entriesHeader + "0,AMOX250,1,,,,,,,Damaged\n"},
		{"negative period", EntriesFile, entriesHeader + "-1,AMOX250,1,,,,,,,\n"},
		{"bad quantity", EntriesFile, entriesHeader + "0,AMOX250,ten,,,,,,,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := validFiles()
			files[tt.file] = tt.body
			_, err := NewLoader().LoadScenario(writeScenario(t, files), uuid.New())
			assert.Error(t, err)
		})
	}

	_, err := NewLoader().LoadScenario(t.TempDir(), uuid.New())
	assert.Error(t, err)
}
