package ingest

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/AngelCh415/sales-compare/internal/config"
	"github.com/AngelCh415/sales-compare/internal/models"
)

const sampleCSV = "\xEF\xBB\xBFDATA DE VENDA,DATA DA EXPERIÊNCIA,total,item_id,order_status,order_id,campanha,cliente\n" +
	"05/01/2024,10/01/2024,\"1.234,56\",2,APROVADO,A1,verao,acme\n" +
	"06/01/2024,,\"250,50\",1,aprovado,A1,,\n" +
	"xx/01/2024,,\"10,00\",1,Aprovado,A2,natal,globex\n" +
	"07/01/2024,,abc,x,pendente,A3,natal,\n" +
	",,,,,,,\n"

func columns() config.ColumnsConfig { return config.Defaults().Dataset.Columns }

func TestParseCSV(t *testing.T) {
	res, err := Parse([]byte(sampleCSV), "auto", "", columns())
	require.NoError(t, err)
	require.Len(t, res.Rows, 4)

	r := res.Rows[0]
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), r.SaleDate)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), r.ExperienceDate)
	require.True(t, r.Amount.Valid)
	assert.True(t, decimal.RequireFromString("1234.56").Equal(r.Amount.Decimal))
	require.True(t, r.Units.Valid)
	assert.Equal(t, "2", r.Units.Decimal.String())
	assert.Equal(t, models.StatusApproved, r.Status)
	assert.True(t, r.Approved())
	assert.Equal(t, "A1", r.OrderID)
	assert.Equal(t, "verao", r.Campaign)
	assert.Equal(t, "acme", r.Client)

	// invalid date is absent, the row is kept
	assert.True(t, res.Rows[2].SaleDate.IsZero())
	assert.False(t, res.Rows[3].Amount.Valid)
	assert.False(t, res.Rows[3].Units.Valid)
	assert.False(t, res.Rows[3].Approved())

	d := res.Diagnostics
	assert.Equal(t, 4, d.Rows)
	assert.Equal(t, 1, d.Absent[FieldSaleDate])
	assert.Equal(t, 1, d.Invalid[FieldSaleDate])
	assert.Equal(t, 3, d.Absent[FieldExperienceDate])
	assert.Equal(t, 0, d.Invalid[FieldExperienceDate])
	assert.Equal(t, 1, d.Invalid[FieldAmount])
	assert.Equal(t, 1, d.Invalid[FieldUnits])
	assert.Equal(t, 1, d.Absent[FieldCampaign])
	assert.Equal(t, 2, d.Absent[FieldClient])
	assert.Empty(t, d.MissingColumns)
}

func TestParseCSVSemicolon(t *testing.T) {
	in := "data de venda;Total;ORDER_STATUS;order_id\n01/02/2024;1.500,00;aprovado;X\n"
	res, err := Parse([]byte(in), "csv", "", columns())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.True(t, decimal.NewFromInt(1500).Equal(res.Rows[0].Amount.Decimal))
	assert.ElementsMatch(t, []string{FieldExperienceDate, FieldUnits, FieldCampaign, FieldClient}, res.Diagnostics.MissingColumns)
}

func TestParseMissingRequiredColumn(t *testing.T) {
	_, err := Parse([]byte("total,order_status\n1,aprovado\n"), "csv", "", columns())
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Parse(nil, "csv", "", columns())
	assert.Error(t, err)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"DATA DE VENDA", "total", "item_id", "order_status", "order_id", "campanha"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"05/01/2024", 1234.5, 3, "Aprovado", "A1", "verao"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), "99,90", 1, "aprovado", "A2", "natal"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"07/01/2024", "1.234", "2", "aprovado", "A3", "natal"}))
	require.NoError(t, f.SetSheetRow(sheet, "A5", &[]any{"08/01/2024", 1.234, 1, "aprovado", "A4", "natal"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := Parse(buf.Bytes(), "auto", "", columns())
	require.NoError(t, err)
	require.Len(t, res.Rows, 4)

	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), res.Rows[0].SaleDate)
	assert.True(t, decimal.RequireFromString("1234.50").Equal(res.Rows[0].Amount.Decimal))
	assert.Equal(t, "3", res.Rows[0].Units.Decimal.String())

	assert.Equal(t, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), res.Rows[1].SaleDate)
	assert.True(t, decimal.RequireFromString("99.90").Equal(res.Rows[1].Amount.Decimal))

	// text cells follow the pt-BR rules, number cells keep their value
	assert.True(t, decimal.NewFromInt(1234).Equal(res.Rows[2].Amount.Decimal), "got %s", res.Rows[2].Amount.Decimal)
	assert.Equal(t, "2", res.Rows[2].Units.Decimal.String())
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), res.Rows[2].SaleDate)
	assert.True(t, decimal.RequireFromString("1.23").Equal(res.Rows[3].Amount.Decimal), "got %s", res.Rows[3].Amount.Decimal)
}

func TestLoaderFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendas.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	cfg := config.Defaults().Dataset
	cfg.Source = path
	l := NewLoader(NewHTTPClient(time.Second), slog.Default(), cfg)

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Rows, 4)
}

func TestLoaderFromURLRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	cfg := config.Defaults().Dataset
	cfg.Source = srv.URL + "/export?format=csv"
	cfg.Retries = 2
	l := NewLoader(NewHTTPClient(time.Second), slog.Default(), cfg)

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Rows, 4)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoaderMissingFile(t *testing.T) {
	cfg := config.Defaults().Dataset
	cfg.Source = filepath.Join(t.TempDir(), "nope.csv")
	_, err := NewLoader(NewHTTPClient(time.Second), slog.Default(), cfg).Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
