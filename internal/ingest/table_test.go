package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gaia-chat/gaia-gateway/internal/analytics"
)

func TestLoadTable_CSVRaggedRows(t *testing.T) {
	data := "\xef\xbb\xbfname,amount,paid\nalice,10,true\nbob,20\ncarol,30,false,extra\n"
	raw, err := LoadTable(Wrap("pay.csv", []byte(data), ""), 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "amount", "paid"}, raw.Header)
	require.Len(t, raw.Rows, 3)
	assert.Equal(t, []string{"bob", "20", ""}, raw.Rows[1])
	assert.Equal(t, []string{"carol", "30", "false"}, raw.Rows[2])
	assert.False(t, raw.Capped)
}

func TestLoadTable_TSVAndCap(t *testing.T) {
	data := "a\tb\n1\tx\n2\ty\n3\tz\n"
	raw, err := LoadTable(Wrap("d.tsv", []byte(data), ""), 2)
	require.NoError(t, err)
	assert.Len(t, raw.Rows, 2)
	assert.True(t, raw.Capped)
}

func TestLoadTable_EmptyAndLegacy(t *testing.T) {
	_, err := LoadTable(Wrap("empty.csv", nil, ""), 0)
	assert.ErrorIs(t, err, ErrEmptyTable)

	_, err = LoadTable(Wrap("old.xls", []byte("BIFF"), ""), 0)
	assert.Error(t, err)
}

func TestLoadTable_XLSXFirstSheet(t *testing.T) {
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]any{"region", "sales"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]any{"north", 12.5}))
	require.NoError(t, wb.SetSheetRow(sheet, "A3", &[]any{"south", 7}))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	raw, err := LoadTable(Wrap("book.xlsx", buf.Bytes(), ""), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "sales"}, raw.Header)
	assert.Equal(t, [][]string{{"north", "12.5"}, {"south", "7"}}, raw.Rows)
}

func TestTyped_InfersColumnTypes(t *testing.T) {
	raw := &RawTable{
		Header: []string{"id", "price", "ok", "label", "blank"},
		Rows: [][]string{
			{"1", "2.5", "true", "x", ""},
			{"2", "3", "no", "7", ""},
			{"", "", "", "", ""},
		},
	}
	table := raw.Typed("t0")

	assert.Equal(t, "t0", table.Name)
	assert.Equal(t, []analytics.Column{
		{Name: "id", Type: analytics.TypeInteger},
		{Name: "price", Type: analytics.TypeReal},
		{Name: "ok", Type: analytics.TypeBoolean},
		{Name: "label", Type: analytics.TypeText},
		{Name: "blank", Type: analytics.TypeText},
	}, table.Columns)
	assert.Equal(t, []any{int64(1), 2.5, true, "x", nil}, table.Rows[0])
	assert.Equal(t, []any{nil, nil, nil, nil, nil}, table.Rows[2])
}

func TestCleanHeader(t *testing.T) {
	assert.Equal(t, []string{"a", "column_2", "A_2"}, cleanHeader([]string{" a ", "", "A"}))
}

func TestProfile(t *testing.T) {
	raw := &RawTable{
		Header: []string{"name", "amount"},
		Rows:   [][]string{{"a", "1"}, {"b", ""}, {"c", "3"}, {"d", "4"}},
	}
	p := raw.Profile("pay.csv", raw.Typed("t0").Columns, 1, 3)

	assert.Equal(t, "pay.csv", p.TableName)
	assert.Equal(t, 4, p.RowCount)
	require.Len(t, p.QuickStats, 1)
	assert.Equal(t, "name", p.QuickStats[0].Column)
	assert.InDelta(t, 100.0, p.QuickStats[0].NonNullPct, 0.001)
	assert.Equal(t, []string{"a", "b", "c"}, p.QuickStats[0].Samples)

	p = raw.Profile("pay.csv", nil, 0, 0)
	assert.InDelta(t, 75.0, p.QuickStats[1].NonNullPct, 0.001)
}
