package loader

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "crowdtags/pkg/errors"
	"crowdtags/pkg/model"
)

func sampleTable() *model.Table {
	return &model.Table{
		Columns: []string{"worker", "answer"},
		Rows: []model.Row{
			{Index: 0, Cells: []model.Cell{model.TextCell("alice"), model.TextCell(`{"tag1": [["w1", "w2"]]}`)}},
			{Index: 1, Cells: []model.Cell{model.TextCell("b`ob"), model.NullCell()}},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteCSV(&buf, sampleTable(), DefaultOptions()))

	assert.Equal(t, "worker,answer\n"+
		"alice,`{\"tag1\": [[\"w1\", \"w2\"]]}`\n"+
		"`b``ob`,\n", buf.String())
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	opts := DefaultOptions()
	opts.Delimiter = ';'
	table := sampleTable()
	table.Rows[1].Cells[1] = model.TextCell("line one\nline two; \"quoted\"")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table, opts))

	got, err := newLoader(t, opts).ReadTable(t.Context(), &buf)
	require.NoError(t, err)

	assert.Equal(t, table.Columns, got.Columns)
	require.Equal(t, table.Len(), got.Len())
	for i := range table.Rows {
		assert.Equal(t, table.Rows[i].Cells, got.Rows[i].Cells)
	}
}

func TestWriteCSV_ExplodedOutputReloads(t *testing.T) {
	content := "worker,answer\nbob,`[{\"tag1\": [[\"w3\"]]},{\"tag2\": [[\"w4\"]]}]`\n"
	table, err := read(t, DefaultOptions(), content, "answer")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table, DefaultOptions()))

	reloaded, err := newLoader(t, DefaultOptions()).ReadTable(t.Context(), strings.NewReader(buf.String()))
	require.NoError(t, err)
	cells, ok := reloaded.Column("answer")
	require.True(t, ok)
	assert.Equal(t, []model.Cell{
		model.TextCell(`{"tag1": [["w3"]]}`),
		model.TextCell(`{"tag2": [["w4"]]}`),
	}, cells)
}

func TestWriteCSV_InvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Delimiter = opts.Quote

	err := WriteCSV(&bytes.Buffer{}, sampleTable(), opts)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestWriteJSONLines(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteJSONLines(&buf, sampleTable(), ""))

	assert.Equal(t,
		`{"worker":"alice","answer":"{\"tag1\": [[\"w1\", \"w2\"]]}"}`+"\n"+
			`{"worker":"b`+"`"+`ob","answer":null}`+"\n",
		buf.String())
}

func TestWriteJSONLines_IndexField(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteJSONLines(&buf, sampleTable(), "row"))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], `{"row":0,"worker":"alice"`))
	assert.True(t, strings.HasPrefix(lines[1], `{"row":1,`))
}

func TestWriteJSONLines_IndexFieldCollision(t *testing.T) {
	err := WriteJSONLines(&bytes.Buffer{}, sampleTable(), "worker")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestWithIndexColumn(t *testing.T) {
	table, err := WithIndexColumn(sampleTable(), "row")
	require.NoError(t, err)

	assert.Equal(t, []string{"row", "worker", "answer"}, table.Columns)
	assert.Equal(t, model.TextCell("1"), table.Rows[1].Cells[0])
	assert.Equal(t, model.NullCell(), table.Rows[1].Cells[2])

	_, err = WithIndexColumn(sampleTable(), "answer")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}
