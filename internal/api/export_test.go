package api

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportItems(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	require.Equal(t, http.StatusCreated, doRequest(t, srv, http.MethodPost, "/api/items", `{"name":"Milk","description":"2L"}`).Code)
	require.Equal(t, http.StatusCreated, doRequest(t, srv, http.MethodPost, "/api/items", `{"name":"Bread"}`).Code)

	rr := doRequest(t, srv, http.MethodGet, "/api/items/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "items.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Name", "Description"}, rows[0])
	assert.Equal(t, []string{"1", "Milk", "2L"}, rows[1])
	require.GreaterOrEqual(t, len(rows[2]), 2)
	assert.Equal(t, []string{"2", "Bread"}, rows[2][:2])
}

func TestExportItems_Empty(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := doRequest(t, srv, http.MethodGet, "/api/items/export", "")
	require.Equal(t, http.StatusOK, rr.Code)

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ID", "Name", "Description"}}, rows)
}
