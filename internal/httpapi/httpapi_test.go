package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/osmaviation/spreadsheet/pkg/spreadsheet"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/storage"
)

const peopleCSV = "First Name,E-Mail!\nAnn,ann@example.com\n"

const peopleJSON = `{"headings":["first_name","e_mail"],"data":[{"first_name":"Ann","e_mail":"ann@example.com"}]}`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mem := storage.NewMemoryDisk()
	require.NoError(t, storage.PutBytes(context.Background(), mem, "people.csv", []byte(peopleCSV)))
	disks := storage.NewManager()
	disks.Register("memory", mem)
	return New(func() *spreadsheet.Service {
		return spreadsheet.New(disks, spreadsheet.Options{})
	}, 1<<20, nil)
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAssociateStored(t *testing.T) {
	rec := do(t, newTestServer(t), httptest.NewRequest(http.MethodGet, "/v1/disks/memory/associate/people.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, peopleJSON, rec.Body.String())
}

func TestAssociateUpload(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"First Name", "E-Mail!"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Ann", "ann@example.com"}))
	var book bytes.Buffer
	_, err := f.WriteTo(&book)
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "people.xlsx")
	require.NoError(t, err)
	_, err = part.Write(book.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/associate?sheet=Sheet1", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := do(t, newTestServer(t), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, peopleJSON, rec.Body.String())
}

func TestAssociateUploadWithoutFile(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("sheet", "Sheet1"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/associate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := do(t, newTestServer(t), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInspect(t *testing.T) {
	rec := do(t, newTestServer(t), httptest.NewRequest(http.MethodGet, "/v1/disks/memory/inspect/people.csv?mode=light", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		BookName   string   `json:"book_name"`
		Format     string   `json:"format"`
		SheetOrder []string `json:"sheet_order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "people.csv", got.BookName)
	assert.Equal(t, "csv", got.Format)
	assert.Equal(t, []string{"Sheet1"}, got.SheetOrder)
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		target string
		status int
	}{
		{"unknown disk", "/v1/disks/s3/associate/people.csv", http.StatusNotFound},
		{"missing file", "/v1/disks/memory/associate/nobody.csv", http.StatusNotFound},
		{"missing sheet", "/v1/disks/memory/associate/people.csv?sheet=Other", http.StatusNotFound},
		{"unsupported format", "/v1/disks/memory/associate/people.txt", http.StatusBadRequest},
		{"invalid mode", "/v1/disks/memory/inspect/people.csv?mode=loud", http.StatusBadRequest},
	}
	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}
