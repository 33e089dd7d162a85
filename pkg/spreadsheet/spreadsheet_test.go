package spreadsheet

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/cache"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestService(t *testing.T) (*Service, *storage.MemoryDisk) {
	t.Helper()
	mem := storage.NewMemoryDisk()
	disks := storage.NewManager()
	disks.Register("memory", mem)
	svc := New(disks, Options{})
	t.Cleanup(func() { _ = svc.Close() })
	return svc, mem
}

func writePeople(s *Sheet) error {
	if err := s.SetRow(1, "First Name", "E-Mail!"); err != nil {
		return err
	}
	return s.AppendRow("Ann", "ann@example.com")
}

func TestCreateStoreLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	err := svc.Create(ctx, "exports/people.xlsx", func(e *Editor) error {
		return e.Sheet("People", writePeople).
			Sheet("Notes", func(s *Sheet) error { return s.SetCell("B2", 42) }).
			Err()
	})
	require.NoError(t, err)
	assert.Equal(t, "exports/people.xlsx", svc.Filename())
	require.NoError(t, svc.Store(ctx, "memory", ""))

	loaded, _ := newTestService(t)
	loaded.disks = svc.disks
	var sheets []string
	err = loaded.Load(ctx, "exports/people.xlsx", "memory", func(e *Editor) error {
		sheets = e.SheetNames()
		return e.Sheet("People", func(s *Sheet) error {
			v, err := s.Cell("B2")
			assert.Equal(t, "ann@example.com", v)
			return err
		}).Err()
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"People", "Notes"}, sheets)
	assert.Equal(t, 0, loaded.Workbook().GetActiveSheetIndex())
	v, err := loaded.Workbook().GetCellValue("Notes", "B2")
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestStoreKeepsLoneDefaultSheet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	require.NoError(t, svc.Create(ctx, "blank.xlsx", func(e *Editor) error {
		return e.Sheet(DefaultSheetName, func(s *Sheet) error { return s.SetCell("A1", "kept") }).Err()
	}))
	require.NoError(t, svc.Store(ctx, "memory", ""))
	assert.Equal(t, []string{DefaultSheetName}, svc.Workbook().GetSheetList())
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("no workbook", func(t *testing.T) {
		svc, _ := newTestService(t)
		err := svc.Store(ctx, "memory", "x.xlsx")
		assert.ErrorIs(t, err, ErrNoWorkbook)
	})

	t.Run("unknown disk", func(t *testing.T) {
		svc, _ := newTestService(t)
		require.NoError(t, svc.Create(ctx, "x.xlsx", nil))
		err := svc.Store(ctx, "s3", "")
		assert.ErrorIs(t, err, storage.ErrUnknownDisk)

		var opErr *OperationError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, "store", opErr.Op)
		assert.Equal(t, "s3", opErr.Disk)
	})

	t.Run("legacy format", func(t *testing.T) {
		svc, mem := newTestService(t)
		require.NoError(t, svc.Create(ctx, "legacy.xls", func(e *Editor) error {
			return e.Sheet("Data", func(s *Sheet) error { return s.SetCell("A1", 1) }).Err()
		}))
		err := svc.Store(ctx, "memory", "")
		assert.ErrorIs(t, err, ErrLegacyWrite)

		ok, err := mem.Exists(ctx, "legacy.xls")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "legacy.xls", svc.Filename())
	})

	t.Run("disk failure", func(t *testing.T) {
		svc, _ := newTestService(t)
		putErr := errors.New("quota exceeded")
		svc.disks.Register("broken", failingDisk{err: putErr})
		require.NoError(t, svc.Create(ctx, "x.xlsx", nil))

		err := svc.Store(ctx, "broken", "")
		assert.ErrorIs(t, err, putErr)
		assert.NotNil(t, svc.Workbook())
	})
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	err := svc.Load(ctx, "report.pdf", "memory", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	err = svc.Load(ctx, "missing.xlsx", "memory", nil)
	assert.ErrorIs(t, err, storage.ErrNotExist)

	require.NoError(t, storage.PutBytes(ctx, mem, "corrupt.xlsx", []byte("not a zip")))
	err = svc.Load(ctx, "corrupt.xlsx", "memory", nil)
	assert.Error(t, err)
	assert.Nil(t, svc.Workbook())
}

func TestCreatePicksWriterFromExtension(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		filename string
		expected Format
	}{
		{"a.xlsx", FormatXLSX},
		{"b.csv", FormatXLSX},
		{"c.xlsm", FormatXLSX},
		{"d", FormatXLSX},
		{"e.XLS", FormatXLS},
	}
	for _, tt := range tests {
		svc, _ := newTestService(t)
		require.NoError(t, svc.Create(ctx, tt.filename, nil), tt.filename)
		assert.Equal(t, tt.expected, svc.writer.Format(), tt.filename)
	}
}

func TestStoreKeepsWriterWhateverTheExtension(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	require.NoError(t, svc.Create(ctx, "a.xlsx", func(e *Editor) error {
		return e.Sheet("Data", func(s *Sheet) error { return s.SetCell("A1", "v") }).Err()
	}))
	require.NoError(t, svc.Store(ctx, "memory", "a.csv"))

	raw, err := storage.Get(ctx, mem, "a.csv")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("PK")), "expected an Open XML zip, got %q", raw)
	assert.Equal(t, FormatXLSX, svc.writer.Format())
	assert.Equal(t, "a.csv", svc.Filename())
}

func TestStoreAsConvertsAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	require.NoError(t, svc.Create(ctx, "people.xlsx", func(e *Editor) error {
		return e.Sheet("People", writePeople).Err()
	}))
	require.NoError(t, svc.StoreAs(ctx, "memory", "people.csv", FormatCSV))
	assert.Equal(t, FormatCSV, svc.writer.Format())

	raw, err := storage.Get(ctx, mem, "people.csv")
	require.NoError(t, err)
	assert.Equal(t, "First Name,E-Mail!\nAnn,ann@example.com\n", string(raw))

	var rows [][]string
	require.NoError(t, svc.ReadFrom(ctx, "memory", "people.csv", func(r Reader) error {
		assert.Equal(t, FormatCSV, r.Format())
		rows, err = r.Rows(FirstSheet(r))
		return err
	}))
	res := svc.Associate(ctx, rows)
	assert.Equal(t, []string{"first_name", "e_mail"}, res.Headings)
	require.Len(t, res.Data, 1)
	assert.Equal(t, map[string]string{"first_name": "Ann", "e_mail": "ann@example.com"}, res.Data[0].Map())

	// A loaded CSV keeps the CSV writer until converted.
	require.NoError(t, svc.Load(ctx, "people.csv", "memory", nil))
	assert.Equal(t, FormatCSV, svc.writer.Format())
	require.NoError(t, svc.StoreAs(ctx, "memory", "people.xlsx", FormatXLSX))
	assert.Equal(t, "people.xlsx", svc.Filename())

	require.NoError(t, svc.Load(ctx, "people.xlsx", "memory", func(e *Editor) error {
		return e.Sheet("Sheet1", func(s *Sheet) error {
			v, err := s.Cell("A2")
			assert.Equal(t, "Ann", v)
			return err
		}).Err()
	}))
}

func TestStoreAsErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	err := svc.StoreAs(ctx, "memory", "x.csv", FormatCSV)
	assert.ErrorIs(t, err, ErrNoWorkbook)

	require.NoError(t, svc.Create(ctx, "x.xlsx", nil))
	err = svc.StoreAs(ctx, "memory", "x.xls", FormatXLS)
	assert.ErrorIs(t, err, ErrLegacyWrite)
	assert.Equal(t, FormatXLSX, svc.writer.Format())

	err = svc.StoreAs(ctx, "memory", "x.pdf", Format("pdf"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "store_as", opErr.Op)
}

func TestReadLocalFile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"First Name", "E-Mail!"}))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Ann"))
	path := filepath.Join(t.TempDir(), "local.xlsx")
	require.NoError(t, f.SaveAs(path))

	var rows [][]string
	err := svc.Read(ctx, path, func(r Reader) error {
		assert.Equal(t, []string{"Sheet1"}, r.SheetNames())
		return r.EachRow("Sheet1", func(row []string) error {
			rows = append(rows, row)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, path, svc.Filename())
	assert.Nil(t, svc.Workbook())

	res := svc.Associate(ctx, rows)
	require.Len(t, res.Data, 1)
	assert.Equal(t, map[string]string{"first_name": "Ann"}, res.Data[0].Map())

	err = svc.Read(ctx, path, func(r Reader) error {
		_, err := r.Rows("Nope")
		return err
	})
	assert.Error(t, err)
}

func TestEditorKeepsFirstError(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	boom := errors.New("boom")
	calls := 0
	e := newEditor(f).
		Sheet("A", func(*Sheet) error { calls++; return boom }).
		Sheet("B", func(*Sheet) error { calls++; return nil })

	assert.ErrorIs(t, e.Err(), boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"Sheet1", "A"}, e.SheetNames())
}

func TestEditorReusesExistingSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	e := newEditor(f).
		Sheet("Sheet1", func(s *Sheet) error { return s.SetCell("A1", "x") }).
		Sheet("Sheet1", func(s *Sheet) error { return s.SetCell("A2", "y") })
	require.NoError(t, e.Err())
	assert.Equal(t, []string{"Sheet1"}, f.GetSheetList())

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x"}, {"y"}}, rows)
}

func TestAssociateUsesCache(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemory()
	svc := New(storage.NewManager(), Options{Cache: mem, CacheTTL: time.Minute})

	svc.Associate(ctx, [][]string{{"Unit Price"}})

	v, ok, err := mem.Get(ctx, "spreadsheet.header.Unit Price")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "unit_price", string(v))
}

func TestExtract(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	require.NoError(t, svc.Create(ctx, "book.xlsx", func(e *Editor) error {
		return e.Sheet("Data", func(s *Sheet) error {
			if err := s.SetRow(1, "Name", "Age"); err != nil {
				return err
			}
			if err := s.SetRow(2, "Ann", 31); err != nil {
				return err
			}
			return s.SetRow(3, "Bob", 40)
		}).Err()
	}))
	require.NoError(t, svc.Store(ctx, "memory", ""))

	wb, err := svc.Extract(ctx, "memory", "book.xlsx", ExtractOptions{Mode: ModeStandard})
	require.NoError(t, err)
	assert.Equal(t, "book.xlsx", wb.BookName)
	assert.Equal(t, "xlsx", wb.Format)
	assert.Equal(t, []string{"Data"}, wb.SheetOrder)

	sheet := wb.Sheets["Data"]
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, int64(31), sheet.Rows[1].C["2"])
	require.Len(t, sheet.Tables, 1)
	assert.Equal(t, "A1:B3", sheet.Tables[0].Range)
	assert.Equal(t, []string{"name", "age"}, sheet.Tables[0].Headings)
	require.Len(t, sheet.Tables[0].Records, 2)
	age, _ := sheet.Tables[0].Records[1].Get("age")
	assert.Equal(t, "40", age)

	light, err := svc.Extract(ctx, "memory", "book.xlsx", ExtractOptions{Mode: ModeLight})
	require.NoError(t, err)
	assert.Empty(t, light.Sheets["Data"].Tables)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		expected Format
		wantErr  bool
	}{
		{"a.xlsx", FormatXLSX, false},
		{"dir/A.XLSX", FormatXLSX, false},
		{"macro.xlsm", FormatXLSM, false},
		{"old.xls", FormatXLS, false},
		{"data.csv", FormatCSV, false},
		{"notes.txt", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.filename)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnsupportedFormat, tt.filename)
			continue
		}
		require.NoError(t, err, tt.filename)
		assert.Equal(t, tt.expected, got, tt.filename)
	}

	assert.Equal(t, FormatXLSX, createFormat("report"))
	assert.Equal(t, FormatXLSX, createFormat("report.csv"))
	assert.Equal(t, FormatXLS, createFormat("report.xls"))
}

type failingDisk struct{ err error }

func (d failingDisk) Open(context.Context, string) (io.ReadCloser, error) { return nil, d.err }
func (d failingDisk) Put(context.Context, string, io.Reader) error        { return d.err }
func (d failingDisk) Delete(context.Context, string) error                { return d.err }
func (d failingDisk) Exists(context.Context, string) (bool, error)        { return false, d.err }
