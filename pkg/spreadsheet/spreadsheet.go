package spreadsheet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/headers"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/storage"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/osmaviation/spreadsheet"

// DefaultSheetName names the blank sheet of a created workbook. Store drops
// a sheet with this name whenever the workbook holds another one.
const DefaultSheetName = "Worksheet"

// Service opens, creates and persists one workbook at a time. It is not safe
// for concurrent use; give each goroutine its own Service.
type Service struct {
	disks      *storage.Manager
	log        *zap.Logger
	tracer     trace.Tracer
	normalizer *headers.Normalizer
	extract    ExtractOptions

	file     *excelize.File
	writer   Writer
	filename string
}

// New returns a Service persisting to the disks registered in disks.
func New(disks *storage.Manager, opts Options) *Service {
	if disks == nil {
		disks = storage.NewManager()
	}
	log := opts.logger()
	return &Service{
		disks:  disks,
		log:    log,
		tracer: otel.Tracer(tracerName),
		normalizer: &headers.Normalizer{
			Cache:  opts.Cache,
			TTL:    opts.CacheTTL,
			Logger: log,
		},
		extract: opts.Extract,
	}
}

// Create starts a fresh workbook for filename and hands fn an editor over it.
// The writer is chosen from the extension: .xls gets the legacy writer,
// anything else Open XML. Use StoreAs to write another format.
func (s *Service) Create(ctx context.Context, filename string, fn func(*Editor) error) (err error) {
	_, span := s.start(ctx, "create", "", filename)
	defer func() { finish(span, err) }()

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), DefaultSheetName); err != nil {
		_ = f.Close()
		return opError("create", "", filename, err)
	}
	w, err := NewWriter(f, createFormat(filename))
	if err != nil {
		_ = f.Close()
		return opError("create", "", filename, err)
	}
	s.replace(f, w, filename)

	if err := s.edit(fn); err != nil {
		return opError("create", "", filename, err)
	}
	s.log.Debug("workbook created", zap.String("filename", filename), zap.String("format", string(w.Format())))
	return nil
}

// Load reads filename fully into memory and hands fn an editor over it. An
// empty disk reads filename from the local file system. A later Store writes
// the same format back.
func (s *Service) Load(ctx context.Context, filename, disk string, fn func(*Editor) error) (err error) {
	ctx, span := s.start(ctx, "load", disk, filename)
	defer func() { finish(span, err) }()
	started := time.Now()

	format, err := DetectFormat(filename)
	if err != nil {
		return opError("load", disk, filename, err)
	}
	data, err := s.fetch(ctx, disk, filename)
	if err != nil {
		return opError("load", disk, filename, err)
	}
	f, err := openWorkbook(format, data)
	if err != nil {
		return opError("load", disk, filename, err)
	}
	if format.IsOpenXML() {
		f.SetActiveSheet(0)
	}
	w, err := NewWriter(f, format)
	if err != nil {
		_ = f.Close()
		return opError("load", disk, filename, err)
	}
	s.replace(f, w, filename)

	s.log.Debug("workbook loaded",
		zap.String("disk", disk),
		zap.String("filename", filename),
		zap.Int("sheets", f.SheetCount),
		zap.Duration("elapsed", time.Since(started)))

	if err := s.edit(fn); err != nil {
		return opError("load", disk, filename, err)
	}
	return nil
}

// Read opens the local file filename with a format specific Reader and
// passes it to fn. The Service's workbook is left untouched.
func (s *Service) Read(ctx context.Context, filename string, fn func(Reader) error) error {
	return s.ReadFrom(ctx, "", filename, fn)
}

// ReadFrom is Read against a named disk.
func (s *Service) ReadFrom(ctx context.Context, disk, filename string, fn func(Reader) error) (err error) {
	ctx, span := s.start(ctx, "read", disk, filename)
	defer func() { finish(span, err) }()

	format, err := DetectFormat(filename)
	if err != nil {
		return opError("read", disk, filename, err)
	}
	data, err := s.fetch(ctx, disk, filename)
	if err != nil {
		return opError("read", disk, filename, err)
	}
	r, err := openReaderBytes(format, data)
	if err != nil {
		return opError("read", disk, filename, err)
	}
	defer r.Close()

	s.filename = filename
	if fn == nil {
		return nil
	}
	return opError("read", disk, filename, fn(r))
}

// Store writes the workbook to disk under filename, or under the last used
// filename when it is empty, with the writer chosen by Create or Load. The
// encoded bytes stream straight into the disk.
func (s *Service) Store(ctx context.Context, disk, filename string) error {
	return s.store(ctx, "store", disk, filename, func() (Writer, error) {
		return s.writer, nil
	})
}

// StoreAs is Store with an explicit output format. On success the new writer
// replaces the current one, so later Stores keep the format.
func (s *Service) StoreAs(ctx context.Context, disk, filename string, format Format) error {
	return s.store(ctx, "store_as", disk, filename, func() (Writer, error) {
		return NewWriter(s.file, format)
	})
}

func (s *Service) store(ctx context.Context, op, disk, filename string, writer func() (Writer, error)) (err error) {
	if filename == "" {
		filename = s.filename
	}
	ctx, span := s.start(ctx, op, disk, filename)
	defer func() { finish(span, err) }()
	started := time.Now()

	if s.file == nil {
		return opError(op, disk, filename, ErrNoWorkbook)
	}
	if filename == "" {
		return opError(op, disk, filename, fmt.Errorf("filename is required"))
	}
	d, err := s.disks.Disk(disk)
	if err != nil {
		return opError(op, disk, filename, err)
	}
	w, err := writer()
	if err != nil {
		return opError(op, disk, filename, err)
	}

	if err := dropDefaultSheet(s.file); err != nil {
		return opError(op, disk, filename, err)
	}
	if s.file.SheetCount > 0 {
		s.file.SetActiveSheet(0)
	}

	if err := stream(ctx, w, d, filename); err != nil {
		return opError(op, disk, filename, err)
	}
	s.writer = w
	s.filename = filename

	s.log.Info("workbook stored",
		zap.String("disk", disk),
		zap.String("filename", filename),
		zap.String("format", string(w.Format())),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

// Filename returns the filename last used by Create, Load, Read or Store.
func (s *Service) Filename() string {
	return s.filename
}

// Workbook returns the current workbook, or nil before Create or Load.
func (s *Service) Workbook() *excelize.File {
	return s.file
}

// Associate maps the rows after the first onto the first row's normalized
// headings, memoizing normalization through the configured cache.
func (s *Service) Associate(ctx context.Context, rows [][]string) headers.Result[string] {
	return headers.AssociateWith(rows, s.normalizer.Func(ctx))
}

// Close releases the current workbook.
func (s *Service) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file, s.writer = nil, nil
	return err
}

func (s *Service) replace(f *excelize.File, w Writer, filename string) {
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			s.log.Warn("close previous workbook", zap.Error(err))
		}
	}
	s.file, s.writer, s.filename = f, w, filename
}

func (s *Service) edit(fn func(*Editor) error) error {
	if fn == nil {
		return nil
	}
	e := newEditor(s.file)
	if err := fn(e); err != nil {
		return err
	}
	return e.Err()
}

// fetch reads filename from disk, or from the local file system when disk is empty.
func (s *Service) fetch(ctx context.Context, disk, filename string) ([]byte, error) {
	if disk == "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(filename)
	}
	d, err := s.disks.Disk(disk)
	if err != nil {
		return nil, err
	}
	return storage.Get(ctx, d, filename)
}

func (s *Service) start(ctx context.Context, op, disk, filename string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "spreadsheet."+op, trace.WithAttributes(
		attribute.String("spreadsheet.disk", disk),
		attribute.String("spreadsheet.filename", filename),
	))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func openWorkbook(format Format, data []byte) (*excelize.File, error) {
	if format.IsOpenXML() {
		return excelize.OpenReader(bytes.NewReader(data))
	}
	r, err := openReaderBytes(format, data)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return toWorkbook(r)
}

func dropDefaultSheet(f *excelize.File) error {
	idx, err := f.GetSheetIndex(DefaultSheetName)
	if err != nil || idx == -1 || f.SheetCount < 2 {
		return err
	}
	return f.DeleteSheet(DefaultSheetName)
}

// stream pipes the writer output into d.Put so the encoded workbook never
// touches a temp file. Whichever side fails closes the pipe for the other.
func stream(ctx context.Context, w Writer, d storage.Disk, filename string) error {
	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := w.WriteTo(pw)
		pw.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		err := d.Put(gctx, filename, pr)
		pr.CloseWithError(err)
		return err
	})
	return g.Wait()
}
