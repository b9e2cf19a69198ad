package service

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/and161185/nimbly/internal/model"
)

// Receipt upload and listing limits.
const (
	MaxUploadBytes   = 10 << 20
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

var uploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
	"text/plain":      true,
}

// ReceiptsAPI is the part of the backend client the receipt views need.
type ReceiptsAPI interface {
	UploadReceipt(ctx context.Context, filename string, r io.Reader) (*model.UploadResult, error)
	ListReceipts(ctx context.Context, offset, limit int) (*model.ReceiptPage, error)
	GetReceipt(ctx context.Context, id string) (*model.ReceiptDetail, error)
	ListInsights(ctx context.Context) (*model.InsightList, error)
}

// Receipts backs the dashboard, receipts, upload and insights views.
type Receipts struct {
	api ReceiptsAPI
}

// NewReceipts constructs Receipts.
func NewReceipts(api ReceiptsAPI) *Receipts {
	return &Receipts{api: api}
}

// Upload validates the file locally and sends it to the backend.
func (s *Receipts) Upload(ctx context.Context, filename string, r io.Reader) (*model.UploadResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, invalid("Please choose a file to upload.")
	}
	if len(data) > MaxUploadBytes {
		return nil, invalid("File size must be less than 10MB.")
	}
	if !uploadTypes[UploadType(filename, data)] {
		return nil, invalid("Receipt must be JPEG, PNG, PDF, or text file.")
	}
	return s.api.UploadReceipt(ctx, filename, bytes.NewReader(data))
}

// UploadType returns the media type of an upload: from the file extension
// when known, otherwise sniffed from the content.
func UploadType(filename string, head []byte) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if t == "" {
		t = http.DetectContentType(head)
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}

// List returns one page of receipts. A non-positive limit means the default;
// limits above MaxPageLimit are capped.
func (s *Receipts) List(ctx context.Context, offset, limit int) (*model.ReceiptPage, error) {
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit <= 0:
		limit = DefaultPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}
	return s.api.ListReceipts(ctx, offset, limit)
}

// Get returns one receipt with its line items.
func (s *Receipts) Get(ctx context.Context, id string) (*model.ReceiptDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("Receipt id is required.")
	}
	return s.api.GetReceipt(ctx, id)
}

// Insights returns the computed purchase insights.
func (s *Receipts) Insights(ctx context.Context) (*model.InsightList, error) {
	return s.api.ListInsights(ctx)
}
