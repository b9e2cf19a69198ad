package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/and161185/nimbly/internal/errs"
	"github.com/and161185/nimbly/internal/model"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp creates an account.
func (c *Client) SignUp(ctx context.Context, email, password string) (*model.AuthResult, error) {
	var out model.AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", credentials{email, password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignIn exchanges credentials for a session token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*model.AuthResult, error) {
	var out model.AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/signin", credentials{email, password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestMagicLink asks the backend to email a sign-in link.
func (c *Client) RequestMagicLink(ctx context.Context, email string) (*model.MagicLinkSent, error) {
	var out model.MagicLinkSent
	body := struct {
		Email string `json:"email"`
	}{email}
	if err := c.do(ctx, http.MethodPost, "/api/auth/request-magic-link", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMagicLink exchanges a magic link token for a session token.
func (c *Client) VerifyMagicLink(ctx context.Context, token string) (*model.AuthResult, error) {
	var out model.AuthResult
	path := "/api/auth/verify?token=" + url.QueryEscape(token)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadReceipt sends a receipt file as multipart field "file".
func (c *Client) UploadReceipt(ctx context.Context, filename string, r io.Reader) (*model.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	ctype := mime.TypeByExtension(filepath.Ext(filename))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "file",
		"filename": filepath.Base(filename),
	}))
	h.Set("Content-Type", ctype)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var out model.UploadResult
	if err := c.send(ctx, http.MethodPost, "/api/receipts/upload", &buf, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListReceipts returns one page of the user's receipts.
func (c *Client) ListReceipts(ctx context.Context, offset, limit int) (*model.ReceiptPage, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var out model.ReceiptPage
	if err := c.do(ctx, http.MethodGet, "/api/receipts?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(out.Receipts))
	for _, r := range out.Receipts {
		if _, dup := seen[r.ReceiptID]; dup {
			return nil, fmt.Errorf("%w: duplicate receipt %q", errs.ErrBadResponse, r.ReceiptID)
		}
		seen[r.ReceiptID] = struct{}{}
	}
	return &out, nil
}

// GetReceipt returns a receipt with its line items.
func (c *Client) GetReceipt(ctx context.Context, id string) (*model.ReceiptDetail, error) {
	var out model.ReceiptDetail
	if err := c.do(ctx, http.MethodGet, "/api/receipts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(out.LineItems))
	for _, li := range out.LineItems {
		if li.ID == "" {
			continue
		}
		if _, dup := seen[li.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate line item %q", errs.ErrBadResponse, li.ID)
		}
		seen[li.ID] = struct{}{}
	}
	return &out, nil
}

// ListInsights returns the user's purchase insights.
func (c *Client) ListInsights(ctx context.Context) (*model.InsightList, error) {
	var out model.InsightList
	if err := c.do(ctx, http.MethodGet, "/api/insights", nil, &out); err != nil {
		return nil, err
	}
	for i := range out.Insights {
		out.Insights[i].Type = out.Insights[i].Type.Normalize()
	}
	return &out, nil
}
