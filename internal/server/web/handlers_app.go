package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/nimbly/internal/api"
	"github.com/and161185/nimbly/internal/errs"
	"github.com/and161185/nimbly/internal/model"
	"github.com/and161185/nimbly/internal/present"
	"github.com/and161185/nimbly/internal/service"
)

// fail reports an API error. A 401 evicts the token and sends the browser to
// the sign-in page; anything else renders the error page.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	err = browserFrom(r.Context()).guard.Observe(r.Context(), err)
	if errors.Is(err, errs.ErrUnauthenticated) {
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return
	}
	status := http.StatusBadGateway
	if errors.Is(err, errs.ErrValidation) {
		status = http.StatusBadRequest
	} else if apiErr, ok := api.AsError(err); ok && apiErr.Status == http.StatusNotFound {
		status = http.StatusNotFound
	}
	if r.Context().Err() == nil {
		s.log.Info("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.render(w, r, status, "error", "Something went wrong", service.UserMessage(err))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if browserFrom(r.Context()).validator.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "home", "Nimbly", nil)
}

type dashboardView struct {
	Greeting string
	Name     string
	Recent   []present.Row
	Total    int
}

const dashboardRecent = 5

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFrom(r.Context())
	page, err := browserFrom(r.Context()).receipts.List(r.Context(), 0, dashboardRecent)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	name, _, _ := strings.Cut(u.Email, "@")
	s.render(w, r, http.StatusOK, "dashboard", "Dashboard", dashboardView{
		Greeting: present.Greeting(s.clock().Hour()),
		Name:     name,
		Recent:   present.ReceiptRows(page.Receipts),
		Total:    page.Total,
	})
}

type receiptsView struct {
	Rows       []present.Row
	Total      int
	Offset     int
	Limit      int
	PrevOffset int
	NextOffset int
	HasPrev    bool
	HasNext    bool
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, err := browserFrom(r.Context()).receipts.List(r.Context(), offset, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v := receiptsView{
		Rows:   present.ReceiptRows(page.Receipts),
		Total:  page.Total,
		Offset: page.Offset,
		Limit:  page.Limit,
	}
	if v.Limit <= 0 {
		v.Limit = service.DefaultPageLimit
	}
	v.HasPrev = v.Offset > 0
	v.PrevOffset = max(0, v.Offset-v.Limit)
	v.NextOffset = v.Offset + len(page.Receipts)
	v.HasNext = v.NextOffset < v.Total
	s.render(w, r, http.StatusOK, "receipts", "Receipts", v)
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	d, err := browserFrom(r.Context()).receipts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "receipt", present.StoreName(d.StoreName), d)
}

type uploadView struct {
	Error string
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "upload", "Upload receipt", uploadView{})
}

// multipart overhead allowed on top of the file itself
const uploadSlack = 1 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadBytes+uploadSlack)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		msg := "Please choose a file to upload."
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			msg = "File size must be less than 10MB."
		}
		s.render(w, r, http.StatusBadRequest, "upload", "Upload receipt", uploadView{Error: msg})
		return
	}
	defer f.Close()

	res, err := browserFrom(r.Context()).receipts.Upload(r.Context(), hdr.Filename, f)
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			s.render(w, r, http.StatusBadRequest, "upload", "Upload receipt", uploadView{Error: service.UserMessage(err)})
			return
		}
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/receipts/"+url.PathEscape(res.ReceiptID), http.StatusSeeOther)
}

type insightsView struct {
	Insights []model.Insight
	Message  string
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	list, err := browserFrom(r.Context()).receipts.Insights(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v := insightsView{Insights: list.Insights}
	if list.Message != nil {
		v.Message = *list.Message
	}
	s.render(w, r, http.StatusOK, "insights", "Insights", v)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "profile", "Profile", nil)
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	if _, err := browserFrom(r.Context()).prefs.ToggleTheme(r.Context()); err != nil {
		s.log.Warn("toggle theme", zap.Error(err))
	}
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

func (s *Server) handleToggleSidebar(w http.ResponseWriter, r *http.Request) {
	if _, err := browserFrom(r.Context()).prefs.ToggleSidebar(r.Context()); err != nil {
		s.log.Warn("toggle sidebar", zap.Error(err))
	}
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

// backTo returns the local path named by the "next" form field, or "/".
// Browsers drop control characters and treat a backslash as a slash, so any
// of those can turn a path into a host.
func backTo(r *http.Request) string {
	next := r.PostFormValue("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.ContainsRune(next, '\\') {
		return "/"
	}
	for _, c := range next {
		if c < 0x20 || c == 0x7f {
			return "/"
		}
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return "/"
	}
	return next
}
