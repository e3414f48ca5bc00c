// Package proxy relays authenticated browser requests to the backend API.
//
// The browser never sees the bearer token: it lives in an HTTP-only cookie
// that the Forwarder turns into an Authorization header.
package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// maxMultipartMemory is how much of a multipart form is kept in memory before
// file parts spill to disk.
const maxMultipartMemory = 32 << 20

// LoginPath is the redirect hint sent when the backend rejects the token.
const LoginPath = "/login"

// Forwarder is an http.Handler mounted under a chi wildcard route such as
// /api/proxy/*. Each request is replayed once against the backend; there are
// no retries.
type Forwarder struct {
	baseURL     string
	tokenCookie string
	secure      bool
	client      *http.Client
	log         *slog.Logger
}

// Options configures a Forwarder.
type Options struct {
	// BaseURL is the backend API root, e.g. https://api.example.com/api.
	BaseURL string
	// TokenCookie names the cookie holding the bearer token. Defaults to "token".
	TokenCookie string
	// SecureCookie marks the cleared cookie Secure.
	SecureCookie bool
	// Client issues the outbound requests. Defaults to http.DefaultClient,
	// which has no timeout.
	Client *http.Client
	Logger *slog.Logger
}

// NewForwarder builds a Forwarder from opts.
func NewForwarder(opts Options) *Forwarder {
	f := &Forwarder{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		tokenCookie: opts.TokenCookie,
		secure:      opts.SecureCookie,
		client:      opts.Client,
		log:         opts.Logger,
	}
	if f.tokenCookie == "" {
		f.tokenCookie = "token"
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	if f.log == nil {
		f.log = slog.Default()
	}
	return f
}

// NewClient returns an *http.Client for the Forwarder. A zero timeout leaves
// the request bounded only by the inbound request context.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// ServeHTTP forwards r to the backend and relays the answer.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := f.token(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	segments, err := pathSegments(chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid destination path")
		return
	}
	if len(segments) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "Missing destination path")
		return
	}

	target, err := url.JoinPath(f.baseURL, segments...)
	if err != nil || !strings.HasPrefix(target, f.baseURL+"/") {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid destination path")
		return
	}
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	body, contentType, err := outboundBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_error", "Failed to build upstream request")
		return
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.WarnContext(ctx, "proxy request failed", "method", r.Method, "target", target, "error", err)
		writeError(w, http.StatusBadGateway, "upstream_error", "Upstream request failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		f.clearToken(w)
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:    errorDetail{Code: "unauthorized", Message: "Unauthorized"},
			Redirect: LoginPath,
		})
		return
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		f.log.WarnContext(ctx, "proxy read failed", "target", target, "error", err)
		writeError(w, http.StatusBadGateway, "upstream_error", "Upstream response unreadable")
		return
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		w.WriteHeader(resp.StatusCode)
		return
	}
	if !json.Valid(payload) {
		f.log.WarnContext(ctx, "proxy got non-JSON response", "target", target, "status", resp.StatusCode)
		writeError(w, http.StatusBadGateway, "upstream_error", "Upstream returned a non-JSON response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	w.Write(payload) //nolint:errcheck
}

func (f *Forwarder) token(r *http.Request) string {
	c, err := r.Cookie(f.tokenCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// clearToken expires the token cookie in the response.
func (f *Forwarder) clearToken(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     f.tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// errDestination rejects a destination path that could climb out of the
// backend base URL.
var errDestination = errors.New("invalid destination path")

// pathSegments splits the wildcard remainder, dropping empty segments.
// Segments are unescaped so url.JoinPath escapes them exactly once. A segment
// that is "." or "..", or that holds an encoded slash or backslash, is rejected.
func pathSegments(rest string) ([]string, error) {
	var out []string
	for _, s := range strings.Split(rest, "/") {
		if s == "" {
			continue
		}
		u, err := url.PathUnescape(s)
		if err != nil {
			return nil, errDestination
		}
		if u == "." || u == ".." || strings.ContainsAny(u, "/\\") {
			return nil, errDestination
		}
		out = append(out, u)
	}
	return out, nil
}

// outboundBody returns the body and content type to send upstream.
// Multipart forms are parsed and re-encoded with a fresh boundary; any other
// body is forwarded byte for byte as JSON.
func outboundBody(r *http.Request) (io.Reader, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", fmt.Errorf("read request body: %w", err)
		}
		return bytes.NewReader(raw), "application/json", nil
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, "", fmt.Errorf("parse multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, values := range r.MultipartForm.Value {
		for _, v := range values {
			if err := mw.WriteField(name, v); err != nil {
				return nil, "", fmt.Errorf("encode form field: %w", err)
			}
		}
	}
	for name, files := range r.MultipartForm.File {
		for _, fh := range files {
			if err := copyFilePart(mw, name, fh); err != nil {
				return nil, "", err
			}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("encode form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func copyFilePart(mw *multipart.Writer, field string, fh *multipart.FileHeader) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open form file: %w", err)
	}
	defer src.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     field,
		"filename": fh.Filename,
	}))
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	dst, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("encode form file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("encode form file: %w", err)
	}
	return nil
}

// errorResponse matches the error body of the rest of the API:
// {"error":{"code":"...","message":"..."}}, plus a login hint on 401.
type errorResponse struct {
	Error    errorDetail `json:"error"`
	Redirect string      `json:"redirect,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
