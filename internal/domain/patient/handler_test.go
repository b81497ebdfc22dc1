package patient

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/patreg/patreg/internal/domain/document"
	"github.com/patreg/patreg/internal/platform/notification"
	"github.com/patreg/patreg/internal/platform/storage"
)

type handlerFixture struct {
	e        *echo.Echo
	patients *MemRepo
	files    *document.MemRepo
	store    *storage.DiskStore
	notifier *notification.MockSender
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	store, err := storage.NewDiskStore(t.TempDir(), 1024, 5*1024*1024)
	if err != nil {
		t.Fatalf("disk store: %v", err)
	}
	patients := NewMemRepo()
	files := document.NewMemRepo()
	notifier := &notification.MockSender{}
	svc := NewService(patients, files, store, &stubBeginner{}, zerolog.Nop())
	h := NewHandler(svc, notifier, zerolog.Nop())

	e := echo.New()
	h.RegisterRoutes(e.Group("/api/v1"))
	return &handlerFixture{e: e, patients: patients, files: files, store: store, notifier: notifier}
}

type formFile struct {
	fieldName   string
	filename    string
	contentType string
	content     []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, file *formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if file != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition",
			`form-data; name="`+file.fieldName+`"; filename="`+file.filename+`"`)
		hdr.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(file.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{
		"full_name":    "Ada Lovelace",
		"email":        "ada@example.com",
		"phone_number": "+12025550101",
	}
}

func photo() *formFile {
	return &formFile{
		fieldName:   "document_photo",
		filename:    "photo.png",
		contentType: "image/png",
		content:     []byte("fake png bytes"),
	}
}

func (f *handlerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error.Code, body.Error.Message
}

func TestCreatePatient_Success(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(multipartRequest(t, http.MethodPost, "/api/v1/patients", validFields(), photo()))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var p Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Email != "ada@example.com" {
		t.Errorf("email = %q", p.Email)
	}
	if p.DocumentFile == nil || p.DocumentFile.SizeBytes != int64(len(photo().content)) {
		t.Errorf("document file = %+v", p.DocumentFile)
	}

	// The confirmation email goes out on a background goroutine.
	deadline := time.Now().Add(2 * time.Second)
	for len(f.notifier.Calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	calls := f.notifier.Calls()
	if len(calls) != 1 {
		t.Fatalf("notifications = %d, want 1", len(calls))
	}
	if calls[0].ToEmail != "ada@example.com" {
		t.Errorf("notification recipient = %q", calls[0].ToEmail)
	}
	if !strings.Contains(calls[0].Body, "Ada Lovelace") {
		t.Errorf("notification body = %q", calls[0].Body)
	}
}

func TestCreatePatient_MissingPhoto(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(multipartRequest(t, http.MethodPost, "/api/v1/patients", validFields(), nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	code, _ := decodeError(t, rec)
	if code != "INVALID_PAYLOAD" {
		t.Errorf("code = %q", code)
	}
}

func TestCreatePatient_InvalidEmail(t *testing.T) {
	f := newHandlerFixture(t)
	fields := validFields()
	fields["email"] = "not-an-email"

	rec := f.do(multipartRequest(t, http.MethodPost, "/api/v1/patients", fields, photo()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCreatePatient_DuplicateEmailConflict(t *testing.T) {
	f := newHandlerFixture(t)

	if rec := f.do(multipartRequest(t, http.MethodPost, "/api/v1/patients", validFields(), photo())); rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rec.Code)
	}
	rec := f.do(multipartRequest(t, http.MethodPost, "/api/v1/patients", validFields(), photo()))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	code, msg := decodeError(t, rec)
	if code != "DUPLICATE_RESOURCE" {
		t.Errorf("code = %q", code)
	}
	if !strings.Contains(msg, "already exists") {
		t.Errorf("message = %q", msg)
	}
}

func TestCreatePatient_WrongFileType(t *testing.T) {
	f := newHandlerFixture(t)
	file := &formFile{
		fieldName:   "document_photo",
		filename:    "doc.pdf",
		contentType: "application/pdf",
		content:     []byte("%PDF"),
	}

	rec := f.do(multipartRequest(t, http.MethodPost, "/api/v1/patients", validFields(), file))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	_, msg := decodeError(t, rec)
	if !strings.Contains(msg, "PNG or JPG") {
		t.Errorf("message = %q", msg)
	}
}

func TestGetPatient_NotFound(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/patients/2f0c9161-3897-4d73-9553-10fde976b398", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	code, _ := decodeError(t, rec)
	if code != "NOT_FOUND" {
		t.Errorf("code = %q", code)
	}
}

func TestGetPatient_BadID(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/patients/not-a-uuid", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListPatients_PaginationEnvelope(t *testing.T) {
	f := newHandlerFixture(t)

	emails := []string{"a@example.com", "b@example.com", "c@example.com"}
	for _, email := range emails {
		fields := validFields()
		fields["email"] = email
		if rec := f.do(multipartRequest(t, http.MethodPost, "/api/v1/patients", fields, photo())); rec.Code != http.StatusCreated {
			t.Fatalf("create %s status = %d", email, rec.Code)
		}
	}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/patients?page=2&size=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Data  []Patient `json:"data"`
		Total int       `json:"total"`
		Page  int       `json:"page"`
		Size  int       `json:"size"`
		Pages int       `json:"pages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 3 || len(body.Data) != 1 || body.Page != 2 || body.Pages != 2 {
		t.Errorf("envelope = %+v", body)
	}
}

func TestListPatients_RejectsBadPagination(t *testing.T) {
	f := newHandlerFixture(t)

	for _, query := range []string{"page=0", "size=0", "size=101", "page=abc"} {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/patients?"+query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", query, rec.Code)
		}
	}
}

func TestReplacePatient_UpdatesFields(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(multipartRequest(t, http.MethodPost, "/api/v1/patients", validFields(), photo()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	fields := map[string]string{
		"full_name":    "Ada King",
		"email":        "countess@example.com",
		"phone_number": "+12025550199",
	}
	rec = f.do(multipartRequest(t, http.MethodPut, "/api/v1/patients/"+created.ID.String(), fields, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.FullName != "Ada King" || updated.Email != "countess@example.com" {
		t.Errorf("updated = %+v", updated)
	}
}

func TestPatchPatient_EmptyRejected(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(multipartRequest(t, http.MethodPost, "/api/v1/patients", validFields(), photo()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = f.do(multipartRequest(t, http.MethodPatch, "/api/v1/patients/"+created.ID.String(), nil, nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestPatchPatient_SingleField(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(multipartRequest(t, http.MethodPost, "/api/v1/patients", validFields(), photo()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = f.do(multipartRequest(t, http.MethodPatch, "/api/v1/patients/"+created.ID.String(),
		map[string]string{"phone_number": "+441632960000"}, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.PhoneNumber != "+441632960000" {
		t.Errorf("phone = %q", updated.PhoneNumber)
	}
	if updated.FullName != "Ada Lovelace" {
		t.Errorf("full name changed: %q", updated.FullName)
	}
}

func TestDeletePatient_NoContent(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(multipartRequest(t, http.MethodPost, "/api/v1/patients", validFields(), photo()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = f.do(httptest.NewRequest(http.MethodDelete, "/api/v1/patients/"+created.ID.String(), nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+created.ID.String(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status after delete = %d", rec.Code)
	}
}
