package patient

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/patreg/patreg/internal/apperr"
	"github.com/patreg/patreg/internal/platform/notification"
	"github.com/patreg/patreg/internal/platform/storage"
	"github.com/patreg/patreg/pkg/pagination"
)

type Handler struct {
	svc      *Service
	notifier notification.Sender
	logger   zerolog.Logger
}

func NewHandler(svc *Service, notifier notification.Sender, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, notifier: notifier, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id", h.ReplacePatient)
	api.PATCH("/patients/:id", h.PatchPatient)
	api.DELETE("/patients/:id", h.DeletePatient)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.DuplicateResource:
		return http.StatusConflict
	case apperr.InvalidPayload:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders any error as the JSON error envelope. Untagged errors
// become opaque 500s; their detail goes to the log, not the client.
func (h *Handler) writeError(c echo.Context, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		h.logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
	}
	return c.JSON(statusFor(kind), errorEnvelope{Error: errorBody{
		Code:    kind.Code(),
		Message: apperr.MessageOf(err),
	}})
}

// uploadFromForm opens the document_photo part, if present. The returned
// close func must be called after the service is done streaming.
func uploadFromForm(c echo.Context) (*storage.Upload, func(), error) {
	fh, err := c.FormFile("document_photo")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, func() {}, nil
		}
		return nil, nil, apperr.New(apperr.InvalidPayload, "document_photo is not a valid file upload")
	}
	return openUpload(fh)
}

func openUpload(fh *multipart.FileHeader) (*storage.Upload, func(), error) {
	src, err := fh.Open()
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, "open multipart file", err)
	}
	return &storage.Upload{
		Reader:      src,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
	}, func() { _ = src.Close() }, nil
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var payload CreatePayload
	if err := c.Bind(&payload); err != nil {
		return h.writeError(c, apperr.New(apperr.InvalidPayload, "malformed request payload"))
	}
	if err := payload.Validate(); err != nil {
		return h.writeError(c, err)
	}

	upload, closeUpload, err := uploadFromForm(c)
	if err != nil {
		return h.writeError(c, err)
	}
	if upload == nil {
		return h.writeError(c, apperr.New(apperr.InvalidPayload, "document_photo is required"))
	}
	defer closeUpload()

	p, err := h.svc.Create(c.Request().Context(), payload, *upload)
	if err != nil {
		return h.writeError(c, err)
	}

	h.sendConfirmation(p)

	return c.JSON(http.StatusCreated, p)
}

// sendConfirmation fires the registration email in the background; delivery
// failures are logged and never surface to the client.
func (h *Handler) sendConfirmation(p *Patient) {
	go func(email, name string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		body := fmt.Sprintf("Hello %s, your patient registration was successful.", name)
		if err := h.notifier.Send(ctx, email, name, "Registration confirmed", body); err != nil {
			h.logger.Error().Err(err).Str("email", email).Msg("confirmation email failed")
		}
	}(p.Email, p.FullName)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg, err := pagination.FromContext(c)
	if err != nil {
		return h.writeError(c, err)
	}
	items, total, err := h.svc.List(c.Request().Context(), pg.Page, pg.Size)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ReplacePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	var payload CreatePayload
	if err := c.Bind(&payload); err != nil {
		return h.writeError(c, apperr.New(apperr.InvalidPayload, "malformed request payload"))
	}
	if err := payload.Validate(); err != nil {
		return h.writeError(c, err)
	}

	upload, closeUpload, err := uploadFromForm(c)
	if err != nil {
		return h.writeError(c, err)
	}
	defer closeUpload()

	p, err := h.svc.Replace(c.Request().Context(), id, payload, upload)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) PatchPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return h.writeError(c, err)
	}

	payload := patchFromForm(c)
	if err := payload.Validate(); err != nil {
		return h.writeError(c, err)
	}

	upload, closeUpload, err := uploadFromForm(c)
	if err != nil {
		return h.writeError(c, err)
	}
	defer closeUpload()

	p, err := h.svc.Patch(c.Request().Context(), id, payload, upload)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// patchFromForm treats a form field as set only when the part is present,
// so an absent field and an explicitly empty one are distinguishable.
func patchFromForm(c echo.Context) PatchPayload {
	var payload PatchPayload
	form, err := c.MultipartForm()
	if err != nil {
		return payload
	}
	if v, ok := form.Value["full_name"]; ok && len(v) > 0 {
		payload.FullName = &v[0]
	}
	if v, ok := form.Value["email"]; ok && len(v) > 0 {
		payload.Email = &v[0]
	}
	if v, ok := form.Value["phone_number"]; ok && len(v) > 0 {
		payload.PhoneNumber = &v[0]
	}
	return payload
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return h.writeError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return h.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.InvalidPayload, "invalid patient id")
	}
	return id, nil
}
