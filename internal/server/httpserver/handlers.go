package httpserver

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/inkstudio/internal/common"
	"github.com/dmitrijs2005/inkstudio/internal/logging"
	"github.com/dmitrijs2005/inkstudio/internal/server/models"
	"github.com/dmitrijs2005/inkstudio/internal/server/services"
	"github.com/go-playground/validator/v10"
)

const (
	maxFilesPerUpload = 20
	multipartMemory   = 32 << 20
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type AdminService interface {
	Verifier
	Login(ctx context.Context, email, password string, remember bool) (*services.Session, error)
}

type GalleryService interface {
	Page(ctx context.Context, limit int, cursor string) services.PageResult
	ListAll(ctx context.Context) ([]models.GalleryImage, error)
	Create(ctx context.Context, in services.CreateInput) (*models.GalleryItem, error)
	Update(ctx context.Context, id string, p services.Patch) (*models.GalleryItem, error)
	Reorder(ctx context.Context, ids []string) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) services.BatchResult
	UploadMany(ctx context.Context, files []services.UploadFile, uploader string) services.BatchResult
	Stats(ctx context.Context) (*services.Stats, error)
}

type handlers struct {
	admin         AdminService
	gallery       GalleryService
	logger        logging.Logger
	secure        bool
	uploadMaxSize int64
}

type loginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type loginUser struct {
	Email string `json:"email"`
	UID   string `json:"uid"`
}

type loginResponse struct {
	Message string    `json:"message"`
	User    loginUser `json:"user"`
}

type idsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

type batchResponse struct {
	services.BatchResult
	Failed int    `json:"failed"`
	Error  string `json:"error,omitempty"`
}

// galleryPage serves GET /api/gallery?limit=&lastImageId=. It always answers
// 200; a backend failure is reported inside the body.
func (h *handlers) galleryPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil {
		limit = 0
	}
	writeJSON(w, http.StatusOK, h.gallery.Page(r.Context(), limit, q.Get("lastImageId")))
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	sess, err := h.admin.Login(r.Context(), req.Email, req.Password, req.RememberMe)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	default:
		h.logger.Error(r.Context(), "admin login error", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	setSessionCookie(w, sess.Token, sess.MaxAge, h.secure)
	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		User:    loginUser{Email: sess.Email, UID: sess.UID},
	})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w, h.secure)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

func (h *handlers) listAll(w http.ResponseWriter, r *http.Request) {
	images, err := h.gallery.ListAll(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "admin listing failed", "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": images})
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.gallery.Stats(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "stats failed", "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if acc, ok := AccountFromContext(r.Context()); ok {
		in.CreatedBy = acc.Email
	}

	item, err := h.gallery.Create(r.Context(), in)
	if err != nil {
		h.logger.Warn(r.Context(), "create failed", "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item.View())
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	var p services.Patch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.gallery.Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		h.logger.Warn(r.Context(), "update failed", "id", r.PathValue("id"), "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item.View())
}

func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.gallery.Delete(r.Context(), id); err != nil {
		h.logger.Warn(r.Context(), "delete failed", "id", id, "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Deleted"})
}

func (h *handlers) removeMany(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeJSON(r, &req); err != nil || validate.Struct(req) != nil {
		writeError(w, http.StatusBadRequest, "ids are required")
		return
	}
	h.writeBatch(w, r, h.gallery.DeleteMany(r.Context(), req.IDs))
}

func (h *handlers) reorder(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeJSON(r, &req); err != nil || validate.Struct(req) != nil {
		writeError(w, http.StatusBadRequest, "ids are required")
		return
	}
	if err := h.gallery.Reorder(r.Context(), req.IDs); err != nil {
		h.logger.Warn(r.Context(), "reorder failed", "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Order updated"})
}

// upload accepts multipart form data with one or more "files" parts.
func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxSize*maxFilesPerUpload+(1<<20))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "No files provided")
		return
	}
	if len(headers) > maxFilesPerUpload {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("At most %d files per upload", maxFilesPerUpload))
		return
	}

	files := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid upload")
			return
		}
		defer func(f multipart.File) { _ = f.Close() }(f)

		files = append(files, services.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}

	var uploader string
	if acc, ok := AccountFromContext(r.Context()); ok {
		uploader = acc.Email
	}
	h.writeBatch(w, r, h.gallery.UploadMany(r.Context(), files, uploader))
}

// writeBatch answers 200 when every item succeeded and 207 otherwise.
func (h *handlers) writeBatch(w http.ResponseWriter, r *http.Request, res services.BatchResult) {
	resp := batchResponse{BatchResult: res, Failed: res.Failed()}
	status := http.StatusOK
	if err := res.Err(); err != nil {
		h.logger.Warn(r.Context(), "batch partially failed", "failed", resp.Failed, "total", len(res.Results), "error", err)
		resp.Error = fmt.Sprintf("%d of %d items failed", resp.Failed, len(res.Results))
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, resp)
}
