package handlers

import (
	"io"
	"net/http"

	"github.com/agentskills/registry/internal/apierror"
	"github.com/agentskills/registry/internal/authn"
	"github.com/agentskills/registry/internal/registry"
)

// PublishHandler handles POST /skills/publish.
type PublishHandler struct {
	*Base
	MaxBundleSize       int64
	MaxDecompressedSize int64
}

// NewPublishHandler builds a PublishHandler.
func NewPublishHandler(base *Base, maxBundleSize, maxDecompressedSize int64) *PublishHandler {
	return &PublishHandler{Base: base, MaxBundleSize: maxBundleSize, MaxDecompressedSize: maxDecompressedSize}
}

// HandlePublish implements POST /skills/publish: auth, size check, then
// delegates steps 3-15 to registry.Service.Publish.
func (h *PublishHandler) HandlePublish(w ErrorResponseWriter, r *http.Request) {
	caller, ok := authn.FromContext(r.Context())
	if !ok {
		w.RespondWithError(apierror.NewUnauthorizedError("missing or invalid token", nil))
		return
	}

	// The multipart body carries boundaries, headers, and the providers/
	// category form fields on top of the file content, so the outer cap
	// needs headroom beyond MaxBundleSize itself — sized to the same
	// 32<<20 memory threshold ParseMultipartForm uses below. The
	// authoritative limit is the content-only check on raw below.
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBundleSize+32<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		w.RespondWithError(apierror.NewPayloadTooLargeError("bundle exceeds the maximum accepted size", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		w.RespondWithError(apierror.NewBadRequestError("multipart field \"file\" is required", err))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, h.MaxBundleSize+1))
	if err != nil {
		w.RespondWithError(apierror.NewBadRequestError("failed to read uploaded bundle", err))
		return
	}
	if int64(len(raw)) > h.MaxBundleSize {
		w.RespondWithError(apierror.NewPayloadTooLargeError("bundle exceeds the maximum accepted size", nil))
		return
	}

	in := registry.PublishInput{
		Raw:               raw,
		ProvidersOverride: r.FormValue("providers"),
		CategoryName:      r.FormValue("category"),
		MaxDecompressed:   h.MaxDecompressedSize,
	}

	result, err := h.Registry.Publish(r.Context(), caller, in)
	if err != nil {
		w.RespondWithError(err)
		return
	}

	RespondWithJSON(w, http.StatusCreated, map[string]any{
		"name":         result.Name,
		"version":      result.Version,
		"checksum":     "sha256:" + result.Checksum,
		"published_at": result.PublishedAt,
		"providers":    result.Providers,
	})
}
