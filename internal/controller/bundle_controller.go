package controller

import (
	"net/http"

	"github.com/datavend/backend/internal/domain/bundle"
)

// BundleController serves the storefront catalog.
type BundleController struct {
	bundleRepo bundle.Repository
}

// NewBundleController creates a new BundleController.
func NewBundleController(bundleRepo bundle.Repository) *BundleController {
	return &BundleController{bundleRepo: bundleRepo}
}

// List handles GET /api/v1/bundles
func (h *BundleController) List(w http.ResponseWriter, r *http.Request) {
	bundles, err := h.bundleRepo.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*BundleResponse, 0, len(bundles))
	for _, b := range bundles {
		resp = append(resp, FromBundle(b))
	}
	writeJSON(w, http.StatusOK, resp)
}
