package handlers

import (
	"errors"
	"net/http"
	"strings"

	"coursebridge/internal/logger"
	"coursebridge/internal/mappings"
	"coursebridge/internal/worker/processors"

	"github.com/gin-gonic/gin"
)

type MappingHandler struct {
	mappings *mappings.Mappings
	resolver processors.CourseResolver
	logger   *logger.Logger
}

func NewMappingHandler(m *mappings.Mappings, resolver processors.CourseResolver, logger *logger.Logger) *MappingHandler {
	return &MappingHandler{
		mappings: m,
		resolver: resolver,
		logger:   logger,
	}
}

type productMapping struct {
	ProductID string `json:"productId" binding:"required"`
	CourseID  string `json:"courseId" binding:"required"`
}

type bundleMapping struct {
	BundleProductID     string   `json:"bundleProductId" binding:"required"`
	ComponentProductIDs []string `json:"componentProductIds" binding:"required,min=1,dive,required"`
}

type bundleNameMapping struct {
	BundleName string `json:"bundleName" binding:"required"`
	CourseID   string `json:"courseId" binding:"required"`
}

// Product mappings

func (h *MappingHandler) ListProducts(c *gin.Context) {
	entries, err := h.mappings.Products.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list product mappings: %v", err)
		respondError(c, http.StatusInternalServerError, msgInternalError)
		return
	}

	data := make([]productMapping, 0, len(entries))
	for _, entry := range entries {
		data = append(data, productMapping{ProductID: entry.Key, CourseID: entry.Value})
	}
	respondData(c, http.StatusOK, data)
}

func (h *MappingHandler) SetProduct(c *gin.Context) {
	var request productMapping
	if !bindMapping(c, &request, "productId and courseId are required") {
		return
	}
	productID := strings.TrimSpace(request.ProductID)
	courseID := strings.TrimSpace(request.CourseID)
	if productID == "" || courseID == "" {
		respondError(c, http.StatusBadRequest, "productId and courseId are required")
		return
	}

	err := h.mappings.Products.Set(c.Request.Context(), productID, courseID)
	h.respondWrite(c, err, "Product mapping saved")
}

func (h *MappingHandler) DeleteProduct(c *gin.Context) {
	err := h.mappings.Products.Remove(c.Request.Context(), c.Param("productId"))
	h.respondWrite(c, err, "Product mapping removed")
}

// Bundle component mappings

func (h *MappingHandler) ListBundles(c *gin.Context) {
	entries, err := h.mappings.Bundles.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list bundle mappings: %v", err)
		respondError(c, http.StatusInternalServerError, msgInternalError)
		return
	}

	data := make([]bundleMapping, 0, len(entries))
	for _, entry := range entries {
		data = append(data, bundleMapping{BundleProductID: entry.Key, ComponentProductIDs: entry.Value})
	}
	respondData(c, http.StatusOK, data)
}

func (h *MappingHandler) SetBundle(c *gin.Context) {
	var request bundleMapping
	if !bindMapping(c, &request, "bundleProductId and a non-empty componentProductIds list are required") {
		return
	}
	bundleID := strings.TrimSpace(request.BundleProductID)
	components := make([]string, 0, len(request.ComponentProductIDs))
	for _, id := range request.ComponentProductIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			respondError(c, http.StatusBadRequest, "componentProductIds must not contain blank ids")
			return
		}
		components = append(components, id)
	}
	if bundleID == "" {
		respondError(c, http.StatusBadRequest, "bundleProductId and a non-empty componentProductIds list are required")
		return
	}

	err := h.mappings.Bundles.Set(c.Request.Context(), bundleID, components)
	h.respondWrite(c, err, "Bundle mapping saved")
}

func (h *MappingHandler) DeleteBundle(c *gin.Context) {
	err := h.mappings.Bundles.Remove(c.Request.Context(), c.Param("bundleProductId"))
	h.respondWrite(c, err, "Bundle mapping removed")
}

// Bundle name mappings

func (h *MappingHandler) ListBundleNames(c *gin.Context) {
	entries, err := h.mappings.BundleNames.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list bundle name mappings: %v", err)
		respondError(c, http.StatusInternalServerError, msgInternalError)
		return
	}

	data := make([]bundleNameMapping, 0, len(entries))
	for _, entry := range entries {
		data = append(data, bundleNameMapping{BundleName: entry.Key, CourseID: entry.Value})
	}
	respondData(c, http.StatusOK, data)
}

func (h *MappingHandler) SetBundleName(c *gin.Context) {
	var request bundleNameMapping
	if !bindMapping(c, &request, "bundleName and courseId are required") {
		return
	}
	courseID := strings.TrimSpace(request.CourseID)
	if mappings.NormalizeBundleName(request.BundleName) == "" || courseID == "" {
		respondError(c, http.StatusBadRequest, "bundleName and courseId are required")
		return
	}

	err := h.mappings.SetBundleName(c.Request.Context(), request.BundleName, courseID)
	h.respondWrite(c, err, "Bundle name mapping saved")
}

// DeleteBundleName takes the name from the path or, for names containing a
// slash, from the name query parameter.
func (h *MappingHandler) DeleteBundleName(c *gin.Context) {
	name := c.Param("bundleName")
	if name == "" {
		name = c.Query("name")
	}
	if strings.TrimSpace(name) == "" {
		respondError(c, http.StatusBadRequest, "name is required")
		return
	}

	err := h.mappings.RemoveBundleName(c.Request.Context(), name)
	h.respondWrite(c, err, "Bundle name mapping removed")
}

// LookupBundleName returns the course mapped to a bundle name.
func (h *MappingHandler) LookupBundleName(c *gin.Context) {
	name := c.Query("name")
	if strings.TrimSpace(name) == "" {
		respondError(c, http.StatusBadRequest, "name is required")
		return
	}

	courseID, ok := h.mappings.FindCourseForBundleName(c.Request.Context(), name)
	if !ok {
		respondError(c, http.StatusNotFound, "No course mapped to this bundle name")
		return
	}
	respondData(c, http.StatusOK, bundleNameMapping{
		BundleName: mappings.NormalizeBundleName(name),
		CourseID:   courseID,
	})
}

// Resolve runs the course resolver without touching the learning platform.
func (h *MappingHandler) Resolve(c *gin.Context) {
	productID := strings.TrimSpace(c.Query("productId"))
	title := c.Query("title")
	if productID == "" && strings.TrimSpace(title) == "" {
		respondError(c, http.StatusBadRequest, "productId or title is required")
		return
	}

	courseID, ok := h.resolver.Resolve(c.Request.Context(), productID, title)
	respondData(c, http.StatusOK, gin.H{
		"productId": productID,
		"title":     title,
		"courseId":  courseID,
		"matched":   ok,
	})
}

func bindMapping(c *gin.Context, request interface{}, message string) bool {
	if err := c.ShouldBindJSON(request); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

// respondWrite reports a store write. Storage failures are logged and hidden
// behind a generic error.
func (h *MappingHandler) respondWrite(c *gin.Context, err error, message string) {
	switch {
	case err == nil:
		respondMessage(c, http.StatusOK, message)
	case errors.Is(err, mappings.ErrEmptyKey), errors.Is(err, mappings.ErrEmptyValue):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Mapping write failed (%s %s): %v", c.Request.Method, c.FullPath(), err)
		respondError(c, http.StatusInternalServerError, msgInternalError)
	}
}
