package mappings

import (
	"context"
	"strings"

	"coursebridge/internal/logger"
)

// Store names double as file names for FileBackend and as the store column
// for DBBackend.
const (
	ProductCoursesStore   = "product_courses"
	BundleComponentsStore = "bundle_components"
	BundleNamesStore      = "bundle_names"
)

// Mappings groups the three stores the bridge works with.
type Mappings struct {
	// Products maps a product id to a course id.
	Products *Store[string]
	// Bundles maps a bundle product id to its component product ids.
	Bundles *Store[[]string]
	// BundleNames maps a normalized bundle name to a course id.
	BundleNames *Store[string]

	logger *logger.Logger
}

func New(backend Backend, logger *logger.Logger) *Mappings {
	return &Mappings{
		Products:    NewStore[string](ProductCoursesStore, backend, logger),
		Bundles:     NewStore[[]string](BundleComponentsStore, backend, logger),
		BundleNames: NewStore[string](BundleNamesStore, backend, logger),
		logger:      logger,
	}
}

// NormalizeBundleName folds case and trims surrounding whitespace.
func NormalizeBundleName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Reload refreshes all three stores.
func (m *Mappings) Reload(ctx context.Context) error {
	if err := m.Products.Reload(ctx); err != nil {
		return err
	}
	if err := m.Bundles.Reload(ctx); err != nil {
		return err
	}
	return m.BundleNames.Reload(ctx)
}

func (m *Mappings) CourseForProduct(ctx context.Context, productID string) (string, bool) {
	return m.Products.Get(ctx, productID)
}

func (m *Mappings) SetBundleName(ctx context.Context, name, courseID string) error {
	return m.BundleNames.Set(ctx, NormalizeBundleName(name), courseID)
}

func (m *Mappings) RemoveBundleName(ctx context.Context, name string) error {
	return m.BundleNames.Remove(ctx, NormalizeBundleName(name))
}

// FindCourseForBundleName is an exact lookup on the normalized name.
func (m *Mappings) FindCourseForBundleName(ctx context.Context, name string) (string, bool) {
	normalized := NormalizeBundleName(name)
	if normalized == "" {
		return "", false
	}
	return m.BundleNames.Get(ctx, normalized)
}

// BundleNameEntries lists bundle names in insertion order, falling back to
// the held entries when the backend cannot be read.
func (m *Mappings) BundleNameEntries(ctx context.Context) []Entry[string] {
	entries, err := m.BundleNames.List(ctx)
	if err != nil {
		m.logger.Error("Bundle names: using held entries: %v", err)
	}
	return entries
}
