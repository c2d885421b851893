package courses

import (
	"context"
	"strings"

	"coursebridge/internal/logger"
	"coursebridge/internal/mappings"
)

// bundleMarker is the title fragment that makes a product a bundle candidate.
const bundleMarker = "bundle"

// Source is the part of the mapping stores the resolver reads.
type Source interface {
	CourseForProduct(ctx context.Context, productID string) (string, bool)
	FindCourseForBundleName(ctx context.Context, name string) (string, bool)
	BundleNameEntries(ctx context.Context) []mappings.Entry[string]
}

type Resolver struct {
	source Source
	logger *logger.Logger
}

func NewResolver(source Source, logger *logger.Logger) *Resolver {
	return &Resolver{
		source: source,
		logger: logger,
	}
}

// Resolve maps a product to at most one course. A direct product mapping
// always wins. Otherwise a title mentioning "bundle" is matched against the
// bundle names, exactly first and then by the first stored name contained in
// the title. No match is a normal outcome.
func (r *Resolver) Resolve(ctx context.Context, productID, title string) (string, bool) {
	if productID != "" {
		if courseID, ok := r.source.CourseForProduct(ctx, productID); ok {
			r.logger.Debug("Product %s mapped directly to course %s", productID, courseID)
			return courseID, true
		}
	}

	if !IsBundleTitle(title) {
		return "", false
	}

	normalized := mappings.NormalizeBundleName(title)
	if courseID, ok := r.source.FindCourseForBundleName(ctx, normalized); ok {
		r.logger.Debug("Bundle %q matched course %s exactly", normalized, courseID)
		return courseID, true
	}

	for _, entry := range r.source.BundleNameEntries(ctx) {
		if entry.Key == "" {
			continue
		}
		if strings.Contains(normalized, entry.Key) {
			r.logger.Debug("Bundle %q matched %q, course %s", normalized, entry.Key, entry.Value)
			return entry.Value, true
		}
	}

	r.logger.Debug("Bundle %q has no course mapping", normalized)
	return "", false
}

// IsBundleTitle reports whether a product title marks the product as a bundle.
func IsBundleTitle(title string) bool {
	return title != "" && strings.Contains(strings.ToLower(title), bundleMarker)
}
