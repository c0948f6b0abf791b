package task

// CategoryType buckets categories for the work/life balance metric.
type CategoryType string

const (
	TypeWork CategoryType = "work"
	TypeLife CategoryType = "life"
	// TypeOther collects unknown types and dangling category references.
	TypeOther CategoryType = "other"
)

// Bucket maps any stored type onto the closed set work, life, other.
func (c CategoryType) Bucket() CategoryType {
	switch c {
	case TypeWork, TypeLife:
		return c
	}
	return TypeOther
}

// FallbackCategoryID is shown for tasks whose category no longer resolves.
const FallbackCategoryID = "general"

// Category is a label with presentation metadata.
type Category struct {
	ID    string       `json:"id" yaml:"id"`
	Label string       `json:"label" yaml:"label"`
	Color string       `json:"color" yaml:"color"`
	Type  CategoryType `json:"type" yaml:"type"`
}

// FallbackCategory is the display stand-in for dangling references.
var FallbackCategory = Category{
	ID:    FallbackCategoryID,
	Label: "General",
	Color: "245",
	Type:  TypeOther,
}

// FindCategory returns the category with the given id.
func FindCategory(categories []Category, id string) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// ResolveCategory returns the category with the given id, or FallbackCategory.
func ResolveCategory(categories []Category, id string) Category {
	if c, ok := FindCategory(categories, id); ok {
		return c
	}
	return FallbackCategory
}

// CategoryIDs returns the configured category ids in order.
func CategoryIDs(categories []Category) []string {
	ids := make([]string, len(categories))
	for i, c := range categories {
		ids[i] = c.ID
	}
	return ids
}
