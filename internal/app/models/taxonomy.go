package models

import (
	"fmt"
)

// Machine names of the four classification axes. They are fixed and never
// configurable.
const (
	TaxonomyStatus   = "nervetask_status"
	TaxonomyPriority = "nervetask_priority"
	TaxonomyCategory = "nervetask_category"
	TaxonomyTags     = "nervetask_tags"
)

type TaxonomyLabels struct {
	Name                    string `json:"name"`
	SingularName            string `json:"singular_name"`
	SearchItems             string `json:"search_items"`
	PopularItems            string `json:"popular_items"`
	AllItems                string `json:"all_items"`
	ParentItem              string `json:"parent_item"`
	ParentItemColon         string `json:"parent_item_colon"`
	EditItem                string `json:"edit_item"`
	UpdateItem              string `json:"update_item"`
	AddNewItem              string `json:"add_new_item"`
	NewItemName             string `json:"new_item_name"`
	SeparateItemsWithCommas string `json:"separate_items_with_commas"`
	AddOrRemoveItems        string `json:"add_or_remove_items"`
	ChooseFromMostUsed      string `json:"choose_from_most_used"`
	MenuName                string `json:"menu_name"`
}

// Taxonomy describes one classification axis bound to the task entity.
type Taxonomy struct {
	Name         string         `json:"name"`
	Axis         string         `json:"axis"`
	Labels       TaxonomyLabels `json:"labels"`
	Hierarchical bool           `json:"hierarchical"`
	Slug         string         `json:"slug"`
	ObjectTypes  []string       `json:"object_types"`
	Public       bool           `json:"public"`
	ShowTagCloud bool           `json:"show_tagcloud"`
	QueryVar     bool           `json:"query_var"`
}

func termLabels(singular, plural string) TaxonomyLabels {
	lowerPlural := lowerFirst(plural)
	return TaxonomyLabels{
		Name:                    plural,
		SingularName:            singular,
		SearchItems:             "Search " + plural,
		PopularItems:            "Popular " + plural,
		AllItems:                "All " + plural,
		ParentItem:              "Parent " + singular,
		ParentItemColon:         "Parent " + singular + ":",
		EditItem:                "Edit " + singular,
		UpdateItem:              "Update " + singular,
		AddNewItem:              "Add New " + singular,
		NewItemName:             "New " + singular,
		SeparateItemsWithCommas: "Separate " + lowerPlural + " with commas",
		AddOrRemoveItems:        "Add or remove " + lowerPlural,
		ChooseFromMostUsed:      "Choose from the most used " + lowerPlural,
		MenuName:                plural,
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

func newTaxonomy(name, axis, singular, plural, slug string, hierarchical bool) Taxonomy {
	return Taxonomy{
		Name:         name,
		Axis:         axis,
		Labels:       termLabels(singular, plural),
		Hierarchical: hierarchical,
		Slug:         slug,
		ObjectTypes:  []string{TaskType},
		Public:       true,
		ShowTagCloud: true,
		QueryVar:     true,
	}
}

// Taxonomies returns the four axis definitions in registration order.
func Taxonomies() []Taxonomy {
	category := newTaxonomy(TaxonomyCategory, "category", "Category", "Categories", "category", true)
	category.Labels.AddNewItem = "Add Task Category"

	return []Taxonomy{
		newTaxonomy(TaxonomyStatus, "status", "Status", "Statuses", "statuses", false),
		newTaxonomy(TaxonomyPriority, "priority", "Priority", "Priorities", "priority", false),
		category,
		newTaxonomy(TaxonomyTags, "tags", "Tag", "Tags", "tags", false),
	}
}

func LookupTaxonomy(name string) (Taxonomy, bool) {
	for _, t := range Taxonomies() {
		if t.Name == name {
			return t, true
		}
	}
	return Taxonomy{}, false
}

// TaxonomyByAxis resolves the short axis name used in URLs ("status",
// "priority", "category", "tags").
func TaxonomyByAxis(axis string) (Taxonomy, bool) {
	for _, t := range Taxonomies() {
		if t.Axis == axis {
			return t, true
		}
	}
	return Taxonomy{}, false
}

// ValidateDefinitions checks the static entity and taxonomy definitions.
func ValidateDefinitions() error {
	names := make(map[string]bool)
	slugs := make(map[string]string)
	for _, t := range Taxonomies() {
		if names[t.Name] {
			return fmt.Errorf("duplicate taxonomy %q", t.Name)
		}
		names[t.Name] = true
		if other, ok := slugs[t.Slug]; ok {
			return fmt.Errorf("taxonomy %q reuses slug %q of %q", t.Name, t.Slug, other)
		}
		slugs[t.Slug] = t.Name
	}

	entity := TaskEntity()
	for _, tax := range entity.Taxonomies {
		if !names[tax] {
			return fmt.Errorf("entity %q references unknown taxonomy %q", entity.Name, tax)
		}
	}
	return nil
}
