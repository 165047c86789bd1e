package models

import (
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Done":            "done",
		"High":            "high",
		"In Progress":     "in-progress",
		"  Needs  review": "needs-review",
		"Café déjà vu":    "cafe-deja-vu",
		"v2.0 release!":   "v2-0-release",
		"!!!":             "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTaxonomies(t *testing.T) {
	taxonomies := Taxonomies()
	if len(taxonomies) != 4 {
		t.Fatalf("expected 4 taxonomies, got %d", len(taxonomies))
	}

	for _, tax := range taxonomies {
		if tax.Hierarchical != (tax.Name == TaxonomyCategory) {
			t.Errorf("%s: unexpected hierarchical flag %v", tax.Name, tax.Hierarchical)
		}
		if len(tax.ObjectTypes) != 1 || tax.ObjectTypes[0] != TaskType {
			t.Errorf("%s: not bound to %s", tax.Name, TaskType)
		}
	}

	status, ok := LookupTaxonomy(TaxonomyStatus)
	if !ok {
		t.Fatal("status taxonomy not found")
	}
	if status.Labels.SeparateItemsWithCommas != "Separate statuses with commas" {
		t.Errorf("unexpected label: %q", status.Labels.SeparateItemsWithCommas)
	}

	category, _ := TaxonomyByAxis("category")
	if category.Labels.AddNewItem != "Add Task Category" {
		t.Errorf("unexpected category add label: %q", category.Labels.AddNewItem)
	}

	if _, ok := TaxonomyByAxis("nope"); ok {
		t.Error("unknown axis resolved")
	}
}

func TestValidateDefinitions(t *testing.T) {
	if err := ValidateDefinitions(); err != nil {
		t.Fatalf("definitions invalid: %v", err)
	}
}

func TestTaskEntity(t *testing.T) {
	entity := TaskEntity()
	if entity.RewriteSlug != "tasks" {
		t.Errorf("unexpected rewrite slug %q", entity.RewriteSlug)
	}
	if len(entity.Taxonomies) != 4 {
		t.Errorf("expected 4 taxonomies, got %v", entity.Taxonomies)
	}
	if !entity.Public || !entity.PubliclyQueryable || !entity.HasArchive {
		t.Error("task entity must be public, queryable and listable")
	}
}

func TestViewerCapabilities(t *testing.T) {
	var anon *Viewer
	if anon.Authenticated() || anon.CanEditTasks() {
		t.Error("nil viewer must be anonymous")
	}

	sub := &Viewer{UserID: 3, Role: RoleSubscriber}
	if !sub.Authenticated() || sub.CanEditTasks() {
		t.Error("subscriber must be authenticated without edit capability")
	}

	editor := &Viewer{UserID: 4, Role: RoleEditor}
	if !editor.CanEditTasks() || editor.IsAdministrator() {
		t.Error("editor capabilities are wrong")
	}
}

func TestTenantActive(t *testing.T) {
	yes := true
	tenant := Tenant{ID: 1}
	if !tenant.Active() {
		t.Fatal("fresh tenant must be active")
	}
	TenantFlags{Spam: &yes}.Apply(&tenant)
	if tenant.Active() {
		t.Fatal("spam tenant must not be active")
	}
}

func TestOptionEnabled(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		if !OptionEnabled(v) {
			t.Errorf("%q should be enabled", v)
		}
	}
	for _, v := range []string{"", "0", "false", "off"} {
		if OptionEnabled(v) {
			t.Errorf("%q should be disabled", v)
		}
	}
}
