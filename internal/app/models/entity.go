package models

const (
	TaskType            = "nervetask"
	RelationResponsible = "nervetask_to_user"

	// OptionWalledGarden is the per-tenant switch for the access gate.
	OptionWalledGarden = "nervetask_walled_garden"
)

// Capabilities a task entity supports.
const (
	SupportTitle          = "title"
	SupportEditor         = "editor"
	SupportExcerpt        = "excerpt"
	SupportAuthor         = "author"
	SupportThumbnail      = "thumbnail"
	SupportCustomFields   = "custom-fields"
	SupportComments       = "comments"
	SupportRevisions      = "revisions"
	SupportPageAttributes = "page-attributes"
	SupportDiscussion     = "discussion"
)

type EntityLabels struct {
	Name            string `json:"name"`
	SingularName    string `json:"singular_name"`
	AddNew          string `json:"add_new"`
	AddNewItem      string `json:"add_new_item"`
	EditItem        string `json:"edit_item"`
	NewItem         string `json:"new_item"`
	ViewItem        string `json:"view_item"`
	SearchItems     string `json:"search_items"`
	NotFound        string `json:"not_found"`
	NotFoundInTrash string `json:"not_found_in_trash"`
	ParentItemColon string `json:"parent_item_colon"`
	MenuName        string `json:"menu_name"`
}

type EntityType struct {
	Name              string       `json:"name"`
	Labels            EntityLabels `json:"labels"`
	Hierarchical      bool         `json:"hierarchical"`
	Supports          []string     `json:"supports"`
	Taxonomies        []string     `json:"taxonomies"`
	Public            bool         `json:"public"`
	PubliclyQueryable bool         `json:"publicly_queryable"`
	ShowInNavMenus    bool         `json:"show_in_nav_menus"`
	ExcludeFromSearch bool         `json:"exclude_from_search"`
	HasArchive        bool         `json:"has_archive"`
	CanExport         bool         `json:"can_export"`
	MenuPosition      int          `json:"menu_position"`
	RewriteSlug       string       `json:"rewrite_slug"`
	CapabilityType    string       `json:"capability_type"`
}

func TaskEntity() EntityType {
	return EntityType{
		Name: TaskType,
		Labels: EntityLabels{
			Name:            "Tasks",
			SingularName:    "Task",
			AddNew:          "Add New",
			AddNewItem:      "Add New Task",
			EditItem:        "Edit Task",
			NewItem:         "New Task",
			ViewItem:        "View Task",
			SearchItems:     "Search Tasks",
			NotFound:        "No tasks found",
			NotFoundInTrash: "No tasks found in Trash",
			ParentItemColon: "Parent task:",
			MenuName:        "Tasks",
		},
		Hierarchical: true,
		Supports: []string{
			SupportTitle, SupportEditor, SupportExcerpt, SupportAuthor, SupportThumbnail,
			SupportCustomFields, SupportComments, SupportRevisions, SupportPageAttributes,
			SupportDiscussion,
		},
		Taxonomies:        []string{TaxonomyStatus, TaxonomyPriority, TaxonomyCategory, TaxonomyTags},
		Public:            true,
		PubliclyQueryable: true,
		ShowInNavMenus:    true,
		HasArchive:        true,
		CanExport:         true,
		MenuPosition:      5,
		RewriteSlug:       "tasks",
		CapabilityType:    "post",
	}
}

// RelationType is a typed connection between two entity kinds.
type RelationType struct {
	Name  string `json:"name"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

func ResponsibleRelation() RelationType {
	return RelationType{
		Name:  RelationResponsible,
		From:  TaskType,
		To:    "user",
		Label: "responsible party",
	}
}
