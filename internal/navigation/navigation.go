package navigation

import "github.com/cmlre/marine-platform/internal/auth"

type BadgeVariant string

const (
	BadgeDefault   BadgeVariant = "default"
	BadgeSecondary BadgeVariant = "secondary"
)

type Badge struct {
	Text    string       `json:"text"`
	Variant BadgeVariant `json:"variant"`
}

// Item is one sidebar entry.
type Item struct {
	Surface     auth.Surface `json:"id"`
	Label       string       `json:"label"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Badge       *Badge       `json:"badge,omitempty"`
}

func (i Item) clone() Item {
	if i.Badge != nil {
		b := *i.Badge
		i.Badge = &b
	}
	return i
}

// catalogue lists every surface in sidebar order.
var catalogue = []Item{
	{Surface: auth.SurfaceDashboard, Label: "Dashboard", Description: "Overview & Analytics", Icon: "layout-dashboard"},
	{Surface: auth.SurfaceSearch, Label: "Search & Explore", Description: "Find Marine Data", Icon: "search"},
	{Surface: auth.SurfaceVisualization, Label: "Data Visualization", Description: "Charts & Graphs", Icon: "bar-chart-3"},
	{
		Surface:     auth.SurfaceDataIngestion,
		Label:       "Data Upload",
		Description: "Import Datasets",
		Icon:        "upload",
		Badge:       &Badge{Text: "New", Variant: BadgeDefault},
	},
	{Surface: auth.SurfaceOtolith, Label: "Otolith Analysis", Description: "Morphology Viewer", Icon: "microscope"},
	{
		Surface:     auth.SurfaceEDNA,
		Label:       "eDNA Explorer",
		Description: "Molecular Analysis",
		Icon:        "dna",
		Badge:       &Badge{Text: "Beta", Variant: BadgeSecondary},
	},
	{Surface: auth.SurfaceAPI, Label: "API Console", Description: "Integration Tools", Icon: "database"},
	{Surface: auth.SurfaceReports, Label: "Reports", Description: "Generate Reports", Icon: "file-text"},
	{Surface: auth.SurfaceUserManagement, Label: "User Management", Description: "Manage Access", Icon: "users"},
}

// Catalogue returns a copy of every navigation item regardless of role.
func Catalogue() []Item {
	out := make([]Item, len(catalogue))
	for i, it := range catalogue {
		out[i] = it.clone()
	}
	return out
}

func lookup(surface auth.Surface) (Item, bool) {
	for _, it := range catalogue {
		if it.Surface == surface {
			return it.clone(), true
		}
	}
	return Item{}, false
}
