package navigation_test

import (
	"errors"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/auth"
	"github.com/cmlre/marine-platform/internal/navigation"
	"github.com/cmlre/marine-platform/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func surfacesOf(items []navigation.Item) []auth.Surface {
	out := make([]auth.Surface, len(items))
	for i, it := range items {
		out[i] = it.Surface
	}
	return out
}

var _ = Describe("Gate", func() {
	var gate *navigation.Gate

	BeforeEach(func() {
		gate = navigation.NewGate(auth.NewPermissionChecker(), logger.Discard())
	})

	It("should have a catalogue entry for every surface", func() {
		Expect(surfacesOf(navigation.Catalogue())).To(Equal(auth.AllSurfaces()))
	})

	It("should only list surfaces some role can view", func() {
		for _, it := range navigation.Catalogue() {
			reachable := false
			for _, r := range auth.Roles() {
				if auth.CanView(r, it.Surface) {
					reachable = true
				}
			}
			Expect(reachable).To(BeTrue(), "surface %s is unreachable", it.Surface)
		}
	})

	DescribeTable("Items",
		func(role auth.Role, want []auth.Surface) {
			Expect(surfacesOf(gate.Items(role))).To(Equal(want))
		},
		Entry("user", auth.RoleUser, []auth.Surface{
			auth.SurfaceDashboard, auth.SurfaceSearch, auth.SurfaceVisualization, auth.SurfaceReports,
		}),
		Entry("researcher", auth.RoleResearcher, []auth.Surface{
			auth.SurfaceDashboard, auth.SurfaceSearch, auth.SurfaceVisualization, auth.SurfaceDataIngestion,
			auth.SurfaceOtolith, auth.SurfaceEDNA, auth.SurfaceAPI, auth.SurfaceReports,
		}),
		Entry("admin", auth.RoleAdmin, auth.AllSurfaces()),
	)

	It("should carry the sidebar badges", func() {
		items := gate.Items(auth.RoleResearcher)

		var badges []string
		for _, it := range items {
			if it.Badge != nil {
				badges = append(badges, string(it.Surface)+":"+it.Badge.Text)
			}
		}
		Expect(badges).To(Equal([]string{"data-ingestion:New", "edna:Beta"}))
	})

	It("should not let callers mutate the catalogue", func() {
		items := gate.Items(auth.RoleAdmin)
		for _, it := range items {
			if it.Badge != nil {
				it.Badge.Text = "changed"
			}
		}
		items[0].Label = "changed"

		Expect(navigation.Catalogue()[0].Label).To(Equal("Dashboard"))
		Expect(navigation.Catalogue()[3].Badge.Text).To(Equal("New"))
	})

	Describe("Item", func() {
		It("should resolve a visible surface", func() {
			it, err := gate.Item(auth.RoleUser, auth.SurfaceReports)
			Expect(err).NotTo(HaveOccurred())
			Expect(it.Label).To(Equal("Reports"))
		})

		It("should forbid a hidden surface", func() {
			_, err := gate.Item(auth.RoleResearcher, auth.SurfaceUserManagement)
			Expect(errors.Is(err, internal.ErrForbiddenSurface)).To(BeTrue())
		})

		It("should report unknown surfaces as not found", func() {
			_, err := gate.Item(auth.RoleAdmin, auth.Surface("aquarium"))
			Expect(errors.Is(err, internal.ErrSurfaceNotFound)).To(BeTrue())
		})
	})
})
