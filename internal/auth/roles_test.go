package auth

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Access Control Table", func() {
	ginkgo.It("should only ever return known surfaces", func() {
		for _, r := range Roles() {
			gomega.Expect(AllSurfaces()).To(gomega.ContainElements(VisibleSurfaces(r)))
		}
	})

	ginkgo.It("should make every surface visible to at least one role", func() {
		for _, s := range AllSurfaces() {
			visible := false
			for _, r := range Roles() {
				if CanView(r, s) {
					visible = true
				}
			}
			gomega.Expect(visible).To(gomega.BeTrue(), "surface %s is unreachable", s)
		}
	})

	ginkgo.It("should grant admin everything a researcher sees and a researcher everything a user sees", func() {
		gomega.Expect(VisibleSurfaces(RoleAdmin)).To(gomega.ContainElements(VisibleSurfaces(RoleResearcher)))
		gomega.Expect(VisibleSurfaces(RoleResearcher)).To(gomega.ContainElements(VisibleSurfaces(RoleUser)))
	})

	ginkgo.It("should be deterministic", func() {
		for _, r := range Roles() {
			gomega.Expect(VisibleSurfaces(r)).To(gomega.Equal(VisibleSurfaces(r)))
		}
	})

	ginkgo.It("should match the published table", func() {
		gomega.Expect(VisibleSurfaces(RoleUser)).To(gomega.Equal([]Surface{
			SurfaceDashboard, SurfaceSearch, SurfaceVisualization, SurfaceReports,
		}))
		gomega.Expect(PermissionsFor(RoleUser).CanEdit).To(gomega.BeEmpty())
		gomega.Expect(PermissionsFor(RoleUser).CanManage).To(gomega.BeEmpty())

		gomega.Expect(PermissionsFor(RoleResearcher).CanEdit).To(gomega.ConsistOf(CapabilityDataIngestion, CapabilityAnalysis))
		gomega.Expect(PermissionsFor(RoleResearcher).CanManage).To(gomega.ConsistOf(CapabilityDatasets))
		gomega.Expect(CanView(RoleResearcher, SurfaceUserManagement)).To(gomega.BeFalse())

		gomega.Expect(CanView(RoleAdmin, SurfaceUserManagement)).To(gomega.BeTrue())
		gomega.Expect(CanEdit(RoleAdmin, CapabilityRoles)).To(gomega.BeTrue())
		gomega.Expect(CanManage(RoleAdmin, CapabilitySystem)).To(gomega.BeTrue())
	})

	ginkgo.It("should hand out copies that cannot corrupt the table", func() {
		p := PermissionsFor(RoleUser)
		p.CanView[0] = SurfaceUserManagement

		gomega.Expect(CanView(RoleUser, SurfaceUserManagement)).To(gomega.BeFalse())
	})

	ginkgo.It("should panic on an unknown role", func() {
		gomega.Expect(func() { VisibleSurfaces(Role("captain")) }).To(gomega.Panic())
	})

	ginkgo.DescribeTable("ParseRole",
		func(in string, want Role, ok bool) {
			r, err := ParseRole(in)
			if !ok {
				gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("unknown role")))
				return
			}
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(r).To(gomega.Equal(want))
		},
		ginkgo.Entry("lower case", "researcher", RoleResearcher, true),
		ginkgo.Entry("mixed case and spaces", " Admin ", RoleAdmin, true),
		ginkgo.Entry("unknown", "captain", Role(""), false),
	)

	ginkgo.Describe("DefaultPermissionChecker", func() {
		ginkgo.It("should deny unknown roles instead of panicking", func() {
			c := NewPermissionChecker()
			gomega.Expect(c.CanView(Role("captain"), SurfaceDashboard)).To(gomega.BeFalse())
			gomega.Expect(c.VisibleSurfaces(Role(""))).To(gomega.BeNil())
			gomega.Expect(c.CanManage(RoleAdmin, CapabilityUsers)).To(gomega.BeTrue())
		})
	})
})
