package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/cmlre/marine-platform/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

type failingAuthorizer struct{}

func (failingAuthorizer) CanViewCtx(context.Context, Role, Surface) (bool, error) {
	return false, errors.New("table unavailable")
}

func (failingAuthorizer) CanManageCtx(context.Context, Role, Capability) (bool, error) {
	return false, errors.New("table unavailable")
}

var _ = ginkgo.Describe("RBACAuthorization", func() {
	var (
		rbac   *RBACAuthorization
		called bool
	)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	serve := func(mw func(http.Handler) http.Handler, u *User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
		if u != nil {
			req = req.WithContext(ContextWithUser(req.Context(), u))
		}
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, req)
		return rec
	}

	ginkgo.BeforeEach(func() {
		called = false
		rbac = NewRBACAuthorization(NewPermissionChecker(), logger.Discard())
	})

	ginkgo.It("should reject requests without a signed-in user", func() {
		rec := serve(rbac.RequireView(SurfaceDashboard), nil)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(called).To(gomega.BeFalse())
	})

	ginkgo.It("should pass a role that may view the surface", func() {
		rec := serve(rbac.RequireView(SurfaceOtolith), &User{ID: "1", Role: RoleResearcher})
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
		gomega.Expect(called).To(gomega.BeTrue())
	})

	ginkgo.It("should forbid a surface outside the role", func() {
		rec := serve(rbac.RequireView(SurfaceOtolith), &User{ID: "1", Role: RoleUser})
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("otolith"))
		gomega.Expect(called).To(gomega.BeFalse())
	})

	ginkgo.It("should reserve management to admins", func() {
		gomega.Expect(serve(rbac.RequireManage(CapabilityUsers), &User{ID: "1", Role: RoleResearcher}).Code).
			To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(serve(rbac.RequireManage(CapabilityUsers), &User{ID: "2", Role: RoleAdmin}).Code).
			To(gomega.Equal(http.StatusNoContent))
	})

	ginkgo.It("should fail closed when the check errors", func() {
		rbac = NewRBACAuthorization(failingAuthorizer{}, logger.Discard())
		rec := serve(rbac.RequireView(SurfaceDashboard), &User{ID: "1", Role: RoleAdmin})
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusInternalServerError))
		gomega.Expect(called).To(gomega.BeFalse())
	})
})
