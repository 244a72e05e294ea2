package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	It("should match sentinels by code through wrapping", func() {
		err := fmt.Errorf("login: %w", ErrInvalidCredentials.WithCause(ErrLoginFailed))
		Expect(errors.Is(err, ErrInvalidCredentials)).To(BeTrue())
		Expect(errors.Is(err, ErrLoginFailed)).To(BeTrue())
		Expect(errors.Is(err, ErrUserInactive)).To(BeFalse())
	})

	It("should leave the shared sentinel untouched", func() {
		detailed := ErrEmailTaken.WithDetails(map[string]string{"email": "admin@cmlre.gov.in"})
		Expect(detailed.Details).NotTo(BeNil())
		Expect(ErrEmailTaken.Details).To(BeNil())
	})

	It("should render the error envelope", func() {
		status, body := ErrForbiddenSurface.WithDetails(map[string]string{"surface": "otolith"}).ToHTTPResponse()
		Expect(status).To(Equal(http.StatusForbidden))

		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(MatchJSON(`{"error":{"type":"FORBIDDEN","code":"FORBIDDEN_SURFACE","message":"Surface is not available for this role","details":{"surface":"otolith"}}}`))
	})

	It("should find an AppError anywhere in the chain", func() {
		appErr, ok := IsAppError(fmt.Errorf("outer: %w", ErrUnsupportedCapability))
		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(http.StatusNotImplemented))

		_, ok = IsAppError(errors.New("plain"))
		Expect(ok).To(BeFalse())
	})
})
