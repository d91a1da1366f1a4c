package internal_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/frahmantamala/liquidation-portal/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	It("surfaces the first field message", func() {
		err := internal.NewValidationFieldError("title", "Title is required", internal.ErrCodeTitleRequired)
		Expect(err.Error()).To(Equal("Title is required"))
		Expect(err.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(err.Code).To(Equal(internal.ErrCodeValidationFailed))
	})

	It("is found through wrapping", func() {
		wrapped := fmt.Errorf("saving: %w", internal.NewNotFoundError("missing", internal.ErrCodeValidationFailed))
		appErr, ok := internal.IsAppError(wrapped)
		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(http.StatusNotFound))

		_, ok = internal.IsAppError(errors.New("plain"))
		Expect(ok).To(BeFalse())
	})

	It("keeps the cause out of the JSON body", func() {
		appErr := internal.NewInternalError("boom", errors.New("db down"))
		Expect(errors.Unwrap(appErr)).To(MatchError("db down"))

		status, body := appErr.ToHTTPResponse()
		Expect(status).To(Equal(http.StatusInternalServerError))

		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"message":"boom"`))
		Expect(string(data)).NotTo(ContainSubstring("db down"))
	})
})

var _ = Describe("Context helpers", func() {
	It("defaults the timeout", func() {
		ctx, cancel := internal.WithTimeout(context.Background(), 0)
		defer cancel()
		deadline, ok := ctx.Deadline()
		Expect(ok).To(BeTrue())
		Expect(time.Until(deadline)).To(BeNumerically("~", internal.DefaultTimeout, time.Second))
	})

	It("keeps an explicit timeout", func() {
		ctx, cancel := internal.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		deadline, _ := ctx.Deadline()
		Expect(time.Until(deadline)).To(BeNumerically(">", 30*time.Second))
	})
})
