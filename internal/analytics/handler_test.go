package analytics_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/liquidation-portal/internal/analytics"
	"github.com/frahmantamala/liquidation-portal/internal/auth"
	"github.com/frahmantamala/liquidation-portal/internal/liquidation"
	"github.com/frahmantamala/liquidation-portal/internal/spreadsheet"
	"github.com/frahmantamala/liquidation-portal/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Handler", func() {
	var (
		source  *fakeSource
		handler *analytics.Handler
		caller  *auth.User
	)

	BeforeEach(func() {
		source = &fakeSource{rows: []*liquidation.Request{
			request("u1", "Travel", liquidation.StatusPending, "100", fixedNow.Add(-time.Hour)),
		}}
		service := analytics.NewService(source, auth.NewPermissionChecker(), testLogger()).WithClock(func() time.Time { return fixedNow })
		handler = &analytics.Handler{BaseHandler: transport.NewBaseHandler(testLogger()), Service: service}
		caller = &auth.User{ID: "u1", Role: auth.RoleUser}
	})

	serve := func(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if caller != nil {
			req = req.WithContext(auth.ContextWithUser(req.Context(), caller))
		}
		w := httptest.NewRecorder()
		h(w, req)
		return w
	}

	It("returns the report as JSON", func() {
		w := serve(handler.GetReport, "/analytics?range=90&category=Travel")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(source.since).To(Equal(fixedNow.AddDate(0, 0, -90)))

		var body map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body["total_requests"]).To(BeNumerically("==", 1))
		Expect(body).To(HaveKey("monthly_trends"))
	})

	It("rejects unsupported ranges", func() {
		w := serve(handler.GetReport, "/analytics?range=14")
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("requires a signed-in caller", func() {
		caller = nil
		w := serve(handler.GetReport, "/analytics")
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("hides source failures behind a 500", func() {
		source.err = errors.New("db down")
		w := serve(handler.GetReport, "/analytics")
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})

	It("streams the workbook as an attachment", func() {
		w := serve(handler.Export, "/analytics/export?range=7")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(Equal(spreadsheet.ContentType))
		Expect(w.Header().Get("Content-Disposition")).To(ContainSubstring("liquidation_analytics_2025-06-15.xlsx"))
		Expect(w.Body.Len()).To(BeNumerically(">", 0))
	})
})
