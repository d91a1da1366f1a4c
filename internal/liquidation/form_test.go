package liquidation_test

import (
	apperrors "github.com/frahmantamala/liquidation-portal/internal"
	"github.com/frahmantamala/liquidation-portal/internal/liquidation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validationFields(appErr *apperrors.AppError) map[string]string {
	out := map[string]string{}
	details, ok := appErr.Details.(apperrors.ValidationErrors)
	if !ok {
		return out
	}
	for _, e := range details.Errors {
		out[e.Field] = e.Message
	}
	return out
}

var _ = Describe("Form", func() {
	Describe("NewForm", func() {
		It("starts in USD with one blank item of quantity 1", func() {
			f := liquidation.NewForm()
			Expect(f.Currency).To(Equal("USD"))
			Expect(f.Items).To(HaveLen(1))
			Expect(f.Items[0].Quantity).To(Equal(1))
			Expect(f.Items[0].Key).NotTo(BeEmpty())
			Expect(f.Total().IsZero()).To(BeTrue())
		})
	})

	Describe("amount invariant", func() {
		var it *liquidation.FormItem

		BeforeEach(func() {
			it = liquidation.NewForm().Items[0]
		})

		It("recomputes the amount when quantity or unit price change", func() {
			it.SetUnitPrice(dec("12.50"))
			Expect(it.Amount.Equal(dec("12.5"))).To(BeTrue())

			it.SetQuantity(3)
			Expect(it.Amount.Equal(dec("37.5"))).To(BeTrue())

			it.SetUnitPrice(dec("2"))
			Expect(it.Amount.Equal(dec("6"))).To(BeTrue())
		})

		It("back-derives the unit price from an amount edit", func() {
			it.SetQuantity(4)
			it.SetAmount(dec("10"))
			Expect(it.Amount.Equal(dec("10"))).To(BeTrue())
			Expect(it.UnitPrice.Equal(dec("2.5"))).To(BeTrue())
		})

		It("keeps the unit price when quantity is zero", func() {
			it.SetUnitPrice(dec("3"))
			it.SetQuantity(0)
			it.SetAmount(dec("9"))
			Expect(it.UnitPrice.Equal(dec("3"))).To(BeTrue())
			Expect(it.Amount.Equal(dec("9"))).To(BeTrue())
		})
	})

	Describe("items", func() {
		It("refuses to remove the last item", func() {
			f := liquidation.NewForm()
			Expect(f.RemoveItem(f.Items[0].Key)).To(MatchError(liquidation.ErrLastItem))
			Expect(f.Items).To(HaveLen(1))
		})

		It("removes by key and reports unknown keys", func() {
			f := liquidation.NewForm()
			second := f.AddItem()
			Expect(f.RemoveItem("nope")).To(MatchError(liquidation.ErrItemNotFound))
			Expect(f.RemoveItem(second.Key)).To(Succeed())
			Expect(f.Items).To(HaveLen(1))
		})

		It("sums every row live but only described rows on submit", func() {
			f := liquidation.NewForm()
			f.Items[0].Description = "Taxi"
			f.Items[0].SetUnitPrice(dec("20"))
			blank := f.AddItem()
			blank.SetUnitPrice(dec("5"))

			Expect(f.Total().Equal(dec("25"))).To(BeTrue())
			Expect(f.SubmittedItems()).To(HaveLen(1))
			Expect(f.SubmittedTotal().Equal(dec("20"))).To(BeTrue())
		})
	})

	Describe("Validate", func() {
		It("requires a title and one described item", func() {
			f := liquidation.NewForm()
			appErr := f.Validate()
			Expect(appErr).NotTo(BeNil())
			fields := validationFields(appErr)
			Expect(fields["title"]).To(Equal(liquidation.MsgTitleRequired))
			Expect(fields["items"]).To(Equal(liquidation.MsgItemRequired))
		})

		It("rejects non-positive quantities and negative prices", func() {
			f := liquidation.NewForm()
			f.Title = "Trip"
			f.Items[0].Description = "Taxi"
			f.Items[0].SetQuantity(0)
			f.Items[0].SetUnitPrice(dec("-1"))

			fields := validationFields(f.Validate())
			Expect(fields).To(HaveKey("items[0].quantity"))
			Expect(fields).To(HaveKey("items[0].unit_price"))
		})

		It("passes a complete form", func() {
			f := liquidation.NewForm()
			f.Title = "Trip"
			f.Items[0].Description = "Taxi"
			f.Items[0].SetUnitPrice(dec("12"))
			Expect(f.Validate()).To(BeNil())
		})
	})

	Describe("FormDTO", func() {
		It("prefers unit price over amount and defaults quantity to 1", func() {
			price := dec("4")
			amount := dec("100")
			f := liquidation.FormDTO{
				Title:    "Trip",
				Currency: "eur",
				Items: []liquidation.ItemDTO{
					{Description: "Coffee", Quantity: 3, UnitPrice: &price, Amount: &amount},
					{Description: "Parking", Amount: &amount},
				},
			}.ToForm()

			Expect(f.Currency).To(Equal("EUR"))
			Expect(f.Items).To(HaveLen(2))
			Expect(f.Items[0].Amount.Equal(dec("12"))).To(BeTrue())
			Expect(f.Items[1].Quantity).To(Equal(1))
			Expect(f.Items[1].UnitPrice.Equal(dec("100"))).To(BeTrue())
			Expect(f.Total().Equal(dec("112"))).To(BeTrue())
		})

		It("keeps one blank row for an empty payload", func() {
			f := liquidation.FormDTO{Title: "Trip"}.ToForm()
			Expect(f.Items).To(HaveLen(1))
			Expect(f.Currency).To(Equal("USD"))
		})
	})

	Describe("FormFromRequest", func() {
		It("loads items keyed by their persisted ids", func() {
			r := &liquidation.Request{
				ID:    "req-1",
				Title: "Trip",
				Items: []liquidation.Item{{ID: "item-1", Description: "Taxi", Quantity: 2, UnitPrice: dec("5"), Amount: dec("10")}},
			}
			f := liquidation.FormFromRequest(r)
			Expect(f.RequestID).To(Equal("req-1"))
			Expect(f.Currency).To(Equal("USD"))
			it, ok := f.Item("item-1")
			Expect(ok).To(BeTrue())
			Expect(it.Amount.Equal(dec("10"))).To(BeTrue())
		})
	})
})

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
