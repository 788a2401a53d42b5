package sharecode_test

import (
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receiptwiser/internal/sharecode"
)

var _ = Describe("Share links", func() {
	It("round-trips a receipt through a share code", func() {
		in := dinner()
		code, err := sharecode.EncodeLink(in)
		Expect(err).NotTo(HaveOccurred())
		Expect(code).NotTo(BeEmpty())
		Expect(url.PathEscape(code)).To(Equal(code))

		out, err := sharecode.DecodeLink(code)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Items).To(HaveLen(2))
		Expect(out.Items[1].Name).To(Equal("Teh tarik"))
		Expect(out.Total).To(Equal(in.Total))
		Expect(out.TaxAmount).To(Equal(in.TaxAmount))
		Expect(out.CreatorName).To(Equal("Alex"))
	})

	It("accepts a code that was escaped again in transit", func() {
		code, err := sharecode.EncodeLink(dinner())
		Expect(err).NotTo(HaveOccurred())

		out, err := sharecode.DecodeLink(url.QueryEscape(code))
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Subtotal).To(Equal(31.6))
	})

	DescribeTable("rejects unusable codes",
		func(code string) {
			_, err := sharecode.DecodeLink(code)
			Expect(err).To(MatchError(sharecode.ErrInvalidReceiptData))
		},
		Entry("empty", ""),
		Entry("bad escape", "%zz"),
		Entry("not compressed JSON", "hello"),
	)

	It("builds share URLs", func() {
		Expect(sharecode.ShareURL("https://split.example/", "abc")).To(Equal("https://split.example/share/abc"))
	})
})
