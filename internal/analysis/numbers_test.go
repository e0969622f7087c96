package analysis

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = DescribeTable("ExtractNumbers",
	func(text string, want []int) {
		Expect(ExtractNumbers(text)).To(Equal(want))
	},
	Entry("empty text", "", []int{}),
	Entry("words only", "hello world", []int{}),
	Entry("separate integers", "3 apples and 14 pears", []int{3, 14}),
	Entry("negative numbers", "balance -20 after 5", []int{-20, 5}),
	Entry("ranges are not negatives", "pages 10-20", []int{10, 20}),
	Entry("decimals split into parts", "4.50", []int{4, 50}),
	Entry("digits glued to letters", "A4 paper", []int{4}),
	Entry("multiline", "1\n2\n3", []int{1, 2, 3}),
	Entry("overflowing digits are skipped", "99999999999999999999999 and 2", []int{2}),
)

var _ = Describe("Sum", func() {
	It("adds every number", func() {
		Expect(Sum([]int{1, -2, 40})).To(Equal(39))
	})

	It("is zero for no numbers", func() {
		Expect(Sum(nil)).To(BeZero())
	})
})
