package tool_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/convopipe/convopipe/internal/tool"
)

var _ = Describe("Evaluate", func() {
	DescribeTable("expressions",
		func(expr string, expected float64) {
			Expect(tool.Evaluate(expr)).To(BeNumerically("~", expected, 1e-9))
		},
		Entry("plain number", "42", 42.0),
		Entry("decimal", "3.14", 3.14),
		Entry("negative number", "-5", -5.0),
		Entry("addition", "2 + 2", 4.0),
		Entry("subtraction", "10 - 4", 6.0),
		Entry("multiplication", "6 * 7", 42.0),
		Entry("division", "15 / 4", 3.75),
		Entry("precedence", "2 + 3 * 4", 14.0),
		Entry("chained subtraction", "10 - 3 - 2", 5.0),
		Entry("parenthesised operand", "2 * (3)", 6.0),
		Entry("power", "2 ^ 10", 1024.0),
		Entry("square root", "sqrt(16)", 4.0),
		Entry("square root in a sum", "sqrt(16) + 1", 5.0),
		Entry("negative plus number", "-5 + 8", 3.0),
	)

	DescribeTable("undefined operations",
		func(expr string) {
			Expect(math.IsNaN(tool.Evaluate(expr))).To(BeTrue())
		},
		Entry("empty input", ""),
		Entry("division by zero", "1 / 0"),
		Entry("negative square root", "sqrt(-4)"),
		Entry("words", "two plus two"),
	)
})
