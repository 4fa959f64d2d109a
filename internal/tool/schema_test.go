package tool_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/convopipe/convopipe/internal/tool"
)

var _ = Describe("tool schemas", func() {
	// schemaJSON marshals a tool's parameter schema for inspection.
	schemaJSON := func(t tool.Tool) string {
		data, err := json.Marshal(t.Parameters)
		Expect(err).NotTo(HaveOccurred())
		return string(data)
	}

	It("keeps full field descriptions, commas included", func() {
		Expect(schemaJSON(tool.Weather())).To(
			ContainSubstring("The location to get weather for, e.g. 'San Francisco, CA'"))
		Expect(schemaJSON(tool.Calculator())).To(
			ContainSubstring("The mathematical expression to evaluate, e.g. '2 + 2'"))
	})

	It("marks fields without omitempty as required", func() {
		var view struct {
			Required []string `json:"required"`
		}
		Expect(json.Unmarshal([]byte(schemaJSON(tool.Weather())), &view)).To(Succeed())
		Expect(view.Required).To(Equal([]string{"location"}))
	})
})
