package tool

import (
	"context"
	"fmt"
	"strconv"
)

type weatherArgs struct {
	Location string `json:"location"`
}

type calculateArgs struct {
	Expression string `json:"expression"`
}

// Weather returns the demo weather tool. The forecast is canned; the
// point of the tool is exercising the call/result protocol.
func Weather() Tool {
	return Tool{
		Name:        "get_current_weather",
		Description: "Get the current weather",
		Parameters: describe(SchemaFor(&weatherArgs{}),
			"location", "The location to get weather for, e.g. 'San Francisco, CA'"),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			location, _ := args["location"].(string)
			if location == "" {
				location = "unknown"
			}
			return fmt.Sprintf("Weather in %s: Sunny, 72°F", location), nil
		},
	}
}

// Calculator returns the arithmetic evaluation tool. Expressions that
// cannot be evaluated produce "Result: NaN" rather than an error, so
// the model sees the failure as tool output.
func Calculator() Tool {
	return Tool{
		Name:        "calculate",
		Description: "Evaluate a mathematical expression",
		Parameters: describe(SchemaFor(&calculateArgs{}),
			"expression", "The mathematical expression to evaluate, e.g. '2 + 2'"),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			expr, _ := args["expression"].(string)
			if expr == "" {
				expr = "0"
			}
			result := Evaluate(expr)
			return "Result: " + strconv.FormatFloat(result, 'f', -1, 64), nil
		},
	}
}
