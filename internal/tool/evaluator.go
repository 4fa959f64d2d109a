package tool

import (
	"math"
	"strconv"
	"strings"
)

// Evaluate computes a basic arithmetic expression supporting + - * / ^,
// sqrt() and parentheses. Unparseable input and undefined operations
// (division by zero, negative square roots) yield NaN.
func Evaluate(expression string) float64 {
	return eval(strings.ReplaceAll(expression, " ", ""))
}

// eval splits on the lowest-precedence operator first so that the
// recursive descent respects the usual precedence rules.
func eval(expr string) float64 {
	if expr == "" {
		return math.NaN()
	}

	if v, err := strconv.ParseFloat(expr, 64); err == nil {
		return v
	}

	if idx := strings.Index(expr, "+"); idx >= 0 {
		return eval(expr[:idx]) + eval(expr[idx+1:])
	}

	// rfind, and idx > 0 so a leading minus stays a negative number.
	if idx := strings.LastIndex(expr, "-"); idx > 0 {
		return eval(expr[:idx]) - eval(expr[idx+1:])
	}

	if idx := strings.Index(expr, "*"); idx >= 0 {
		return eval(expr[:idx]) * eval(expr[idx+1:])
	}

	if idx := strings.Index(expr, "/"); idx >= 0 {
		right := eval(expr[idx+1:])
		if right == 0 {
			return math.NaN()
		}
		return eval(expr[:idx]) / right
	}

	if inner, ok := strings.CutPrefix(expr, "sqrt("); ok && strings.HasSuffix(inner, ")") {
		v := eval(strings.TrimSuffix(inner, ")"))
		if v < 0 {
			return math.NaN()
		}
		return math.Sqrt(v)
	}

	if idx := strings.Index(expr, "^"); idx >= 0 {
		return math.Pow(eval(expr[:idx]), eval(expr[idx+1:]))
	}

	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		return eval(expr[1 : len(expr)-1])
	}

	return math.NaN()
}
