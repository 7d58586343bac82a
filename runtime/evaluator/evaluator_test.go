package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	variables := map[string]interface{}{
		"count":  5,
		"name":   "protocol-7",
		"ready":  true,
		"ratio":  0.5,
		"items":  []interface{}{"a", "b", "c"},
		"result": map[string]interface{}{"status": "completed", "total": 10},
		"steps": map[string]interface{}{
			"check": map[string]interface{}{"result": true},
		},
	}

	testCases := []struct {
		description string
		expr        string
		expect      interface{}
	}{
		{
			description: "literal true",
			expr:        "true",
			expect:      true,
		},
		{
			description: "wrapped literal",
			expr:        "${false}",
			expect:      false,
		},
		{
			description: "simple reference",
			expr:        "count",
			expect:      5,
		},
		{
			description: "dot path",
			expr:        "result.status",
			expect:      "completed",
		},
		{
			description: "nested dot path",
			expr:        "${steps.check.result}",
			expect:      true,
		},
		{
			description: "index access",
			expr:        "items[1]",
			expect:      "b",
		},
		{
			description: "unresolved reference",
			expr:        "missing.field",
			expect:      nil,
		},
		{
			description: "numeric comparison",
			expr:        "${count > 3}",
			expect:      true,
		},
		{
			description: "numeric comparison false",
			expr:        "${count >= 10}",
			expect:      false,
		},
		{
			description: "string equality with single quotes",
			expr:        "${result.status == 'completed'}",
			expect:      true,
		},
		{
			description: "inequality",
			expr:        "${name != 'draft'}",
			expect:      true,
		},
		{
			description: "arithmetic",
			expr:        "${count * 2 + 1}",
			expect:      11,
		},
		{
			description: "logical and",
			expr:        "${ready && count > 3}",
			expect:      true,
		},
		{
			description: "logical or",
			expr:        "${count > 100 || ready}",
			expect:      true,
		},
		{
			description: "negation",
			expr:        "${!ready}",
			expect:      false,
		},
		{
			description: "parenthesized",
			expr:        "${(count + 1) * 2}",
			expect:      12,
		},
		{
			description: "len of slice",
			expr:        "len(items)",
			expect:      3,
		},
		{
			description: "len comparison",
			expr:        "${len(items) > 2}",
			expect:      true,
		},
		{
			description: "float comparison",
			expr:        "${ratio < 1}",
			expect:      true,
		},
		{
			description: "empty expression",
			expr:        "",
			expect:      nil,
		},
	}

	for _, testCase := range testCases {
		actual := Evaluate(testCase.expr, variables)
		assert.Equal(t, testCase.expect, actual, testCase.description)
	}
}

func TestAsBool(t *testing.T) {
	variables := map[string]interface{}{
		"count": 5,
		"zero":  0,
		"flag":  "true",
		"off":   "no",
	}

	testCases := []struct {
		expr   string
		expect bool
	}{
		{expr: "${count > 3}", expect: true},
		{expr: "${count > 100}", expect: false},
		{expr: "count", expect: true},
		{expr: "zero", expect: false},
		{expr: "flag", expect: true},
		{expr: "off", expect: false},
		{expr: "missing", expect: false},
		{expr: "", expect: false},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, AsBool(testCase.expr, variables), testCase.expr)
	}
}

func TestEvaluate_divisionEdgeCases(t *testing.T) {
	variables := map[string]interface{}{"n": 10, "zero": 0}
	assert.Equal(t, 5.0, Evaluate("${n / 2}", variables))
	assert.Equal(t, 1, Evaluate("${n % 3}", variables))
}
