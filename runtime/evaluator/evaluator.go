// Package evaluator evaluates guard and condition expressions against
// instance data. Expressions use Go syntax for arithmetic, comparison and
// boolean operators; identifiers resolve through dot paths and array
// indices, unresolved references yield nil.
package evaluator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Evaluate evaluates an expression with variables. The optional ${...}
// wrapper is stripped first.
func Evaluate(expr string, variables map[string]interface{}) interface{} {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "${") && strings.HasSuffix(expr, "}") {
		expr = expr[2 : len(expr)-1]
	}
	if expr == "" {
		return nil
	}
	if strings.HasPrefix(expr, "len(") {
		if result, ok := evaluateLenExpr(expr, variables); ok {
			return result
		}
	}
	if containsOperators(expr) {
		return evaluateExpr(expr, variables)
	}
	switch expr {
	case "true":
		return true
	case "false":
		return false
	}
	return expand(expr, variables)
}

// AsBool evaluates an expression as a guard. Unresolved or non-boolean
// results are false; numbers count as true when non-zero, strings follow
// strconv.ParseBool.
func AsBool(expr string, variables map[string]interface{}) bool {
	result := Evaluate(expr, variables)
	switch v := result.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	}
	if isIntType(result) {
		return toInt(result) != 0
	}
	if isFloatType(result) {
		return toFloat64(result) != 0
	}
	return false
}

func evaluateLenExpr(expr string, variables map[string]interface{}) (interface{}, bool) {
	idx := strings.Index(expr, ")")
	if idx < 0 {
		return nil, false
	}
	length := lengthOf(expand(strings.TrimSpace(expr[4:idx]), variables))
	rest := strings.TrimSpace(expr[idx+1:])
	if rest == "" {
		return length, true
	}
	for _, op := range []string{">=", "<=", "==", "!=", ">", "<"} {
		if !strings.HasPrefix(rest, op) {
			continue
		}
		right := Evaluate(strings.TrimSpace(rest[len(op):]), variables)
		cmp := compareValues(length, right)
		switch op {
		case "==":
			return cmp == 0, true
		case "!=":
			return cmp != 0, true
		case ">":
			return cmp > 0, true
		case "<":
			return cmp < 0, true
		case ">=":
			return cmp >= 0, true
		case "<=":
			return cmp <= 0, true
		}
	}
	return nil, false
}

func lengthOf(value interface{}) int {
	if value == nil {
		return 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len()
	}
	return 0
}

func containsOperators(s string) bool {
	for _, op := range []string{"+", "*", "/", "%", "==", "!=", ">", "<", "&&", "||", "!"} {
		if strings.Contains(s, op) {
			return true
		}
	}
	// a minus counts only between terms, not as a leading sign
	if idx := strings.Index(s, "-"); idx > 0 {
		return true
	}
	return false
}

// evaluateExpr substitutes variable references and evaluates the resulting
// Go expression AST.
func evaluateExpr(expr string, variables map[string]interface{}) interface{} {
	processed := substituteVariables(expr, variables)
	parsed, err := parser.ParseExpr(processed)
	if err != nil {
		return expand(expr, variables)
	}
	return evaluateAst(parsed)
}

var singleQuoted = regexp.MustCompile(`'([^']*)'`)

func substituteVariables(expr string, variables map[string]interface{}) string {
	expr = singleQuoted.ReplaceAllString(expr, `"$1"`)
	parts := strings.FieldsFunc(expr, func(c rune) bool {
		return !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '.')
	})
	processed := expr
	for _, part := range parts {
		if !isReference(part) {
			continue
		}
		value := expand(part, variables)
		if value == nil {
			continue
		}
		var literal string
		switch v := value.(type) {
		case bool:
			literal = strconv.FormatBool(v)
		case string:
			literal = strconv.Quote(v)
		default:
			literal = fmt.Sprintf("%v", v)
		}
		processed = strings.Join(strings.Split(processed, part), literal)
	}
	return processed
}

func isReference(s string) bool {
	if len(s) == 0 || !((s[0] >= 'a' && s[0] <= 'z') || (s[0] >= 'A' && s[0] <= 'Z') || s[0] == '_') {
		return false
	}
	switch s {
	case "true", "false":
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '.') {
			return false
		}
	}
	return true
}

func evaluateAst(node ast.Expr) interface{} {
	switch n := node.(type) {
	case *ast.BasicLit:
		switch n.Kind {
		case token.INT:
			val, _ := strconv.Atoi(n.Value)
			return val
		case token.FLOAT:
			val, _ := strconv.ParseFloat(n.Value, 64)
			return val
		case token.STRING, token.CHAR:
			return strings.Trim(n.Value, "\"'")
		}
	case *ast.Ident:
		switch n.Name {
		case "true":
			return true
		case "false":
			return false
		}
		return nil
	case *ast.BinaryExpr:
		switch n.Op {
		case token.LAND:
			return truthy(evaluateAst(n.X)) && truthy(evaluateAst(n.Y))
		case token.LOR:
			return truthy(evaluateAst(n.X)) || truthy(evaluateAst(n.Y))
		}
		x, y := convertCompatible(evaluateAst(n.X), evaluateAst(n.Y))
		switch n.Op {
		case token.ADD:
			return add(x, y)
		case token.SUB:
			return subtract(x, y)
		case token.MUL:
			return multiply(x, y)
		case token.QUO:
			return divide(x, y)
		case token.REM:
			return modulo(x, y)
		case token.EQL:
			return reflect.DeepEqual(x, y)
		case token.NEQ:
			return !reflect.DeepEqual(x, y)
		case token.LSS:
			return compareValues(x, y) < 0
		case token.GTR:
			return compareValues(x, y) > 0
		case token.LEQ:
			return compareValues(x, y) <= 0
		case token.GEQ:
			return compareValues(x, y) >= 0
		}
	case *ast.ParenExpr:
		return evaluateAst(n.X)
	case *ast.UnaryExpr:
		operand := evaluateAst(n.X)
		switch n.Op {
		case token.SUB:
			switch v := operand.(type) {
			case int:
				return -v
			case float64:
				return -v
			}
		case token.NOT:
			return !truthy(operand)
		}
	}
	return nil
}

func truthy(value interface{}) bool {
	if b, ok := value.(bool); ok {
		return b
	}
	return false
}

// expand resolves a dot path with optional array indices, for example
// "steps[1].name" or "result.counts.total".
func expand(expr string, from map[string]interface{}) interface{} {
	rootEnd := len(expr)
	if idx := strings.IndexAny(expr, ".["); idx != -1 {
		rootEnd = idx
	}
	current, ok := from[expr[:rootEnd]]
	if !ok {
		return nil
	}
	return walkPath(current, expr[rootEnd:])
}

func walkPath(obj interface{}, path string) interface{} {
	current := obj
	i := 0
	for i < len(path) {
		if path[i] == '.' {
			i++
			continue
		}
		if path[i] == '[' {
			close := strings.Index(path[i:], "]")
			if close < 0 {
				return nil
			}
			close += i
			index, err := strconv.Atoi(path[i+1 : close])
			if err != nil {
				return nil
			}
			current = elementAt(current, index)
			if current == nil {
				return nil
			}
			i = close + 1
			continue
		}
		end := len(path)
		if idx := strings.IndexAny(path[i:], ".["); idx != -1 {
			end = i + idx
		}
		current = property(current, path[i:end])
		if current == nil {
			return nil
		}
		i = end
	}
	return current
}

func property(obj interface{}, name string) interface{} {
	if obj == nil {
		return nil
	}
	if aMap, ok := obj.(map[string]interface{}); ok {
		return aMap[name]
	}
	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() == reflect.Map {
		entry := val.MapIndex(reflect.ValueOf(name))
		if !entry.IsValid() {
			return nil
		}
		return entry.Interface()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}
	field := val.FieldByName(name)
	if !field.IsValid() {
		typ := val.Type()
		for i := 0; i < typ.NumField(); i++ {
			if strings.EqualFold(typ.Field(i).Name, name) {
				field = val.Field(i)
				break
			}
		}
	}
	if !field.IsValid() || !field.CanInterface() {
		return nil
	}
	return field.Interface()
}

func elementAt(obj interface{}, index int) interface{} {
	if obj == nil {
		return nil
	}
	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Slice && val.Kind() != reflect.Array {
		return nil
	}
	if index < 0 || index >= val.Len() {
		return nil
	}
	element := val.Index(index)
	if !element.CanInterface() {
		return nil
	}
	return element.Interface()
}

func convertCompatible(x, y interface{}) (interface{}, interface{}) {
	if isIntType(x) && isIntType(y) {
		return toInt(x), toInt(y)
	}
	if isFloatType(x) || isFloatType(y) {
		return toFloat64(x), toFloat64(y)
	}
	return x, y
}

func isIntType(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isFloatType(v interface{}) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func toInt(v interface{}) int {
	switch val := v.(type) {
	case int:
		return val
	case int8:
		return int(val)
	case int16:
		return int(val)
	case int32:
		return int(val)
	case int64:
		return int(val)
	case uint:
		return int(val)
	case uint8:
		return int(val)
	case uint16:
		return int(val)
	case uint32:
		return int(val)
	case uint64:
		return int(val)
	case float32:
		return int(val)
	case float64:
		return int(val)
	case string:
		i, _ := strconv.Atoi(val)
		return i
	}
	return 0
}

func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case float64:
		return val
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	}
	return 0
}

func add(x, y interface{}) interface{} {
	if strX, ok := x.(string); ok {
		if strY, ok := y.(string); ok {
			return strX + strY
		}
		return strX + fmt.Sprintf("%v", y)
	}
	if strY, ok := y.(string); ok {
		return fmt.Sprintf("%v", x) + strY
	}
	if isIntType(x) && isIntType(y) {
		return toInt(x) + toInt(y)
	}
	return toFloat64(x) + toFloat64(y)
}

func subtract(x, y interface{}) interface{} {
	if isIntType(x) && isIntType(y) {
		return toInt(x) - toInt(y)
	}
	return toFloat64(x) - toFloat64(y)
}

func multiply(x, y interface{}) interface{} {
	if isIntType(x) && isIntType(y) {
		return toInt(x) * toInt(y)
	}
	return toFloat64(x) * toFloat64(y)
}

func divide(x, y interface{}) interface{} {
	if toFloat64(y) == 0 {
		return math.Inf(1)
	}
	return toFloat64(x) / toFloat64(y)
}

func modulo(x, y interface{}) interface{} {
	if isIntType(x) && isIntType(y) && toInt(y) != 0 {
		return toInt(x) % toInt(y)
	}
	yFloat := toFloat64(y)
	if yFloat == 0 {
		return math.NaN()
	}
	return math.Mod(toFloat64(x), yFloat)
}

func compareValues(x, y interface{}) int {
	if strX, okX := x.(string); okX {
		if strY, okY := y.(string); okY {
			return strings.Compare(strX, strY)
		}
	}
	if isIntType(x) && isIntType(y) {
		xInt, yInt := toInt(x), toInt(y)
		switch {
		case xInt < yInt:
			return -1
		case xInt > yInt:
			return 1
		}
		return 0
	}
	xFloat, yFloat := toFloat64(x), toFloat64(y)
	switch {
	case xFloat < yFloat:
		return -1
	case xFloat > yFloat:
		return 1
	}
	return 0
}
