package binding

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	identifierCode
	requiredMarkerCode
	openSquareBracketCode
	closeSquareBracketCode
	openParenCode
	closeParenCode
	slashCode
	dataTypeCode
	sourceCode
	keyCode
)

// Token definitions
var (
	whitespaceToken         = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	identifierToken         = parsly.NewToken(identifierCode, "Identifier", newIdentifierMatcher())
	requiredMarkerToken     = parsly.NewToken(requiredMarkerCode, "!", matcher.NewByte('!'))
	openSquareBracketToken  = parsly.NewToken(openSquareBracketCode, "[", matcher.NewByte('['))
	closeSquareBracketToken = parsly.NewToken(closeSquareBracketCode, "]", matcher.NewByte(']'))
	openParenToken          = parsly.NewToken(openParenCode, "(", matcher.NewByte('('))
	closeParenToken         = parsly.NewToken(closeParenCode, ")", matcher.NewByte(')'))
	slashToken              = parsly.NewToken(slashCode, "/", matcher.NewByte('/'))
	dataTypeToken           = parsly.NewToken(dataTypeCode, "DataType", newDataTypeMatcher())
	sourceToken             = parsly.NewToken(sourceCode, "Source", newSourceMatcher())
	keyToken                = parsly.NewToken(keyCode, "Key", newKeyMatcher())
)

func newIdentifierMatcher() parsly.Matcher { return &identifierMatcher{} }
func newDataTypeMatcher() parsly.Matcher   { return &dataTypeMatcher{} }
func newSourceMatcher() parsly.Matcher     { return &sourceMatcher{} }
func newKeyMatcher() parsly.Matcher        { return &keyMatcher{} }

// identifierMatcher matches input names
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		if isLetter(input[i]) || isDigit(input[i]) || input[i] == '_' {
			matched++
			continue
		}
		break
	}
	return matched
}

// dataTypeMatcher captures everything until the closing square bracket,
// honouring nested brackets in slice and map types
type dataTypeMatcher struct{}

func (m *dataTypeMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	depth := 0
	matched := 0
	for i := pos; i < size; i++ {
		if input[i] == '[' {
			depth++
		}
		if input[i] == ']' {
			if depth == 0 {
				break
			}
			depth--
		}
		matched++
	}
	return matched
}

// sourceMatcher captures the source part before the slash
type sourceMatcher struct{}

func (m *sourceMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	matched := 0
	for i := pos; i < size; i++ {
		if input[i] == '/' || input[i] == ')' {
			break
		}
		matched++
	}
	return matched
}

// keyMatcher captures the key part after the slash
type keyMatcher struct{}

func (m *keyMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	matched := 0
	for i := pos; i < size; i++ {
		if input[i] == ')' {
			break
		}
		matched++
	}
	return matched
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
