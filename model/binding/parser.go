// Package binding parses compact step input declarations of the form
// name![type](source/key). The required marker, type and location sections
// are each optional.
package binding

import (
	bstate "github.com/viant/bindly/state"
	"github.com/viant/parsly"
)

// Declaration is a parsed input declaration.
type Declaration struct {
	Name     string
	DataType string
	Required bool
	Location *bstate.Location
}

// Parse parses a declaration like value![int](step/double.result).
func Parse(input string) (*Declaration, error) {
	cursor := parsly.NewCursor("", []byte(input), 0)
	decl := &Declaration{Location: &bstate.Location{}}

	matched := cursor.MatchAfterOptional(whitespaceToken, identifierToken)
	if matched.Code != identifierToken.Code {
		return nil, cursor.NewError(identifierToken)
	}
	decl.Name = matched.Text(cursor)

	matched = cursor.MatchOne(requiredMarkerToken)
	if matched.Code == requiredMarkerToken.Code {
		decl.Required = true
	}

	matched = cursor.MatchOne(openSquareBracketToken)
	if matched.Code == openSquareBracketToken.Code {
		matched = cursor.MatchOne(dataTypeToken)
		if matched.Code != dataTypeToken.Code {
			return nil, cursor.NewError(dataTypeToken)
		}
		decl.DataType = matched.Text(cursor)
		matched = cursor.MatchOne(closeSquareBracketToken)
		if matched.Code != closeSquareBracketToken.Code {
			return nil, cursor.NewError(closeSquareBracketToken)
		}
	}

	matched = cursor.MatchAfterOptional(whitespaceToken, openParenToken)
	if matched.Code != openParenToken.Code {
		return decl, nil
	}

	matched = cursor.MatchAny(sourceToken, closeParenToken)
	switch matched.Code {
	case sourceToken.Code:
	case closeParenToken.Code:
		return decl, nil
	default:
		return nil, cursor.NewError(sourceToken)
	}
	decl.Location.Kind = matched.Text(cursor)

	matched = cursor.MatchOne(slashToken)
	if matched.Code != slashToken.Code {
		matched = cursor.MatchOne(closeParenToken)
		if matched.Code != closeParenToken.Code {
			return nil, cursor.NewError(closeParenToken)
		}
		return decl, nil
	}

	matched = cursor.MatchOne(keyToken)
	if matched.Code != keyToken.Code {
		return nil, cursor.NewError(keyToken)
	}
	decl.Location.In = matched.Text(cursor)

	matched = cursor.MatchOne(closeParenToken)
	if matched.Code != closeParenToken.Code {
		return nil, cursor.NewError(closeParenToken)
	}
	return decl, nil
}
