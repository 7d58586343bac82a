package extension

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/x"
)

func TestTypes_Lookup(t *testing.T) {
	types := NewTypes()

	testCases := []struct {
		dataType string
		expect   reflect.Type
	}{
		{dataType: "string", expect: reflect.TypeOf("")},
		{dataType: "int", expect: reflect.TypeOf(0)},
		{dataType: "float", expect: reflect.TypeOf(0.0)},
		{dataType: "bool", expect: reflect.TypeOf(false)},
		{dataType: "[]string", expect: reflect.TypeOf([]string{})},
		{dataType: "[][]int", expect: reflect.TypeOf([][]int{})},
		{dataType: "map[string]int", expect: reflect.TypeOf(map[string]int{})},
		{dataType: "map[string][]string", expect: reflect.TypeOf(map[string][]string{})},
	}
	for _, testCase := range testCases {
		actual := types.Lookup(testCase.dataType)
		require.NotNil(t, actual, testCase.dataType)
		assert.Equal(t, testCase.expect, actual.Type, testCase.dataType)
	}

	assert.Nil(t, types.Lookup("unregistered"))
	assert.Nil(t, types.Lookup("[]unregistered"))

	anyType := types.Lookup("any")
	require.NotNil(t, anyType)
	assert.Equal(t, reflect.Interface, anyType.Type.Kind())
}

type studyDocument struct {
	Title string
	Pages int
}

func TestTypes_RegisterCustom(t *testing.T) {
	types := NewTypes()
	types.Register(x.NewType(reflect.TypeOf(studyDocument{}), x.WithName("studyDocument")))

	found := types.Lookup("studyDocument")
	require.NotNil(t, found)
	assert.Equal(t, reflect.TypeOf(studyDocument{}), found.Type)

	sliced := types.Lookup("[]studyDocument")
	require.NotNil(t, sliced)
	assert.Equal(t, reflect.TypeOf([]studyDocument{}), sliced.Type)
}
