package dao

// Parameter is a named list filter criterion.
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter creates a criterion; multiple values become a slice.
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
