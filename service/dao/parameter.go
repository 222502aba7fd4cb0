package dao

// StateParameter is the parameter name used to filter by entity state.
const StateParameter = "State"

// Parameter is a named List filter.
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter creates a parameter; several values build an any-of filter.
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

// WithState filters by one of the supplied states.
func WithState(states ...string) *Parameter {
	return NewParameter(StateParameter, states...)
}
