package fleet

// Row is one raw input record.
type Row struct {
	// Number is the 1-based line the record started on.
	Number   int
	Instance string
	Rules    string

	// Fields is the number of columns read; zero means unknown.
	Fields int

	// Err is set when the line could not be decoded as CSV.
	Err error
}

// Spec is a validated provisioning request for one instance.
type Spec struct {
	Row      int
	Instance Instance
	Rules    []Rule
}

// AgentTypes returns the rule types in request order.
func (s Spec) AgentTypes() []AgentType {
	types := make([]AgentType, len(s.Rules))
	for i, r := range s.Rules {
		types[i] = r.Type
	}
	return types
}

// Batch is the outcome of parsing a set of rows.
type Batch struct {
	Specs   []Spec
	Invalid []RowError
}

// Total returns the number of rows the batch was built from.
func (b Batch) Total() int {
	return len(b.Specs) + len(b.Invalid)
}
