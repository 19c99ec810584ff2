package lowering

// Slots names the variables the generated dispatch code uses. They only
// affect rendering; the graph itself refers to slots abstractly.
type Slots struct {
	State          string `json:"state" yaml:"state"`
	ExceptionState string `json:"exception_state" yaml:"exception_state"`
	FinallyPath    string `json:"finally_path" yaml:"finally_path"`
	FinallyStack   string `json:"finally_stack" yaml:"finally_stack"`
	Result         string `json:"result" yaml:"result"`
	Exception      string `json:"exception" yaml:"exception"`
	ReturnValue    string `json:"return_value" yaml:"return_value"`

	// Sentinel is the value a suspended call returns. When empty, suspend
	// calls are returned directly instead of being checked.
	Sentinel string `json:"sentinel" yaml:"sentinel"`
}

// DefaultSlots returns the default slot names
func DefaultSlots() Slots {
	return Slots{
		State:          "$state",
		ExceptionState: "$exceptionState",
		FinallyPath:    "$finallyPath",
		FinallyStack:   "$finallyStack",
		Result:         "$result",
		Exception:      "$exception",
		ReturnValue:    "$returnValue",
		Sentinel:       "SUSPENDED",
	}
}

// withDefaults fills empty names, except the sentinel which may be empty
func (s Slots) withDefaults() Slots {
	d := DefaultSlots()
	if s.State == "" {
		s.State = d.State
	}
	if s.ExceptionState == "" {
		s.ExceptionState = d.ExceptionState
	}
	if s.FinallyPath == "" {
		s.FinallyPath = d.FinallyPath
	}
	if s.FinallyStack == "" {
		s.FinallyStack = d.FinallyStack
	}
	if s.Result == "" {
		s.Result = d.Result
	}
	if s.Exception == "" {
		s.Exception = d.Exception
	}
	if s.ReturnValue == "" {
		s.ReturnValue = d.ReturnValue
	}
	return s
}
