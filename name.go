package trap

// Name is the Go type for fault names. Use the pre-defined names in trap.N, or define your own with Name("...").
type Name string

// N defines the well-known fault names.
var N = struct {
	Generic         Name // Unclassified fault.
	OutOfMemory     Name // A memory budget or allocation limit was exhausted.
	InvalidArgument Name // An argument passed to the faulting code is invalid.
	OutOfRange      Name // An index or value is outside of its permissible range.
	IllegalState    Name // The operation is not allowed in the current state.
	NotImplemented  Name // The functionality is not yet implemented.
	Internal        Name // Generic internal fault.
}{
	Generic:         "Generic",
	OutOfMemory:     "OutOfMemory",
	InvalidArgument: "InvalidArgument",
	OutOfRange:      "OutOfRange",
	IllegalState:    "IllegalState",
	NotImplemented:  "NotImplemented",
	Internal:        "Internal",
}

// String returns the name as string.
func (n Name) String() string {
	return string(n)
}

// orGeneric returns N.Generic if the name is empty, the name itself otherwise.
func (n Name) orGeneric() Name {
	if n == "" {
		return N.Generic
	}
	return n
}
