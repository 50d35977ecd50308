package kernel

// Error describes a kernel error. Kernel errors are declared up front as
// package-level pointers to Error values; memory management is what is being
// brought up, so nothing on these code paths may call errors.New or allocate.
//
// Errors are compared by identity:
//
//   if err == vmm.ErrInvalidMapping { ... }
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
