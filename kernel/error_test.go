package kernel

import "testing"

func TestKernelError(t *testing.T) {
	err := &Error{
		Module:  "vmm",
		Message: "virtual address is not mapped",
	}

	if err.Error() != err.Message {
		t.Fatalf("expected err.Error() to return %q; got %q", err.Message, err.Error())
	}

	var asIface error = err
	if asIface.Error() != err.Message {
		t.Fatalf("expected error interface to report %q; got %q", err.Message, asIface.Error())
	}
}
