package clipboard

import (
	"errors"
	"testing"
)

func TestServiceCopy(t *testing.T) {
	writeFailure := errors.New("xclip exited")
	testCases := []struct {
		name        string
		unsupported bool
		writeError  error
		expected    error
	}{
		{name: "copies text"},
		{name: "unsupported host", unsupported: true, expected: ErrUnavailable},
		{name: "write failure", writeError: writeFailure, expected: writeFailure},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var copied string
			service := &Service{
				unsupported: func() bool { return testCase.unsupported },
				writeAll: func(text string) error {
					copied = text
					return testCase.writeError
				},
			}
			err := service.Copy("report")
			if !errors.Is(err, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, err)
			}
			if testCase.expected == nil && copied != "report" {
				t.Fatalf("expected text to reach the clipboard, got %q", copied)
			}
			if testCase.unsupported && copied != "" {
				t.Fatalf("unsupported host must not attempt a write")
			}
		})
	}
}
