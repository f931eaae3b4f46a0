package merge

import "fmt"

// BundleFormatError reports a zip bundle that cannot be used.
type BundleFormatError struct {
	Reason string
	Err    error
}

func (e *BundleFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid bundle: %s: %v", e.Reason, e.Err)
	}
	return "invalid bundle: " + e.Reason
}

func (e *BundleFormatError) Unwrap() error { return e.Err }

// UnsupportedMediaError reports a bundle whose media kind cannot be composed.
type UnsupportedMediaError struct {
	Kind string
}

func (e *UnsupportedMediaError) Error() string {
	return fmt.Sprintf("unsupported media type: %q", e.Kind)
}

// MergeError reports an image decode, compose, or encode failure.
type MergeError struct {
	Op  string
	Err error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge %s: %v", e.Op, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }
