//go:build !darwin

package testutil

import "errors"

var errCloneUnsupported = errors.New("copy-on-write clone unsupported on this platform")

// cloneFile always fails off darwin; CopyFile then streams the bytes.
func cloneFile(string, string) error {
	return errCloneUnsupported
}
