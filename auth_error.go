package whatsdump

import "fmt"

// AuthError is the error returned by Authenticate, the underlying Err
// contains the reason reported by the bridge.
type AuthError struct {
	Err error
}

func (ae *AuthError) Error() string {
	return fmt.Sprintf("failed to authenticate: %s", ae.Err)
}

func (ae *AuthError) Unwrap() error {
	return ae.Err
}

func (ae *AuthError) Is(target error) bool {
	return target == ae.Err
}
