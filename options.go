package whatsdump

import (
	"log/slog"

	"github.com/rusq/fsadapter"

	"github.com/rusq/whatsdump/internal/network"
)

// Option is the signature of the option-setting function.
type Option func(*Session)

// WithFilesystem sets the filesystem adapter to use for the session.  If this
// option is not given, exports and dumps that need a filesystem will fail.
func WithFilesystem(fs fsadapter.FS) Option {
	return func(s *Session) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithLimits sets the rate limits to use for the session.  If this option is
// not given, the session is initialised with [network.DefLimits].  Invalid
// limits make New fail with the validation errors.
func WithLimits(l network.Limits) Option {
	return func(s *Session) {
		s.cfg.limits = l
	}
}

// WithLogger sets the logger to use for the session.  If this option is not
// given, the default logger writes to STDERR.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithInvoker sets the tool server client to use for the session.  It is
// used in tests to substitute a mock.
func WithInvoker(cl invoker) Option {
	return func(s *Session) {
		if cl != nil {
			s.client = cl
		}
	}
}
