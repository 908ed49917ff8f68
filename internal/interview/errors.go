package interview

import "errors"

var (
	// ErrNoActiveSession is returned by read and navigation operations
	// when the user has not completed a registration yet.
	ErrNoActiveSession = errors.New("no active interview session")

	// ErrResultNotReady is returned by Result before any successful
	// finalize for the session.
	ErrResultNotReady = errors.New("evaluation result is not ready")
)
