package eventstream

import "errors"

// ErrNilEvent indicates a nil node event payload was provided to a publisher.
var ErrNilEvent = errors.New("nil node event")
