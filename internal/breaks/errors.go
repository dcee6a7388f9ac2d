package breaks

import "errors"

var ErrBreakActive = errors.New("break already active")
