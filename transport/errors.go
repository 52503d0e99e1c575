package transport

import "errors"

var ErrFrameTooLarge = errors.New("transport: frame length exceeds maximum")
