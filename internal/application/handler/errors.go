package handler

import (
	"errors"
)

var ErrHandlerNilRequest = errors.New("no request to handle")
