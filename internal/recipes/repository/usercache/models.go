package usercache

import "errors"

var ErrMiss = errors.New("user not cached")
