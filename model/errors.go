package model

import "errors"

// ErrScriptExhausted is returned by Scripted when all canned responses have
// been consumed.
var ErrScriptExhausted = errors.New("scripted client exhausted")
