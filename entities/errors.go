package entities

import "errors"

var ErrZeroEpochLength = errors.New("epoch length is zero")
var ErrEpochIndexOutOfRange = errors.New("epoch index is not below epoch length")
var ErrMissingField = errors.New("missing field in response")
var ErrRPCResponse = errors.New("invalid rpc response")
