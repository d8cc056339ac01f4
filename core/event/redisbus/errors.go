package redisbus

import "errors"

var (
	ErrSubscribe = errors.New("redisbus: subscribe failed")
	ErrPublish   = errors.New("redisbus: publish failed")
)
