package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionKey returns the local-store key for one (exam, user) session.
// userKey is the student ID or guest ID.
func (r *CacheKeyStruct) SessionKey(examID, userKey string) string {
	return fmt.Sprintf("session:%s:exam:%s", userKey, examID)
}

// ExamPayloadKey returns the cache key under which the authoring system
// publishes the parsed exam document.
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

// ExamProgressChannel returns the pub/sub channel carrying live progress
// events for an exam, consumed by teacher dashboard monitors.
func (r *CacheKeyStruct) ExamProgressChannel(examID string) string {
	return fmt.Sprintf("exam:%s:progress", examID)
}

var CacheKey = NewCacheKeyStruct()
