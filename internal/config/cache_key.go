package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// ReloadMarkerKey returns the well-known key for a student's reload marker.
// The marker survives a page navigation and is consumed on the next load.
func (r *CacheKeyStruct) ReloadMarkerKey(studentID int) string {
	return fmt.Sprintf("student:%d:reload_marker", studentID)
}

// StudentAnswerMirrorKey returns the cache key for a student's mirrored
// answer state, used to rehydrate a session after a reload
func (r *CacheKeyStruct) StudentAnswerMirrorKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:answers", studentID, examID)
}

// ExamDefinitionKey returns the cache key for an exam's full definition
func (r *CacheKeyStruct) ExamDefinitionKey(examID string) string {
	return fmt.Sprintf("exam:%s:definition", examID)
}

var CacheKey = NewCacheKeyStruct()
