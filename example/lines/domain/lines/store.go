package lines

import (
	"encoding/json"

	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// ContextStore は実行コンテキストの文字列値の読み書きを行います。
type ContextStore interface {
	Get(key string) (string, bool)
	Put(key, value string)
}

// ExecutionContextStore は core.ExecutionContext を ContextStore として扱うアダプターです。
type ExecutionContextStore struct {
	ec core.ExecutionContext
}

// NewExecutionContextStore は ec をラップした ContextStore を返します。
func NewExecutionContextStore(ec core.ExecutionContext) *ExecutionContextStore {
	return &ExecutionContextStore{ec: ec}
}

// Get は key の値を文字列で返します。
// 文字列以外の値 (リポジトリから復元された JSON 値など) は JSON に再エンコードされます。
func (s *ExecutionContextStore) Get(key string) (string, bool) {
	v, ok := s.ec.Get(key)
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case []byte:
		return string(val), true
	default:
		data, err := json.Marshal(val)
		if err != nil {
			logger.Warnf("ExecutionContext のキー '%s' の値 (%T) を文字列に変換できません: %v", key, val, err)
			return "", false
		}
		return string(data), true
	}
}

func (s *ExecutionContextStore) Put(key, value string) {
	s.ec.Put(key, value)
}

var _ ContextStore = (*ExecutionContextStore)(nil)
