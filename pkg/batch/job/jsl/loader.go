package jsl

import (
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

var (
	mu                   sync.RWMutex
	loadedJobDefinitions = make(map[string]Job)
)

// ParseJobDefinition は JSL YAML のバイトデータをパースし、必須項目を検証します。
func ParseJobDefinition(data []byte) (Job, error) {
	var jobDef Job
	if err := yaml.Unmarshal(data, &jobDef); err != nil {
		return Job{}, exception.NewBatchError("jsl_loader", "JSL ファイルのパースに失敗しました", err, false, false)
	}

	if jobDef.ID == "" {
		return Job{}, exception.NewBatchErrorf("jsl_loader", "JSL ファイルに 'id' が定義されていません")
	}
	if jobDef.Name == "" {
		return Job{}, exception.NewBatchErrorf("jsl_loader", "JSL ジョブ '%s' に 'name' が定義されていません", jobDef.ID)
	}
	if len(jobDef.Steps) == 0 {
		return Job{}, exception.NewBatchErrorf("jsl_loader", "JSL ジョブ '%s' に 'steps' が定義されていません", jobDef.ID)
	}
	seen := make(map[string]struct{}, len(jobDef.Steps))
	for i, s := range jobDef.Steps {
		if s.ID == "" {
			return Job{}, exception.NewBatchErrorf("jsl_loader", "JSL ジョブ '%s' の %d 番目のステップに 'id' がありません", jobDef.ID, i+1)
		}
		if s.Tasklet.Ref == "" {
			return Job{}, exception.NewBatchErrorf("jsl_loader", "JSL ステップ '%s' に 'tasklet.ref' が定義されていません", s.ID)
		}
		if _, dup := seen[s.ID]; dup {
			return Job{}, exception.NewBatchErrorf("jsl_loader", "JSL ジョブ '%s' でステップID '%s' が重複しています", jobDef.ID, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return jobDef, nil
}

// LoadJSLDefinitionFromBytes は単一の JSL YAML をパースし、ロード済みの定義として登録します。
func LoadJSLDefinitionFromBytes(data []byte) error {
	jobDef, err := ParseJobDefinition(data)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := loadedJobDefinitions[jobDef.ID]; exists {
		return exception.NewBatchError("jsl_loader", fmt.Sprintf("JSL ジョブID '%s' が重複しています", jobDef.ID), nil, false, false)
	}
	loadedJobDefinitions[jobDef.ID] = jobDef
	logger.Infof("JSL ジョブ '%s' をロードしました (ステップ数: %d)。", jobDef.ID, len(jobDef.Steps))
	return nil
}

// GetJobDefinition はジョブIDで JSL 定義を取得します。
func GetJobDefinition(jobID string) (Job, bool) {
	mu.RLock()
	defer mu.RUnlock()
	job, ok := loadedJobDefinitions[jobID]
	return job, ok
}

// GetLoadedJobCount はロード済みのジョブ定義数を返します。
func GetLoadedJobCount() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(loadedJobDefinitions)
}
