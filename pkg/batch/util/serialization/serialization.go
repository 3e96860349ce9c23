package serialization

import (
	"encoding/json"
	"errors"

	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

const module = "serialization"

// MarshalExecutionContext は ExecutionContext を JSON バイトスライスにシリアライズします。
func MarshalExecutionContext(ec core.ExecutionContext) ([]byte, error) {
	if ec == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(ec)
	if err != nil {
		logger.Errorf("ExecutionContext のシリアライズに失敗しました: %v", err)
		return nil, exception.NewBatchError(module, "ExecutionContext のシリアライズに失敗しました", err, false, false)
	}
	return data, nil
}

// UnmarshalExecutionContext は JSON バイトスライスを ExecutionContext にデシリアライズします。
// 空データや "null" の場合は空の ExecutionContext を返します。
func UnmarshalExecutionContext(data []byte) (core.ExecutionContext, error) {
	ec := core.NewExecutionContext()
	if len(data) == 0 || string(data) == "null" {
		return ec, nil
	}
	if err := json.Unmarshal(data, &ec); err != nil {
		logger.Errorf("ExecutionContext のデシリアライズに失敗しました: %v", err)
		return nil, exception.NewBatchError(module, "ExecutionContext のデシリアライズに失敗しました", err, false, false)
	}
	return ec, nil
}

// MarshalFailures は []error を JSON バイトスライスにシリアライズします。
// error インターフェースは直接JSON化できないため、エラーメッセージの文字列スライスに変換します。
func MarshalFailures(failures []error) ([]byte, error) {
	msgs := make([]string, len(failures))
	for i, err := range failures {
		msgs[i] = err.Error()
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, exception.NewBatchError(module, "Failures のシリアライズに失敗しました", err, false, false)
	}
	return data, nil
}

// UnmarshalFailures は JSON バイトスライスを []error にデシリアライズします。
func UnmarshalFailures(data []byte) ([]error, error) {
	if len(data) == 0 || string(data) == "null" {
		return []error{}, nil
	}
	var msgs []string
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, exception.NewBatchError(module, "Failures のデシリアライズに失敗しました", err, false, false)
	}
	failures := make([]error, len(msgs))
	for i, msg := range msgs {
		failures[i] = errors.New(msg)
	}
	return failures, nil
}

// MarshalJobParameters は JobParameters を JSON バイトスライスにシリアライズします。
func MarshalJobParameters(params core.JobParameters) ([]byte, error) {
	if params.Params == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(params.Params)
	if err != nil {
		return nil, exception.NewBatchError(module, "JobParameters のシリアライズに失敗しました", err, false, false)
	}
	return data, nil
}

// UnmarshalJobParameters は JSON バイトスライスを JobParameters にデシリアライズします。
func UnmarshalJobParameters(data []byte) (core.JobParameters, error) {
	params := core.NewJobParameters()
	if len(data) == 0 || string(data) == "null" {
		return params, nil
	}
	if err := json.Unmarshal(data, &params.Params); err != nil {
		return core.JobParameters{}, exception.NewBatchError(module, "JobParameters のデシリアライズに失敗しました", err, false, false)
	}
	return params, nil
}
