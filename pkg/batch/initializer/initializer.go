package initializer

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/lines_batch/pkg/batch/config"
	"github.com/tigerroll/lines_batch/pkg/batch/job/factory"
	"github.com/tigerroll/lines_batch/pkg/batch/job/joblauncher"
	"github.com/tigerroll/lines_batch/pkg/batch/job/jsl"
	"github.com/tigerroll/lines_batch/pkg/batch/repository"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// BatchInitializer はバッチアプリケーションの初期化処理を担当します。
type BatchInitializer struct {
	Config             *config.Config
	JSLDefinitionBytes []byte // JSL定義のバイトスライス
	JobRepository      repository.JobRepository
	JobFactory         *factory.JobFactory
	JobLauncher        *joblauncher.SimpleJobLauncher

	// ConnectRetries は JobRepository 生成時の最大試行回数です。
	ConnectRetries int
	RetryDelay     time.Duration
}

// NewBatchInitializer は新しい BatchInitializer のインスタンスを作成します。
func NewBatchInitializer(cfg *config.Config) *BatchInitializer {
	return &BatchInitializer{
		Config:         cfg,
		ConnectRetries: 5,
		RetryDelay:     2 * time.Second,
	}
}

// newRepositoryWithRetry は一時的なエラーの間だけ JobRepository の生成を再試行します。
func (bi *BatchInitializer) newRepositoryWithRetry(ctx context.Context) (repository.JobRepository, error) {
	attempts := bi.ConnectRetries
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		logger.Debugf("JobRepository の生成を試行中 (試行 %d/%d)...", i+1, attempts)
		repo, err := repository.NewJobRepository(ctx, bi.Config.Database)
		if err == nil {
			return repo, nil
		}
		lastErr = err
		if !exception.IsTemporary(err) {
			return nil, err
		}
		logger.Warnf("JobRepository の生成に失敗しました: %v", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(bi.RetryDelay):
		}
	}
	return nil, fmt.Errorf("JobRepository の生成に最大試行回数 (%d) 失敗しました: %w", attempts, lastErr)
}

// Initialize は設定のロード、JobRepository の生成、JSL のロード、JobFactory と JobLauncher の生成を行います。
// .env ファイルのロードは呼び出し元で行われます。
func (bi *BatchInitializer) Initialize(ctx context.Context) (*joblauncher.SimpleJobLauncher, *factory.JobFactory, error) {
	logger.Debugf("BatchInitializer.Initialize が呼び出されました。")

	cfg, err := config.NewBytesConfigLoader(bi.Config.EmbeddedConfig).Load()
	if err != nil {
		return nil, nil, exception.NewBatchError("initializer", "設定のロードに失敗しました", err, false, false)
	}
	cfg.EmbeddedConfig = bi.Config.EmbeddedConfig
	bi.Config = cfg

	logger.SetLogLevel(cfg.System.Logging.Level)
	logger.Infof("ロギングレベルを '%s' に設定しました。", logger.GetLogLevel())

	jobRepository, err := bi.newRepositoryWithRetry(ctx)
	if err != nil {
		return nil, nil, exception.NewBatchError("initializer", "Job Repository の生成に失敗しました", err, false, false)
	}
	bi.JobRepository = jobRepository

	if len(bi.JSLDefinitionBytes) > 0 {
		if err := jsl.LoadJSLDefinitionFromBytes(bi.JSLDefinitionBytes); err != nil {
			return nil, nil, exception.NewBatchError("initializer", "JSL 定義のロードに失敗しました", err, false, false)
		}
		logger.Infof("JSL 定義のロードが完了しました。ロードされたジョブ数: %d", jsl.GetLoadedJobCount())
	}

	bi.JobFactory = factory.NewJobFactory(bi.Config, bi.JobRepository)
	bi.JobLauncher = joblauncher.NewSimpleJobLauncher(bi.JobRepository, bi.JobFactory)
	logger.Debugf("JobFactory と SimpleJobLauncher を生成しました。")

	return bi.JobLauncher, bi.JobFactory, nil
}

// Close は BatchInitializer が保持するリソースを解放します。
func (bi *BatchInitializer) Close() error {
	if bi.JobRepository == nil {
		return nil
	}
	if err := bi.JobRepository.Close(); err != nil {
		logger.Errorf("Job Repository のクローズに失敗しました: %v", err)
		return fmt.Errorf("Job Repository クローズエラー: %w", err)
	}
	logger.Infof("Job Repository を正常にクローズしました。")
	return nil
}
