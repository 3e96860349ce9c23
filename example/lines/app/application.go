package app

import (
	"context"
	"errors"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"

	linesTasklet "github.com/tigerroll/lines_batch/example/lines/step/tasklet"
	"github.com/tigerroll/lines_batch/pkg/batch/config"
	"github.com/tigerroll/lines_batch/pkg/batch/initializer"
	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/job/factory"
	"github.com/tigerroll/lines_batch/pkg/batch/job/joblauncher"
	joblistener "github.com/tigerroll/lines_batch/pkg/batch/job/listener"
	"github.com/tigerroll/lines_batch/pkg/batch/repository"
	steplistener "github.com/tigerroll/lines_batch/pkg/batch/step/listener"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// registerApplicationComponents はアプリケーション固有のコンポーネントを JobFactory に登録します。
func registerApplicationComponents(jobFactory *factory.JobFactory) {
	jobFactory.RegisterTaskletBuilder("linesProcessor", func(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (core.Tasklet, error) {
		return linesTasklet.NewLinesProcessor(cfg, repo, properties)
	})
	jobFactory.RegisterTaskletBuilder("contextSeedTasklet", linesTasklet.NewContextSeedTasklet)
	jobFactory.RegisterTaskletBuilder("contextDumpTasklet", linesTasklet.NewContextDumpTasklet)

	jobFactory.RegisterStepExecutionListenerBuilder("loggingStepListener", func(cfg *config.Config) (core.StepExecutionListener, error) {
		return steplistener.NewLoggingListener(&cfg.System.Logging), nil
	})
	jobFactory.RegisterJobListenerBuilder("loggingJobListener", func(cfg *config.Config) (core.JobExecutionListener, error) {
		return joblistener.NewLoggingJobListener(&cfg.System.Logging), nil
	})

	logger.Debugf("全てのアプリケーションコンポーネントビルダーを登録しました。")
}

// jslPlaceholder は JSL 内の ${VAR} 形式のプレースホルダです。
// 波括弧のない $ はデータの一部として扱い、展開しません。
var jslPlaceholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandJSL は JSL 内の ${VAR} だけを環境変数の値で置き換えます。
func expandJSL(jsl []byte) []byte {
	return jslPlaceholder.ReplaceAllFunc(jsl, func(m []byte) []byte {
		name := jslPlaceholder.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// setupApplication は .env のロードと初期化処理を行い、JobLauncher を返します。
// JSL 内の ${VAR} は環境変数で展開されます。
func setupApplication(ctx context.Context, envFilePath string, embeddedConfig, embeddedJSL []byte) (*initializer.BatchInitializer, joblauncher.JobLauncher, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env ファイル '%s' のロードに失敗しました (本番環境では環境変数を使用): %v", envFilePath, err)
		} else {
			logger.Infof(".env ファイル '%s' をロードしました。", envFilePath)
		}
	} else {
		logger.Debugf(".env ファイルのパスが指定されていないため、ロードをスキップします。")
	}

	batchInitializer := initializer.NewBatchInitializer(&config.Config{EmbeddedConfig: embeddedConfig})
	batchInitializer.JSLDefinitionBytes = expandJSL(embeddedJSL)

	jobLauncher, jobFactory, err := batchInitializer.Initialize(ctx)
	if err != nil {
		if closeErr := batchInitializer.Close(); closeErr != nil {
			logger.Errorf("初期化失敗後のリソースクローズ中にエラーが発生しました: %v", closeErr)
		}
		return nil, nil, exception.NewBatchError("app", "バッチアプリケーションの初期化に失敗しました", err, false, false)
	}
	registerApplicationComponents(jobFactory)
	logger.Infof("バッチアプリケーションの初期化が完了しました。")

	return batchInitializer, jobLauncher, nil
}

// executeJob は設定されたジョブを実行し、その結果に基づいて終了コードを返します。
func executeJob(ctx context.Context, jobLauncher joblauncher.JobLauncher, appConfig *config.Config) int {
	jobName := appConfig.Batch.JobName
	if jobName == "" {
		logger.Errorf("設定ファイルにジョブ名が指定されていません。")
		return 1
	}
	logger.Infof("実行する Job: '%s'", jobName)

	jobParams := core.NewJobParameters()
	jobParams.Put("process.date", time.Now().Format(time.DateOnly))

	jobExecution, err := jobLauncher.Launch(ctx, jobName, jobParams)
	return handleApplicationError(err, jobExecution, jobName)
}

// RunApplication はアプリケーションのメインロジックを実行し、終了コードを返します。
func RunApplication(ctx context.Context, envFilePath string, embeddedConfig, embeddedJSL []byte) int {
	batchInitializer, jobLauncher, err := setupApplication(ctx, envFilePath, embeddedConfig, embeddedJSL)
	if err != nil {
		logger.Errorf("%v", err)
		return 1
	}
	defer func() {
		if closeErr := batchInitializer.Close(); closeErr != nil {
			logger.Errorf("バッチアプリケーションのリソースクローズ中にエラーが発生しました: %v", closeErr)
		}
	}()

	return executeJob(ctx, jobLauncher, batchInitializer.Config)
}

// handleApplicationError はアプリケーションのエラーを処理し、適切な終了コードを返します。
func handleApplicationError(err error, jobExecution *core.JobExecution, jobName string) int {
	hasError := false

	if err != nil {
		hasError = true
		if jobExecution != nil {
			logger.Errorf("Job '%s' (Execution ID: %s) の実行中にエラーが発生しました: %v", jobName, jobExecution.ID, err)
			logger.Errorf("Job '%s' (Execution ID: %s) の最終状態: %s, ExitStatus: %s",
				jobName, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
		} else {
			logger.Errorf("Job '%s' の起動処理中にエラーが発生しました: %v", jobName, err)
		}

		var be *exception.BatchError
		if errors.As(err, &be) {
			logger.Errorf("BatchError 詳細: Module=%s, Message=%s, OriginalErr=%v", be.Module, be.Message, be.OriginalErr)
			if be.StackTrace != "" {
				logger.Debugf("BatchError StackTrace:\n%s", be.StackTrace)
			}
		}
	}

	if jobExecution == nil {
		return 1
	}
	if jobExecution.Status != core.BatchStatusCompleted {
		hasError = true
		logger.Errorf("Job '%s' は %s で終了しました。詳細は JobExecution (ID: %s) およびログを確認してください。",
			jobExecution.JobName, jobExecution.Status, jobExecution.ID)
		for i, f := range jobExecution.Failures {
			logger.Errorf("  - 失敗 %d: %v", i+1, f)
		}
	}

	if hasError {
		return 1
	}
	return 0
}
