package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// base はパッケージ全体で共有するロガーです。
var base = newBaseLogger()

func newBaseLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLogLevel はログレベルを設定します。
// 不明なレベルが指定された場合は INFO で続行します。
func SetLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		base.SetLevel(logrus.DebugLevel)
	case "INFO":
		base.SetLevel(logrus.InfoLevel)
	case "WARN", "WARNING":
		base.SetLevel(logrus.WarnLevel)
	case "ERROR":
		base.SetLevel(logrus.ErrorLevel)
	case "FATAL":
		base.SetLevel(logrus.FatalLevel)
	default:
		base.Warnf("不明なログレベル '%s' が指定されました。INFO レベルで続行します。", level)
		base.SetLevel(logrus.InfoLevel)
	}
}

// GetLogLevel は現在のログレベルを大文字の文字列で返します。
func GetLogLevel() string {
	lvl := base.GetLevel()
	if lvl == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(lvl.String())
}

// SetOutput はログの出力先を差し替えます。テストで利用します。
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// WithFields は構造化フィールド付きのエントリを返します。
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return base.WithFields(logrus.Fields(fields))
}

// Debugf は DEBUG レベルのログを出力します。
func Debugf(format string, v ...interface{}) {
	base.Debugf(format, v...)
}

// Infof は INFO レベルのログを出力します。
func Infof(format string, v ...interface{}) {
	base.Infof(format, v...)
}

// Warnf は WARN レベルのログを出力します。
func Warnf(format string, v ...interface{}) {
	base.Warnf(format, v...)
}

// Errorf は ERROR レベルのログを出力します。
func Errorf(format string, v ...interface{}) {
	base.Errorf(format, v...)
}

// Fatalf は FATAL レベルのログを出力し、プログラムを終了します。
func Fatalf(format string, v ...interface{}) {
	base.Fatalf(format, v...)
}
