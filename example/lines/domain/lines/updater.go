package lines

import (
	"context"
	"fmt"
	"time"

	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	logger "github.com/tigerroll/lines_batch/pkg/batch/util/logger"
)

// DefaultKey は Line のリストを保持するコンテキストキーです。
const DefaultKey = "lines"

// ErrorPolicy は Load/Transform/Save のエラーの扱いを決めます。
type ErrorPolicy string

const (
	// PolicyStrict はエラーを呼び出し元に返します。
	PolicyStrict ErrorPolicy = "strict"
	// PolicyLenient はエラーをログに出力して処理を続けます。
	PolicyLenient ErrorPolicy = "lenient"
)

// ParseErrorPolicy は文字列から ErrorPolicy を返します。空文字列は PolicyStrict です。
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyLenient:
		return PolicyLenient, nil
	default:
		return "", fmt.Errorf("unknown error policy %q", s)
	}
}

// Option は Updater の設定を変更します。
type Option func(*Updater)

// WithCodec は Codec を差し替えます。
func WithCodec(c Codec) Option {
	return func(u *Updater) { u.codec = c }
}

// WithClock は現在時刻の取得方法を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(u *Updater) { u.now = now }
}

// WithKey はコンテキストキーを変更します。
func WithKey(key string) Option {
	return func(u *Updater) { u.key = key }
}

// WithErrorPolicy はエラーポリシーを設定します。
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(u *Updater) { u.policy = p }
}

// Updater は共有コンテキストから Line のリストを読み込み、age を更新して書き戻します。
// 1回の Load → Transform → Save のサイクルで使われます。
type Updater struct {
	store  ContextStore
	codec  Codec
	now    func() time.Time
	key    string
	policy ErrorPolicy

	lines   []*Line
	loaded  bool
	loadErr error
}

// NewUpdater は store を読み書きする Updater を作成します。
func NewUpdater(store ContextStore, opts ...Option) *Updater {
	u := &Updater{
		store:  store,
		codec:  JSONCodec{},
		now:    time.Now,
		key:    DefaultKey,
		policy: PolicyStrict,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Lines は現在のリストを返します。
func (u *Updater) Lines() []*Line {
	return u.lines
}

func (u *Updater) lenient() bool {
	return u.policy == PolicyLenient
}

// Load はコンテキストからリストを読み込みます。
// strict ではキーがない場合や不正な値の場合に ErrDeserialization を返します。
// lenient ではエラーをログに出力し、空のリストで続行します。
func (u *Updater) Load(ctx context.Context) error {
	u.lines = nil
	u.loaded = false
	u.loadErr = nil

	text, ok := u.store.Get(u.key)
	var err error
	if !ok {
		err = newError(ErrDeserialization, fmt.Sprintf("コンテキストにキー '%s' がありません", u.key), nil)
	} else {
		u.lines, err = Load(u.codec, text)
	}

	if err != nil {
		if u.lenient() {
			logger.Warnf("キー '%s' の読み込みに失敗したため空のリストで続行します: %v", u.key, err)
			u.lines = make([]*Line, 0)
			u.loaded = true
			return nil
		}
		u.loadErr = err
		return err
	}

	u.loaded = true
	logger.Debugf("キー '%s' から %d 件のレコードを読み込みました。", u.key, len(u.lines))
	return nil
}

// Transform は各レコードの age を現在の年と dob の年の差に更新します。
// レコードごとに ctx を確認し、キャンセルされた場合は更新済みのレコードをそのままにして終了します。
func (u *Updater) Transform(ctx context.Context) (core.RepeatStatus, error) {
	if u.loadErr != nil {
		return core.RepeatStatusFinished, u.loadErr
	}
	year := u.now().Year()
	for i, line := range u.lines {
		if err := ctx.Err(); err != nil {
			return core.RepeatStatusFinished, err
		}
		dob, ok := line.DOB()
		if !ok {
			err := newError(ErrMissingField, fmt.Sprintf("%d 番目のレコードに dob がありません", i), nil)
			if u.lenient() {
				logger.Warnf("%v (レコードは変更しません)", err)
				continue
			}
			return core.RepeatStatusFinished, err
		}
		line.SetAge(year - dob.Year)
	}
	return core.RepeatStatusFinished, nil
}

// Save はリストをエンコードしてコンテキストに書き戻します。
// strict で Load が成功していない場合は何もしません。
func (u *Updater) Save(ctx context.Context) error {
	if !u.loaded {
		if u.lenient() {
			u.lines = make([]*Line, 0)
		} else {
			logger.Debugf("キー '%s' は読み込まれていないため書き戻しません。", u.key)
			return nil
		}
	}

	text, err := Save(u.codec, u.lines)
	if err != nil {
		if u.lenient() {
			logger.Warnf("キー '%s' の書き込みに失敗しました: %v", u.key, err)
			return nil
		}
		return err
	}
	u.store.Put(u.key, text)
	logger.Debugf("キー '%s' に %d 件のレコードを書き戻しました。", u.key, len(u.lines))
	return nil
}

// Load は codec で text をデコードします。失敗した場合は ErrDeserialization を返します。
func Load(codec Codec, text string) ([]*Line, error) {
	lines, err := codec.Decode(text)
	if err != nil {
		return nil, newError(ErrDeserialization, "レコードのデコードに失敗しました", err)
	}
	return lines, nil
}

// Transform は lines の age を now の年を基準に更新します。
// dob のないレコードがあれば ErrMissingField を返します。それより前のレコードは更新済みのままです。
func Transform(lines []*Line, now time.Time) error {
	year := now.Year()
	for i, line := range lines {
		dob, ok := line.DOB()
		if !ok {
			return newError(ErrMissingField, fmt.Sprintf("%d 番目のレコードに dob がありません", i), nil)
		}
		line.SetAge(year - dob.Year)
	}
	return nil
}

// Save は codec で lines をエンコードします。失敗した場合は ErrSerialization を返します。
func Save(codec Codec, lines []*Line) (string, error) {
	text, err := codec.Encode(lines)
	if err != nil {
		return "", newError(ErrSerialization, "レコードのエンコードに失敗しました", err)
	}
	return text, nil
}
