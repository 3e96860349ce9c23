package jsl

// Job は JSL ファイルのトップレベル構造です。
// ステップは定義された順に逐次実行されます。
type Job struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Listeners   []ComponentRef `yaml:"listeners,omitempty"` // ジョブレベルのリスナー
	Steps       []Step         `yaml:"steps"`
}

// Step はジョブ内の単一の Tasklet ステップです。
type Step struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description,omitempty"`
	Tasklet     ComponentRef   `yaml:"tasklet"`
	Listeners   []ComponentRef `yaml:"listeners,omitempty"`
}

// ComponentRef は登録済みコンポーネント (Tasklet, リスナー) への参照です。
type ComponentRef struct {
	Ref        string            `yaml:"ref"`
	Properties map[string]string `yaml:"properties,omitempty"` // JSLから注入されるプロパティ
}
