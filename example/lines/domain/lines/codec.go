package lines

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Codec は Line のリストと文字列表現の相互変換を行います。
type Codec interface {
	Decode(text string) ([]*Line, error)
	Encode(lines []*Line) (string, error)
}

// JSONCodec は JSON 配列形式の Codec です。
// フィールドの順序と age 以外の値は入力のまま保持されます。
type JSONCodec struct{}

var _ Codec = JSONCodec{}

// Decode は JSON 配列をパースします。各要素はオブジェクトでなければなりません。
func (JSONCodec) Decode(text string) ([]*Line, error) {
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("invalid JSON")
	}
	root := gjson.Parse(text)
	if !root.IsArray() {
		return nil, fmt.Errorf("expected a JSON array, got %s", root.Type)
	}

	var (
		lines  = make([]*Line, 0)
		decErr error
	)
	root.ForEach(func(_, elem gjson.Result) bool {
		line, err := decodeLine(elem)
		if err != nil {
			decErr = fmt.Errorf("element %d: %w", len(lines), err)
			return false
		}
		lines = append(lines, line)
		return true
	})
	if decErr != nil {
		return nil, decErr
	}
	return lines, nil
}

func decodeLine(elem gjson.Result) (*Line, error) {
	if !elem.IsObject() {
		return nil, fmt.Errorf("expected a JSON object, got %s", elem.Type)
	}
	var (
		fields []Field
		dob    *Date
		err    error
	)
	elem.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		fields = append(fields, Field{Key: key.Raw, Name: name, Value: value.Raw})
		if name != "dob" {
			return true
		}
		// キーが重複している場合は後の値が優先される
		if value.Type == gjson.Null {
			dob = nil
			return true
		}
		var d Date
		if d, err = parseDate(value); err != nil {
			err = fmt.Errorf("dob: %w", err)
			return false
		}
		dob = &d
		return true
	})
	if err != nil {
		return nil, err
	}
	return NewLine(dob, fields...), nil
}

// parseDate は "YYYY-MM-DD"、RFC 3339 のタイムスタンプ、または [year, month, day] を受け付けます。
func parseDate(v gjson.Result) (Date, error) {
	switch {
	case v.Type == gjson.String:
		s := v.String()
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return Date{}, fmt.Errorf("unsupported date format %q", s)
		}
		return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
	case v.IsArray():
		parts := v.Array()
		if len(parts) != 3 {
			return Date{}, fmt.Errorf("expected [year, month, day], got %d elements", len(parts))
		}
		for _, p := range parts {
			if p.Type != gjson.Number || p.Num != math.Trunc(p.Num) {
				return Date{}, fmt.Errorf("expected integer date parts, got %s", p.Raw)
			}
		}
		y, m, d := int(parts[0].Int()), int(parts[1].Int()), int(parts[2].Int())
		t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
		if t.Year() != y || int(t.Month()) != m || t.Day() != d {
			return Date{}, fmt.Errorf("invalid date %v", v.Raw)
		}
		return Date{Year: y, Month: time.Month(m), Day: d}, nil
	default:
		return Date{}, fmt.Errorf("unsupported date value %s", v.Raw)
	}
}

// Encode はリストを JSON 配列にします。空のリストは "[]" になります。
func (JSONCodec) Encode(lines []*Line) (string, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, line := range lines {
		if line == nil {
			return "", fmt.Errorf("element %d is nil", i)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('{')
		for j, f := range line.Fields() {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(f.Key)
			b.WriteByte(':')
			b.WriteString(f.Value)
		}
		b.WriteByte('}')
	}
	b.WriteByte(']')

	out := b.String()
	if !gjson.Valid(out) {
		return "", fmt.Errorf("encoded output is not valid JSON")
	}
	return out, nil
}
