package lines

import (
	"fmt"
	"strconv"
	"time"
)

// Date は時刻を持たない暦日です。
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Field はレコードの1フィールドです。
// Key と Value はどちらも入力の JSON 表現そのままで、保存時にもそのまま書き戻されます。
type Field struct {
	Key   string // 引用符付きの JSON 文字列 (例: "\"name\"")
	Name  string
	Value string
}

// Line は入力リストの1レコードです。
// age 以外のフィールドは解釈されず、元の順序のまま保持されます。
type Line struct {
	fields []Field
	dob    *Date
	age    int
	ageSet bool
	ageIdx []int // 入力の age フィールドの位置 (重複したキーも含む)
}

// NewLine はフィールドの JSON 表現から Line を作成します。
// dob が nil の場合、そのレコードは Transform で ErrMissingField になります。
func NewLine(dob *Date, fields ...Field) *Line {
	l := &Line{fields: fields, dob: dob}
	for i, f := range fields {
		if f.Name == "age" {
			l.ageIdx = append(l.ageIdx, i)
		}
	}
	return l
}

// DOB は生年月日を返します。dob がないか null の場合は false を返します。
func (l *Line) DOB() (Date, bool) {
	if l.dob == nil {
		return Date{}, false
	}
	return *l.dob, true
}

// Age は計算済みの年齢を返します。Transform 前は false を返します。
func (l *Line) Age() (int, bool) {
	return l.age, l.ageSet
}

// SetAge は年齢を設定します。
func (l *Line) SetAge(age int) {
	l.age = age
	l.ageSet = true
}

// Field は名前でフィールドの JSON 表現を返します。
func (l *Line) Field(name string) (string, bool) {
	if name == "age" && l.ageSet {
		return strconv.Itoa(l.age), true
	}
	for _, f := range l.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Fields は age を反映したフィールドを保存時の順序で返します。
// 入力に age があった場合は同じ位置に、なかった場合は末尾に置かれます。
// age のキーが重複している場合はすべて同じ値になります。
func (l *Line) Fields() []Field {
	out := make([]Field, len(l.fields), len(l.fields)+1)
	copy(out, l.fields)
	if !l.ageSet {
		return out
	}
	age := strconv.Itoa(l.age)
	if len(l.ageIdx) > 0 {
		for _, i := range l.ageIdx {
			out[i].Value = age
		}
		return out
	}
	return append(out, Field{Key: `"age"`, Name: "age", Value: age})
}
