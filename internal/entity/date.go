package entity

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Date 日历日期（无时区），JSON格式 YYYY-MM-DD
type Date struct {
	time.Time
}

// NewDate 截取到日期
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DatePtr 返回指定日期的指针
func DatePtr(t time.Time) *Date {
	d := NewDate(t)
	return &d
}

// ParseDate 接受 YYYY-MM-DD 或 RFC3339
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return NewDate(t), nil
}

func (d Date) String() string {
	return d.Time.Format(DateLayout)
}

// Before 按日期比较
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// DaysUntil 从 from 到 d 的天数（可为负）
func (d Date) DaysUntil(from Date) int {
	return int(d.Time.Sub(from.Time).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	return fmt.Errorf("failed to scan Date: %v", value)
}

// GormDataType gorm列类型
func (Date) GormDataType() string {
	return "date"
}

// MinDate 返回非空日期中最早的一个
func MinDate(dates ...*Date) *Date {
	var min *Date
	for _, d := range dates {
		if d == nil || d.IsZero() {
			continue
		}
		if min == nil || d.Before(*min) {
			v := *d
			min = &v
		}
	}
	return min
}
