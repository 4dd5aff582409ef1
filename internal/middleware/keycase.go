package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
)

// 请求 key（snake 形式）改名
var requestRenames = map[string]string{
	"po_number": "order_number",
}

// 响应 key 改名，在转驼峰前匹配
var responseRenames = map[string]string{
	"order_number": "poNumber",
}

// opaqueKeys 值内部的 key 原样保留（审批关卡名、行ID等）
var opaqueKeys = map[string]bool{
	"approval_status": true,
	"metadata":        true,
	"line_metrics":    true,
	"line_progress":   true,
}

// ToSnake customTimestamp -> custom_timestamp, orderLineID -> order_line_id
func ToSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if prev != '_' && (unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower)) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToCamel order_line_id -> orderLineId
func ToCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.Grow(len(s))
	first := true
	for _, p := range parts {
		if p == "" {
			continue
		}
		if first {
			b.WriteString(p)
			first = false
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	if b.Len() == 0 {
		return s
	}
	return b.String()
}

// SnakeRequestKey 请求 key 规范化
func SnakeRequestKey(key string) string {
	k := ToSnake(key)
	if renamed, ok := requestRenames[k]; ok {
		return renamed
	}
	return k
}

// CamelResponseKey 响应 key 转驼峰
func CamelResponseKey(key string) string {
	if renamed, ok := responseRenames[key]; ok {
		return renamed
	}
	return ToCamel(key)
}

// TransformKeys 递归转换对象 key，opaque key 的值不处理内部 key
func TransformKeys(v interface{}, convert func(string) string, opaqueOf func(string) string) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			nk := convert(k)
			if opaqueKeys[opaqueOf(k)] {
				out[nk] = child
				continue
			}
			out[nk] = TransformKeys(child, convert, opaqueOf)
		}
		return out
	case []interface{}:
		for i := range val {
			val[i] = TransformKeys(val[i], convert, opaqueOf)
		}
		return val
	}
	return v
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}

// snakeBody 请求体 camelCase -> snake_case
func snakeBody(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(TransformKeys(v, SnakeRequestKey, ToSnake))
}

// camelBody 响应体 snake_case -> camelCase
func camelBody(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(TransformKeys(v, CamelResponseKey, func(k string) string { return k }))
}

func snakeQuery(raw string) string {
	if raw == "" {
		return raw
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return raw
	}
	out := make(url.Values, len(values))
	for k, vs := range values {
		nk := SnakeRequestKey(k)
		out[nk] = append(out[nk], vs...)
	}
	return out.Encode()
}

// keyCaseWriter 只缓冲 JSON 响应，其他内容直接透传
type keyCaseWriter struct {
	gin.ResponseWriter
	buf         bytes.Buffer
	decided     bool
	passthrough bool
}

func (w *keyCaseWriter) decide() {
	if w.decided {
		return
	}
	w.decided = true
	w.passthrough = !isJSON(w.Header().Get("Content-Type"))
}

func (w *keyCaseWriter) Write(b []byte) (int, error) {
	w.decide()
	if w.passthrough {
		return w.ResponseWriter.Write(b)
	}
	return w.buf.Write(b)
}

func (w *keyCaseWriter) WriteString(s string) (int, error) {
	w.decide()
	if w.passthrough {
		return w.ResponseWriter.WriteString(s)
	}
	return w.buf.WriteString(s)
}

func (w *keyCaseWriter) flush() {
	if w.passthrough || w.buf.Len() == 0 {
		return
	}
	out := w.buf.Bytes()
	if converted, err := camelBody(out); err == nil {
		out = converted
	}
	w.Header().Del("Content-Length")
	w.ResponseWriter.Write(out)
}

// KeyCase 请求 camelCase 转 snake_case，响应 snake_case 转 camelCase
func KeyCase() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.URL.RawQuery = snakeQuery(c.Request.URL.RawQuery)

		if c.Request.Body != nil && c.Request.Body != http.NoBody && isJSON(c.ContentType()) {
			body, err := io.ReadAll(c.Request.Body)
			c.Request.Body.Close()
			if err != nil {
				abort(c, 40000, "failed to read request body")
				return
			}
			if len(bytes.TrimSpace(body)) > 0 {
				converted, err := snakeBody(body)
				if err != nil {
					abort(c, 40000, "invalid JSON body: "+err.Error())
					return
				}
				body = converted
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
			c.Request.ContentLength = int64(len(body))
		}

		w := &keyCaseWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()
		w.flush()
		c.Writer = w.ResponseWriter
	}
}
