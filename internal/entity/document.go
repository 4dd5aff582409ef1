package entity

import "time"

// 文档分类
const (
	DocumentSample = "sample"
	DocumentLC     = "lc"
	DocumentPI     = "pi"
	DocumentEmail  = "email"
	DocumentOther  = "other"
)

func IsDocumentCategory(c string) bool {
	switch c {
	case DocumentSample, DocumentLC, DocumentPI, DocumentEmail, DocumentOther:
		return true
	}
	return false
}

// Document 订单附件
type Document struct {
	ID           string  `json:"id" gorm:"primaryKey;size:32"`
	OrderID      string  `json:"order_id" gorm:"size:32;not null;index"`
	LineID       *string `json:"line_id" gorm:"size:32"` // 行删除后置空
	Category     string  `json:"category" gorm:"size:20;not null"`
	Subcategory  string  `json:"subcategory" gorm:"size:50"`
	FileName     string  `json:"file_name" gorm:"size:255;not null"`
	FilePath     string  `json:"-" gorm:"size:500;not null"` // 对象存储key
	FileSize     int64   `json:"file_size"`
	MimeType     string  `json:"mime_type" gorm:"size:100"`
	Description  string  `json:"description" gorm:"type:text"`
	DocumentDate *Date   `json:"document_date"`
	UploadedBy   string  `json:"uploaded_by" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	URL            string `json:"url,omitempty" gorm:"-"`
	UploadedByName string `json:"uploaded_by_name,omitempty" gorm:"-"`
}

func (Document) TableName() string {
	return "order_documents"
}

// EffectiveDate 文档日期，未填时取上传时间
func (d *Document) EffectiveDate() Date {
	if d.DocumentDate != nil && !d.DocumentDate.IsZero() {
		return *d.DocumentDate
	}
	return NewDate(d.CreatedAt)
}
