/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-13 15:02:44
 * @FilePath: \seo-assistant\internal\domain\content\entity.go
 * @LastEditTime: 2025-10-14 09:18:30
 */
package content

import "time"

// Post represents a content item hosted in the CMS.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`       // 自增主键，即接口里的 post_id
	AuthorID  uint      `gorm:"index" json:"author_id"`     // 内容作者，编辑权限校验依据
	Title     string    `gorm:"size:512" json:"title"`      // 文章标题
	Content   string    `gorm:"type:text" json:"content"`   // 渲染后的正文（可含 HTML）
	RawBlocks string    `gorm:"type:text" json:"-"`         // 块编辑器的原始 JSON，优先用于提示词
	Slug      string    `gorm:"size:255;index" json:"slug"` // 公开访问路径片段
	Status    string    `gorm:"size:32" json:"status"`      // draft/publish 等
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostMeta 以 key/value 形式存放文章级别的 SEO 元数据，每篇文章同名 key 唯一。
type PostMeta struct {
	ID        uint      `gorm:"primaryKey"`
	PostID    uint      `gorm:"index:idx_post_meta,unique"`
	MetaKey   string    `gorm:"size:255;index:idx_post_meta,unique"`
	MetaValue string    `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 覆盖默认表名，与宿主平台的命名保持一致。
func (PostMeta) TableName() string {
	return "post_meta"
}

// Setting 是站点级的键值设置存储，Value 为 JSON 字符串。
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:191;uniqueIndex"`
	Value     string    `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attachment 记录社交卡片渲染产物等媒体文件。
type Attachment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index" json:"post_id"`
	FileName  string    `gorm:"size:255" json:"file_name"`
	URL       string    `gorm:"size:512" json:"url"`
	MimeType  string    `gorm:"size:128" json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
