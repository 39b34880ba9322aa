package announcements

import "database/sql"

// AnnouncementRecord is a row of the announcements table. Optional columns are
// nullable because they were added by later migrations.
type AnnouncementRecord struct {
	ID         string         `gorm:"column:id;primaryKey"`
	Publisher  string         `gorm:"column:publisher"`
	Title      string         `gorm:"column:title"`
	Excerpt    string         `gorm:"column:excerpt"`
	Body       string         `gorm:"column:body"`
	CreatedAt  string         `gorm:"column:created_at"`
	CategoryID sql.NullString `gorm:"column:category_id"`
	Sticky     sql.NullBool   `gorm:"column:sticky"`
	Type       sql.NullString `gorm:"column:type"`
}

// TableName defines the table name for AnnouncementRecord.
func (AnnouncementRecord) TableName() string {
	return "announcements"
}

// CategoryRecord is a row of the categories table.
type CategoryRecord struct {
	Slug  string `gorm:"column:slug;primaryKey"`
	Title string `gorm:"column:title"`
}

// TableName defines the table name for CategoryRecord.
func (CategoryRecord) TableName() string {
	return "categories"
}

// announcementRow is the read shape: an announcement joined with its category.
type announcementRow struct {
	AnnouncementRecord
	CategoryTitle sql.NullString `gorm:"column:category_title"`
}
