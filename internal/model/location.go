package model

import "gorm.io/gorm"

// Location 签到地点表 — 对应 locations
// 讲师名下的命名地点：中心坐标 + 半径（米）
type Location struct {
	LocationID   string  `gorm:"type:uuid;primaryKey"              json:"location_id"`
	OwnerID      string  `gorm:"type:uuid;not null;index"          json:"owner_id"`
	Name         string  `gorm:"type:varchar(100);not null"        json:"name"`
	Latitude     float64 `gorm:"not null"                          json:"latitude"`
	Longitude    float64 `gorm:"not null"                          json:"longitude"`
	RadiusMeters int     `gorm:"not null"                          json:"radius_meters"`
	Geohash      string  `gorm:"type:varchar(12);not null;index"   json:"geohash"`
	SoftDeleteModel
}

// TableName 指定表名
func (Location) TableName() string { return "locations" }

// BeforeCreate 生成主键
func (l *Location) BeforeCreate(_ *gorm.DB) error {
	ensureID(&l.LocationID)
	return nil
}
