package dto

// ── 地点模块 DTO ──

// CreateLocationRequest 创建地点请求
// 坐标使用指针：0 是合法坐标，必须与"未提供"区分
type CreateLocationRequest struct {
	Name         string   `json:"name"          binding:"required,min=2,max=100"`
	Latitude     *float64 `json:"latitude"      binding:"required"`
	Longitude    *float64 `json:"longitude"     binding:"required"`
	RadiusMeters *int     `json:"radius_meters" binding:"omitempty"`
}

// UpdateLocationRequest 更新地点请求
type UpdateLocationRequest struct {
	Name         *string  `json:"name"          binding:"omitempty,min=2,max=100"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	RadiusMeters *int     `json:"radius_meters"`
}

// LocationListRequest 地点列表查询参数
// 提供 lat/lon 时按 geohash 前缀筛选附近地点
type LocationListRequest struct {
	Lat       *float64 `form:"lat"`
	Lon       *float64 `form:"lon"`
	Precision int      `form:"precision" binding:"omitempty,min=1,max=12"`
	All       bool     `form:"all"` // 仅管理员有效
}

// LocationResponse 地点信息响应
type LocationResponse struct {
	ID           string  `json:"id"`
	OwnerID      string  `json:"owner_id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters int     `json:"radius_meters"`
	Geohash      string  `json:"geohash"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}
