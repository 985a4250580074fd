package geo

import (
	"math"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

// EarthRadiusMeters 地球平均半径（米）
const EarthRadiusMeters = 6371000.0

// Distance 使用 Haversine 公式计算两点间的大圆距离（米）。
// 不做入参校验，范围检查由调用方在进入存储层之前完成。
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	φ1 := lat1 * math.Pi / 180
	φ2 := lat2 * math.Pi / 180
	Δφ := (lat2 - lat1) * math.Pi / 180
	Δλ := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// ValidCoordinate 校验经纬度是否在 WGS84 合法范围内（NaN / Inf 视为非法）
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Within 判断距离是否落在半径内（边界视为在内）
func Within(distance float64, radiusMeters int) bool {
	return distance <= float64(radiusMeters)
}

// RoundMeters 距离四舍五入到整米
func RoundMeters(distance float64) int {
	return int(math.Round(distance))
}

// geohashPrecision 与 geohash-golang 默认精度一致
const geohashPrecision = 12

// Geohash 计算坐标的 12 位 geohash，合法坐标（含极点与日期变更线）均可编码
func Geohash(lat, lon float64) string {
	return geohash.Encode(lat, lon)
}

// GeohashPrefix 截取 geohash 前缀，用于"附近地点"粗筛。
// precision 越小范围越大：5 ≈ 4.9km，6 ≈ 1.2km，7 ≈ 150m。
func GeohashPrefix(lat, lon float64, precision int) string {
	gh := Geohash(lat, lon)
	if precision <= 0 || precision > geohashPrecision || precision > len(gh) {
		return gh
	}
	return gh[:precision]
}
