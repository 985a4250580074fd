package dto

// ── 签到记录 / 名单 DTO ──

// AttendanceEntryResponse 会话签到名单条目
type AttendanceEntryResponse struct {
	ID             string  `json:"id"`
	StudentID      string  `json:"student_id"`
	StudentName    string  `json:"student_name"`
	MatricNo       string  `json:"matric_no"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	DistanceMeters int     `json:"distance_meters"`
	CheckedInAt    string  `json:"checked_in_at"`
	IsLate         bool    `json:"is_late"`
}

// MyAttendanceResponse 学生本人签到记录
type MyAttendanceResponse struct {
	ID             string `json:"id"`
	SessionID      string `json:"session_id"`
	CourseCode     string `json:"course_code"`
	CourseName     string `json:"course_name,omitempty"`
	DistanceMeters int    `json:"distance_meters"`
	CheckedInAt    string `json:"checked_in_at"`
	IsLate         bool   `json:"is_late"`
}

// EnrollmentListRequest 选课名单查询参数
type EnrollmentListRequest struct {
	CourseCode string `form:"course_code" binding:"required,max=20"`
}

// EnrollmentResponse 选课名单条目
type EnrollmentResponse struct {
	ID          string `json:"id"`
	CourseCode  string `json:"course_code"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	MatricNo    string `json:"matric_no"`
}

// ImportEnrollmentResponse 名单导入结果
type ImportEnrollmentResponse struct {
	Total   int                     `json:"total"`
	Created int                     `json:"created"`
	Skipped int                     `json:"skipped"` // 已存在的选课
	Failed  int                     `json:"failed"`
	Errors  []ImportEnrollmentError `json:"errors,omitempty"`
}

// ImportEnrollmentError 导入失败行
type ImportEnrollmentError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
