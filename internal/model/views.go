package model

// AttendanceEntry 签到记录 + 学生信息（只读视图，用于名单与导出）
type AttendanceEntry struct {
	AttendanceRecord
	StudentName string `json:"student_name"`
	MatricNo    string `json:"matric_no"`
}

// StudentAttendance 签到记录 + 课程信息（学生查看本人记录）
type StudentAttendance struct {
	AttendanceRecord
	CourseCode string `json:"course_code"`
	CourseName string `json:"course_name,omitempty"`
}

// EnrollmentEntry 选课记录 + 学生信息
type EnrollmentEntry struct {
	Enrollment
	StudentName string `json:"student_name"`
	MatricNo    string `json:"matric_no"`
}
