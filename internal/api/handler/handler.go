package handler

import "github.com/galadima-cyber/eRecord/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	CheckIn    *CheckInHandler
	Location   *LocationHandler
	Session    *SessionHandler
	Attendance *AttendanceHandler
	Enrollment *EnrollmentHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		User:       NewUserHandler(svc.User),
		CheckIn:    NewCheckInHandler(svc.CheckIn, svc.VerifyLocation),
		Location:   NewLocationHandler(svc.Location),
		Session:    NewSessionHandler(svc.Session, svc.AttendanceRule),
		Attendance: NewAttendanceHandler(svc.Attendance, svc.Export),
		Enrollment: NewEnrollmentHandler(svc.Enrollment),
	}
}
