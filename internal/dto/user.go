package dto

// ── 用户管理模块 DTO ──

// CreateUserRequest 创建用户请求（管理员）
type CreateUserRequest struct {
	Name     string `json:"name"      binding:"required,min=1,max=100"`
	MatricNo string `json:"matric_no" binding:"required,min=1,max=30"`
	Email    string `json:"email"     binding:"required,email,max=255"`
	Role     string `json:"role"      binding:"required,oneof=student lecturer admin"`
}

// CreateUserResponse 创建用户响应，临时密码只在此处返回一次
type CreateUserResponse struct {
	User         UserResponse `json:"user"`
	TempPassword string       `json:"temp_password"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role    string `form:"role"    binding:"omitempty,oneof=student lecturer admin"`
	Keyword string `form:"keyword" binding:"omitempty,max=100"`
}

// ResetPasswordResponse 重置密码响应
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password"`
}

// ImportUserResponse 学生批量导入结果
type ImportUserResponse struct {
	Total       int                `json:"total"`
	Created     int                `json:"created"`
	Failed      int                `json:"failed"`
	Errors      []ImportUserError  `json:"errors,omitempty"`
	Credentials []ImportCredential `json:"credentials,omitempty"`
}

// ImportUserError 导入失败的行
type ImportUserError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportCredential 新建账号的初始密码
type ImportCredential struct {
	MatricNo     string `json:"matric_no"`
	TempPassword string `json:"temp_password"`
}
