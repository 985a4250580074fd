package service

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/galadima-cyber/eRecord/internal/dto"
	"github.com/galadima-cyber/eRecord/internal/model"
	"github.com/galadima-cyber/eRecord/internal/repository"
)

// ImportEnrollmentRow 名单导入的一行
type ImportEnrollmentRow struct {
	Row        int // Excel 行号（从 2 开始）
	MatricNo   string
	CourseCode string
}

// EnrollmentService 选课名单业务接口
type EnrollmentService interface {
	ParseImportFile(reader io.Reader) ([]ImportEnrollmentRow, error)
	Import(ctx context.Context, rows []ImportEnrollmentRow, caller Caller) (*dto.ImportEnrollmentResponse, error)
	ListByCourse(ctx context.Context, courseCode string) ([]dto.EnrollmentResponse, error)
}

type enrollmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewEnrollmentService 创建 EnrollmentService 实例
func NewEnrollmentService(repo *repository.Repository, logger *zap.Logger) EnrollmentService {
	return &enrollmentService{repo: repo, logger: logger}
}

// ────────────────────── ParseImportFile ──────────────────────

// ParseImportFile 解析名单 Excel，第一行为表头，列序不限
func (s *enrollmentService) ParseImportFile(reader io.Reader) ([]ImportEnrollmentRow, error) {
	excelRows, err := readSheetRows(reader)
	if err != nil {
		return nil, err
	}

	colIndex := headerIndex(excelRows[0], map[string][]string{
		"matric_no":   {"学号", "matric_no", "matric number"},
		"course_code": {"课程代码", "course_code", "course code"},
	})
	if colIndex["matric_no"] < 0 || colIndex["course_code"] < 0 {
		return nil, ErrImportBadHeader
	}

	var rows []ImportEnrollmentRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportEnrollmentRow{
			Row:        i + 1,
			MatricNo:   cellAt(row, colIndex["matric_no"]),
			CourseCode: strings.ToUpper(cellAt(row, colIndex["course_code"])),
		}

		// 跳过全空行
		if item.MatricNo == "" && item.CourseCode == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// ────────────────────── Import ──────────────────────

// Import 写入选课名单
// 第一阶段只做校验（学号存在且为学生、文件内去重），第二阶段批量写入；
// 已存在的选课计入 Skipped
func (s *enrollmentService) Import(ctx context.Context, rows []ImportEnrollmentRow, caller Caller) (*dto.ImportEnrollmentResponse, error) {
	resp := &dto.ImportEnrollmentResponse{Total: len(rows)}

	matricNos := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.MatricNo != "" {
			matricNos = append(matricNos, r.MatricNo)
		}
	}
	users, err := s.repo.User.ListByMatricNos(ctx, matricNos)
	if err != nil {
		s.logger.Error("按学号批量查询用户失败", zap.Error(err))
		return nil, err
	}
	byMatric := make(map[string]*model.User, len(users))
	for i := range users {
		byMatric[users[i].MatricNo] = &users[i]
	}

	seen := make(map[string]bool)
	var items []model.Enrollment
	for _, r := range rows {
		if r.MatricNo == "" || r.CourseCode == "" {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportEnrollmentError{Row: r.Row, Reason: "matric_no and course_code are required"})
			continue
		}
		user, ok := byMatric[r.MatricNo]
		if !ok {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportEnrollmentError{Row: r.Row, Reason: "unknown matric_no: " + r.MatricNo})
			continue
		}
		if user.Role != model.RoleStudent {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportEnrollmentError{Row: r.Row, Reason: "not a student: " + r.MatricNo})
			continue
		}

		key := r.CourseCode + "|" + user.UserID
		if seen[key] {
			resp.Skipped++
			continue
		}
		seen[key] = true
		items = append(items, model.Enrollment{
			CourseCode: r.CourseCode,
			StudentID:  user.UserID,
			CreatedBy:  &caller.UserID,
		})
	}

	if len(items) > 0 {
		created, err := s.repo.Enrollment.BulkCreate(ctx, items)
		if err != nil {
			s.logger.Error("批量写入选课名单失败", zap.Int("count", len(items)), zap.Error(err))
			return nil, err
		}
		resp.Created = int(created)
		resp.Skipped += len(items) - int(created)
	}

	s.logger.Info("选课名单导入完成",
		zap.String("operator", caller.UserID),
		zap.Int("total", resp.Total),
		zap.Int("created", resp.Created),
		zap.Int("skipped", resp.Skipped),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// ────────────────────── ListByCourse ──────────────────────

func (s *enrollmentService) ListByCourse(ctx context.Context, courseCode string) ([]dto.EnrollmentResponse, error) {
	entries, err := s.repo.Enrollment.ListByCourse(ctx, strings.ToUpper(strings.TrimSpace(courseCode)))
	if err != nil {
		s.logger.Error("查询选课名单失败", zap.String("course_code", courseCode), zap.Error(err))
		return nil, err
	}

	result := make([]dto.EnrollmentResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, dto.EnrollmentResponse{
			ID:          e.EnrollmentID,
			CourseCode:  e.CourseCode,
			StudentID:   e.StudentID,
			StudentName: e.StudentName,
			MatricNo:    e.MatricNo,
		})
	}
	return result, nil
}
