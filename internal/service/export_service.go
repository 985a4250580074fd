package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/galadima-cyber/eRecord/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出单个会话的签到名单为 Excel (.xlsx)，每条签到记录一行，不做汇总统计
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportSessionAttendance 导出会话签到名单
	ExportSessionAttendance(ctx context.Context, sessionID string, caller Caller) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportSessionAttendance 导出会话签到名单
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：课程代码 + 会话开始时间（合并单元格）
//   - 第 2 行：表头
//   - 第 3 行起：每条签到记录一行，按签到时间升序
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

var exportHeaders = []string{"序号", "学号", "姓名", "签到时间", "距离(米)", "迟到", "纬度", "经度"}

func (s *exportService) ExportSessionAttendance(ctx context.Context, sessionID string, caller Caller) (*bytes.Buffer, string, error) {
	// 1. 会话与权限
	session, err := ownedSession(ctx, s.repo, s.logger, sessionID, caller)
	if err != nil {
		return nil, "", err
	}

	// 2. 签到记录
	entries, err := s.repo.Attendance.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询签到名单失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, "", err
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "签到名单"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 6)
	f.SetColWidth(sheetName, "B", "C", 18)
	f.SetColWidth(sheetName, "D", "D", 22)
	f.SetColWidth(sheetName, "E", "H", 12)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	startsAt := session.StartsAt.UTC().Format("2006-01-02 15:04")
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s %s 签到名单（共 %d 人）", session.CourseCode, startsAt, len(entries)))
	f.MergeCell(sheetName, "A1", cell(colName(len(exportHeaders)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	for i, h := range exportHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(exportHeaders)-1), 2), headerStyle)

	row := 3
	for i, e := range entries {
		late := "否"
		if e.IsLate {
			late = "是"
		}
		values := []interface{}{
			i + 1,
			e.MatricNo,
			e.StudentName,
			e.CheckedInAt.UTC().Format(time.DateTime),
			e.DistanceMeters,
			late,
			e.Latitude,
			e.Longitude,
		}
		for col, v := range values {
			f.SetCellValue(sheetName, cell(colName(col), row), v)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("attendance_%s_%s.xlsx", session.CourseCode, session.StartsAt.UTC().Format("20060102_1504"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
