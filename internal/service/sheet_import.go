package service

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ── Excel 导入公共错误 ──

const maxImportRows = 1000

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列")
	ErrImportBadFile     = errors.New("无法解析Excel文件")
)

// readSheetRows 读取第一个工作表的全部行，至少包含表头和一行数据
func readSheetRows(reader io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportBadFile, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrImportNoData
	}
	return rows, nil
}

// headerIndex 解析表头（支持灵活列序），返回字段 -> 列索引，缺失为 -1
// aliases: 字段 -> 可接受的表头写法（小写比较）
func headerIndex(header []string, aliases map[string][]string) map[string]int {
	idx := make(map[string]int, len(aliases))
	lookup := make(map[string]string)
	for field, names := range aliases {
		idx[field] = -1
		for _, n := range names {
			lookup[strings.ToLower(n)] = field
		}
	}
	for i, h := range header {
		if field, ok := lookup[strings.ToLower(strings.TrimSpace(h))]; ok {
			idx[field] = i
		}
	}
	return idx
}

// cellAt 取单元格并去空白；行尾空单元格不会出现在 excelize 的结果里
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
