package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/eshop/internal/domain/staff"
	apperrors "github.com/xiebiao/eshop/pkg/errors"
)

// shiftRepository 班表仓储实现(MySQL),充当staff.ShiftProvider
// 设计说明:
// 1. date IS NULL为每日模板班次,非空为单日自定义班次
// 2. 员工某日存在自定义班次时,该日忽略其模板班次
// 3. 跨午夜班次顺延到次日凌晨,因此查询要连前一天的自定义班次一起取
type shiftRepository struct {
	db *gorm.DB
}

// NewShiftRepository 创建班表仓储
func NewShiftRepository(db *gorm.DB) staff.ShiftProvider {
	return &shiftRepository{db: db}
}

// OnDutyStaff 返回时刻at在班的员工ID,按staff_id升序(顺序稳定)
func (r *shiftRepository) OnDutyStaff(ctx context.Context, at time.Time) ([]uint, error) {
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	prevDay := day.AddDate(0, 0, -1)

	var models []ShiftModel
	db := getDB(ctx, r.db)
	err := db.Where("date IS NULL OR date IN ?", []time.Time{day, prevDay}).
		Order("staff_id ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询班表失败")
	}
	return onDutyFrom(models, at), nil
}

// onDutyFrom 从加载的班次行判定时刻at的在班员工
// 覆盖规则只看at当日:当日存在自定义班次才忽略模板;
// 前一天的自定义班次不参与覆盖,仅用于其跨午夜延伸段的判定
func onDutyFrom(models []ShiftModel, at time.Time) []uint {
	type staffShifts struct {
		template   []staff.ShiftWindow
		customDay  []staff.ShiftWindow
		customPrev []staff.ShiftWindow
	}
	grouped := make(map[uint]*staffShifts)
	var orderOf []uint
	for _, m := range models {
		g, ok := grouped[m.StaffID]
		if !ok {
			g = &staffShifts{}
			grouped[m.StaffID] = g
			orderOf = append(orderOf, m.StaffID)
		}
		w := staff.ShiftWindow{
			StaffID: m.StaffID,
			Start:   m.StartTime,
			End:     m.EndTime,
			Date:    m.Date,
		}
		switch {
		case m.Date == nil:
			g.template = append(g.template, w)
		case m.Date.Year() == at.Year() && m.Date.YearDay() == at.YearDay():
			g.customDay = append(g.customDay, w)
		default:
			g.customPrev = append(g.customPrev, w)
		}
	}

	var onDuty []uint
	for _, id := range orderOf {
		g := grouped[id]
		windows := g.template
		if len(g.customDay) > 0 {
			windows = g.customDay
		}
		windows = append(g.customPrev, windows...)
		for _, w := range windows {
			if w.Contains(at) {
				onDuty = append(onDuty, id)
				break
			}
		}
	}
	return onDuty
}
