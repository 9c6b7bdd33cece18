// Package staff 提供在班员工判定与订单指派的负载均衡
package staff

import (
	"context"
	"fmt"
	"time"
)

// ShiftWindow 一个班次时间窗
// 设计要点:
// 1. Start/End为"HH:MM"格式;End <= Start表示跨午夜班次(如22:00~06:00)
// 2. Date非nil表示单日自定义班次(覆盖模板),nil表示每日模板班次
type ShiftWindow struct {
	StaffID uint
	Start   string // "HH:MM"
	End     string // "HH:MM"
	Date    *time.Time
}

// Contains 判断时刻t是否落在班次窗内
func (w ShiftWindow) Contains(t time.Time) bool {
	start, err := minutesOfDay(w.Start)
	if err != nil {
		return false
	}
	end, err := minutesOfDay(w.End)
	if err != nil {
		return false
	}

	// 自定义班次只在指定日期生效(跨午夜班次顺延到次日凌晨)
	if w.Date != nil {
		day := w.Date
		sameDay := t.Year() == day.Year() && t.YearDay() == day.YearDay()
		next := day.AddDate(0, 0, 1)
		nextDay := t.Year() == next.Year() && t.YearDay() == next.YearDay()

		if end > start {
			if !sameDay {
				return false
			}
		} else {
			// 跨午夜:窗口前半段在当日,后半段在次日
			if !sameDay && !nextDay {
				return false
			}
			if sameDay {
				return minuteOf(t) >= start
			}
			return minuteOf(t) < end
		}
	}

	m := minuteOf(t)
	if end > start {
		return m >= start && m < end
	}
	// 跨午夜模板班次:[start,24h) ∪ [0,end)
	return m >= start || m < end
}

// minuteOf 时刻在当日的分钟数
func minuteOf(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// minutesOfDay 解析"HH:MM"为当日分钟数
func minutesOfDay(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("非法时间: %s", s)
	}
	return h*60 + m, nil
}

// ShiftProvider 班表协作方接口(排班管理属于外部模块,这里只消费"谁在班")
type ShiftProvider interface {
	// OnDutyStaff 返回时刻at在班的员工ID,顺序稳定(决定平局时的选择)
	OnDutyStaff(ctx context.Context, at time.Time) ([]uint, error)
}
