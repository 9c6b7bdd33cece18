package mysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func datePtr(t time.Time) *time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return &d
}

func TestOnDutyFrom_CustomOverride(t *testing.T) {
	at := time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local) // 周二 10:00
	today := datePtr(at)
	yesterday := datePtr(at.AddDate(0, 0, -1))

	t.Run("昨日自定义班次不覆盖今日模板", func(t *testing.T) {
		models := []ShiftModel{
			{ID: 1, StaffID: 7, StartTime: "08:00", EndTime: "17:00"},
			{ID: 2, StaffID: 7, StartTime: "18:00", EndTime: "22:00", Date: yesterday},
		}
		assert.Equal(t, []uint{7}, onDutyFrom(models, at))
	})

	t.Run("今日自定义班次覆盖模板", func(t *testing.T) {
		models := []ShiftModel{
			{ID: 1, StaffID: 7, StartTime: "08:00", EndTime: "17:00"},
			{ID: 2, StaffID: 7, StartTime: "14:00", EndTime: "20:00", Date: today},
		}
		assert.Empty(t, onDutyFrom(models, at))
		assert.Equal(t, []uint{7}, onDutyFrom(models, at.Add(5*time.Hour)))
	})

	t.Run("昨日跨午夜班次延伸到今日凌晨", func(t *testing.T) {
		models := []ShiftModel{
			{ID: 1, StaffID: 7, StartTime: "22:00", EndTime: "06:00", Date: yesterday},
		}
		early := time.Date(2026, 3, 10, 2, 0, 0, 0, time.Local)
		assert.Equal(t, []uint{7}, onDutyFrom(models, early))
		assert.Empty(t, onDutyFrom(models, at))
	})

	t.Run("无任何班次", func(t *testing.T) {
		assert.Empty(t, onDutyFrom(nil, at))
	})
}

func TestOnDutyFrom_StableOrder(t *testing.T) {
	at := time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)
	models := []ShiftModel{
		{ID: 1, StaffID: 3, StartTime: "08:00", EndTime: "17:00"},
		{ID: 2, StaffID: 9, StartTime: "08:00", EndTime: "17:00"},
		{ID: 3, StaffID: 12, StartTime: "12:00", EndTime: "14:00"},
	}
	assert.Equal(t, []uint{3, 9}, onDutyFrom(models, at))
}
