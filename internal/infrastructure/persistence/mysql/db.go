package mysql

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/eshop/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明:
// 1. 使用GORM v2作为ORM框架
// 2. 配置连接池参数(MaxOpenConns、MaxIdleConns、ConnMaxLifetime)
// 3. 开发环境开启SQL日志,生产环境关闭
// 4. 自动迁移表结构(生产环境应换用版本化迁移工具)
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.Database.DSN()

	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info // 开发环境打印SQL
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

// autoMigrate 自动迁移表结构
// 注意:AutoMigrate只会创建表、添加字段,不会删除或修改现有字段
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&OrderModel{},
		&OrderItemModel{},
		&OrderHistoryModel{},
		&ProductVariantModel{},
		&ShiftModel{},
	)
}

// OrderModel GORM订单模型
// 设计说明:
// 1. 这是infrastructure层的数据模型,包含GORM tag;domain/order/entity.go
//    是领域实体,不依赖GORM,Repository负责两者之间的转换
// 2. Status使用int存储(节省空间,便于索引),状态流转一律走条件更新
// 3. InventoryReleased标志列是释放幂等的依据
type OrderModel struct {
	ID      uint   `gorm:"primaryKey"`
	OrderNo string `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	UserID  uint   `gorm:"index;not null;comment:买家用户ID"`

	PaymentMethod string `gorm:"size:20;not null;comment:支付方式"`
	Status        int    `gorm:"index;type:tinyint;default:1;comment:订单状态"`

	AssignedStaffID *uint `gorm:"index;comment:负责员工ID"`

	Subtotal    int64 `gorm:"not null;comment:商品小计(分)"`
	Discount    int64 `gorm:"default:0;comment:优惠金额(分)"`
	ShippingFee int64 `gorm:"default:0;comment:运费(分)"`
	GrandTotal  int64 `gorm:"not null;comment:应付总额(分)"`

	ShipFullName string `gorm:"size:100;not null;comment:收货人"`
	ShipPhone    string `gorm:"size:20;not null;comment:联系电话"`
	ShipLine1    string `gorm:"size:255;not null;comment:详细地址"`
	ShipWard     string `gorm:"size:100;comment:坊/乡"`
	ShipDistrict string `gorm:"size:100;comment:郡/县"`
	ShipCity     string `gorm:"size:100;not null;comment:省/市"`

	InventoryReserved bool       `gorm:"default:false;comment:库存已预留"`
	ReservedAt        *time.Time `gorm:"comment:预留时间"`
	InventoryReleased bool       `gorm:"default:false;comment:库存已释放"`
	ReleasedAt        *time.Time `gorm:"comment:释放时间"`

	PaymentOrderCode *int64     `gorm:"uniqueIndex;comment:支付网关订单码"`
	PrintedAt        *time.Time `gorm:"comment:配货单打印时间"`

	Items   []OrderItemModel    `gorm:"foreignKey:OrderID"`
	History []OrderHistoryModel `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `gorm:"index;comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel GORM订单明细模型
// 记录下单时的价格/名称快照,商品改价不影响历史订单
type OrderItemModel struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   uint   `gorm:"index;not null;comment:订单ID"`
	ProductID uint   `gorm:"index;not null;comment:商品ID"`
	SKU       string `gorm:"size:64;not null;comment:变体SKU"`
	Name      string `gorm:"size:200;not null;comment:商品名快照"`
	Image     string `gorm:"size:500;comment:图片快照"`
	UnitPrice int64  `gorm:"not null;comment:下单时单价(分)"`
	Quantity  int    `gorm:"not null;comment:数量"`
	LineTotal int64  `gorm:"not null;comment:行小计(分)"`
}

// TableName 指定表名
func (OrderItemModel) TableName() string {
	return "order_items"
}

// OrderHistoryModel GORM订单历史模型(只追加)
type OrderHistoryModel struct {
	ID         uint      `gorm:"primaryKey"`
	OrderID    uint      `gorm:"index;not null;comment:订单ID"`
	At         time.Time `gorm:"not null;comment:发生时间"`
	ByUserID   *uint     `gorm:"comment:操作人ID(空为系统)"`
	Action     string    `gorm:"size:32;not null;comment:动作"`
	FromStatus int       `gorm:"type:tinyint;comment:原状态"`
	ToStatus   int       `gorm:"type:tinyint;comment:新状态"`
	Note       string    `gorm:"size:500;comment:备注"`
}

// TableName 指定表名
func (OrderHistoryModel) TableName() string {
	return "order_histories"
}

// ProductVariantModel GORM商品变体模型
// 设计说明:
// 1. 库存计数直接放在变体记录上,(product_id, sku)复合唯一
// 2. Stock >= 0由条件扣减语句保证,不依赖应用层判断
type ProductVariantModel struct {
	ID        uint      `gorm:"primaryKey"`
	ProductID uint      `gorm:"uniqueIndex:idx_product_sku;not null;comment:商品ID"`
	SKU       string    `gorm:"uniqueIndex:idx_product_sku;size:64;not null;comment:变体SKU"`
	Color     string    `gorm:"size:50;comment:颜色"`
	Size      string    `gorm:"size:50;comment:尺码"`
	Name      string    `gorm:"size:200;not null;comment:商品名(含变体)"`
	Image     string    `gorm:"size:500;comment:图片URL"`
	Price     int64     `gorm:"not null;comment:单价(分)"`
	Stock     int       `gorm:"default:0;comment:库存数量"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (ProductVariantModel) TableName() string {
	return "product_variants"
}

// ShiftModel GORM班次模型
// Date为空表示每日模板班次,非空表示单日自定义班次(覆盖模板)
type ShiftModel struct {
	ID        uint       `gorm:"primaryKey"`
	StaffID   uint       `gorm:"index;not null;comment:员工ID"`
	StartTime string     `gorm:"size:5;not null;comment:开始时间HH:MM"`
	EndTime   string     `gorm:"size:5;not null;comment:结束时间HH:MM"`
	Date      *time.Time `gorm:"index;comment:自定义班次日期"`
	CreatedAt time.Time  `gorm:"comment:创建时间"`
	UpdatedAt time.Time  `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (ShiftModel) TableName() string {
	return "staff_shifts"
}
