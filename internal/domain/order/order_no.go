package order

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateOrderNo 生成订单号
// 设计原则:全局唯一、时间有序(便于分库分表)、不可预测(防止恶意遍历)
//
// 格式:ORD + 时间戳(秒) + 6位随机数
// 示例:ORD1699248000123456
func GenerateOrderNo() string {
	timestamp := time.Now().Unix()
	random := rand.Intn(1000000)
	return fmt.Sprintf("ORD%d%06d", timestamp, random)
}

// GeneratePaymentOrderCode 生成支付网关侧订单码
// 网关要求数值型且每次支付尝试唯一;毫秒时间戳拼3位随机数,
// 同一订单重试支付会得到新的code,旧链接自然失效
func GeneratePaymentOrderCode() int64 {
	return time.Now().UnixMilli()*1000 + int64(rand.Intn(1000))
}
