// Package shipping 提供按地区的运费计算
//
// 说明:纯函数,不依赖存储;费率表内置,调整费率属于发版行为
package shipping

// 运费档位(分)
const (
	feeInnerCity  int64 = 0     // 市内核心区满额包邮区
	feeCityBase   int64 = 20000 // 市内基础运费
	feeProvince   int64 = 35000 // 省内/邻近地区
	feeNationwide int64 = 50000 // 其余地区
)

// 免运费门槛(分):核心城市订单满50万分免基础运费
const freeShippingThreshold int64 = 500000

// coreCities 核心城市(支持自营配送)
var coreCities = map[string]bool{
	"胡志明市": true,
	"河内市":  true,
}

// nearbyDistrictsOfCoreCity 核心城市的远郊区(按省内费率)
var nearbyDistrictsOfCoreCity = map[string]bool{
	"古芝县": true,
	"芹椰县": true,
	"朔庄县": true,
}

// CalculateFee 计算运费
// 规则:
// 1. 核心城市市区:小计满门槛免运费,否则基础运费
// 2. 核心城市远郊区:省内费率
// 3. 其他城市:全国费率
func CalculateFee(city, district string, subtotal int64) int64 {
	if coreCities[city] {
		if nearbyDistrictsOfCoreCity[district] {
			return feeProvince
		}
		if subtotal >= freeShippingThreshold {
			return feeInnerCity
		}
		return feeCityBase
	}
	return feeNationwide
}
