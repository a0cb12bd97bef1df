package constants

// Нормативы по типам изделий для расчёта потока:
// f — коэффициент потерь (невыходы, переналадка),
// S — площадь на одно рабочее место, м².
// Значения согласованы с технологами, по незнакомому типу берём дефолт.

type ProductFactors struct {
	F float64 // коэффициент потерь
	S float64 // м² на рабочее место
}

var ProductTypeFactors = map[string]ProductFactors{
	"suit":     {F: 1.08, S: 7.0},
	"jacket":   {F: 1.06, S: 6.5},
	"trousers": {F: 1.04, S: 5.5},
	"skirt":    {F: 1.04, S: 5.0},
	"shirt":    {F: 1.05, S: 5.0},
	"dress":    {F: 1.05, S: 6.0},
}

var DefaultFactors = ProductFactors{F: 1.05, S: 6.0}

// FactorsFor возвращает нормативы типа изделия или дефолтные.
func FactorsFor(productType string) ProductFactors {
	if f, ok := ProductTypeFactors[productType]; ok {
		return f
	}
	return DefaultFactors
}
