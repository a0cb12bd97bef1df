package formula

import (
	"fmt"
	"sewing-flow/internal/constants"
	"sewing-flow/internal/storage"

	"github.com/shopspring/decimal"
)

// Расчёт потока по методикам ПЭО. Пакет чистый: никакого I/O,
// вся арифметика детерминирована и покрыта тестами по примерам технологов.

type Mode string

const (
	ByShiftCapacity Mode = "BY_SHIFT_CAPACITY" // по сменному выпуску
	ByWorkers       Mode = "BY_WORKERS"        // по числу рабочих
	ByWorkplaces    Mode = "BY_WORKPLACES"     // по рабочим местам
	ByArea          Mode = "BY_AREA"           // по площади потока
	ByTAndM         Mode = "BY_T_AND_M"        // по трудоёмкости и выпуску
)

const defaultShiftHours = 8

type Input struct {
	Mode        Mode    `json:"mode"`
	ShiftHours  float64 `json:"shift_hours"`
	ProductType string  `json:"product_type"`

	Msm float64 `json:"msm"` // сменный выпуск, ед
	T   float64 `json:"t"`   // суммарная трудоёмкость, сек
	Np  float64 `json:"np"`  // рабочих
	Kr  float64 `json:"kr"`  // рабочих мест
	Su  float64 `json:"su"`  // площадь потока, м²
	M   float64 `json:"m"`   // сменный выпуск для BY_T_AND_M, ед

	OperationTimeSec float64 `json:"operation_time_sec"`
}

// Result — все вычисленные величины, округлённые до двух знаков,
// плюс протокол вывода. Протокол — часть контракта: фронт показывает
// его технологу как обоснование расчёта.
type Result struct {
	R     float64  `json:"r"`            // длительность смены, сек
	Takt  float64  `json:"t,omitempty"`  // такт, сек/ед
	Np    float64  `json:"np,omitempty"` // рабочих
	Kr    float64  `json:"kr,omitempty"` // рабочих мест
	Nv    float64  `json:"nv,omitempty"` // норма выработки за смену, ед
	Notes []string `json:"notes"`

	// Прямая дневная мощность, если режим её определяет (Msm либо M).
	// Наружу не отдаётся, её читает только резолвер мощности.
	DirectCapacity float64 `json:"-"`
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func positive(name string, v float64) error {
	if v <= 0 {
		return &storage.ValidationError{Param: name, Reason: "должен быть > 0"}
	}
	return nil
}

// Calculate выполняет расчёт по выбранному режиму.
func Calculate(in Input) (*Result, error) {
	shiftHours := in.ShiftHours
	if shiftHours == 0 {
		shiftHours = defaultShiftHours
	}
	if shiftHours < 0 {
		return nil, &storage.ValidationError{Param: "shift_hours", Reason: "должен быть > 0"}
	}

	factors := constants.FactorsFor(in.ProductType)
	r := shiftHours * 3600

	res := &Result{R: r}
	res.Notes = append(res.Notes, fmt.Sprintf("R = %g × 3600 = %g сек", shiftHours, r))

	switch in.Mode {
	case ByShiftCapacity:
		if err := positive("msm", in.Msm); err != nil {
			return nil, err
		}
		res.Takt = round2(r / in.Msm)
		res.DirectCapacity = in.Msm
		res.Notes = append(res.Notes, fmt.Sprintf("t = R / Mсм = %g / %g = %.2f сек/ед", r, in.Msm, res.Takt))

	case ByWorkers:
		if err := positive("t", in.T); err != nil {
			return nil, err
		}
		if err := positive("np", in.Np); err != nil {
			return nil, err
		}
		res.Takt = round2(in.T / in.Np)
		res.Notes = append(res.Notes, fmt.Sprintf("t = T / Nр = %g / %g = %.2f сек/ед", in.T, in.Np, res.Takt))

	case ByWorkplaces:
		if err := positive("kr", in.Kr); err != nil {
			return nil, err
		}
		res.Np = round2(in.Kr / factors.F)
		res.Notes = append(res.Notes, fmt.Sprintf("Nр = Kр / f = %g / %g = %.2f", in.Kr, factors.F, res.Np))

	case ByArea:
		if err := positive("su", in.Su); err != nil {
			return nil, err
		}
		kr := in.Su / factors.S
		res.Kr = round2(kr)
		res.Np = round2(kr / factors.F)
		res.Notes = append(res.Notes, fmt.Sprintf("Kр = Sу / S = %g / %g = %.2f", in.Su, factors.S, res.Kr))
		res.Notes = append(res.Notes, fmt.Sprintf("Nр = Kр / f = %.2f / %g = %.2f", res.Kr, factors.F, res.Np))

	case ByTAndM:
		if err := positive("t", in.T); err != nil {
			return nil, err
		}
		if err := positive("m", in.M); err != nil {
			return nil, err
		}
		res.Np = round2(in.T * in.M / r)
		res.Takt = round2(r / in.M)
		res.DirectCapacity = in.M
		res.Notes = append(res.Notes, fmt.Sprintf("Nр = T × M / R = %g × %g / %g = %.2f", in.T, in.M, r, res.Np))
		res.Notes = append(res.Notes, fmt.Sprintf("t = R / M = %g / %g = %.2f сек/ед", r, in.M, res.Takt))

	default:
		return nil, &storage.ValidationError{Param: "mode", Reason: fmt.Sprintf("неизвестный режим расчёта %q", in.Mode)}
	}

	if in.OperationTimeSec < 0 {
		return nil, &storage.ValidationError{Param: "operation_time_sec", Reason: "должен быть > 0"}
	}
	if in.OperationTimeSec > 0 {
		res.Nv = round2(r / in.OperationTimeSec)
		res.Notes = append(res.Notes, fmt.Sprintf("Nв = R / tоп = %g / %g = %.2f ед/смену", r, in.OperationTimeSec, res.Nv))
	}

	return res, nil
}
