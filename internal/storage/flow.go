package storage

import "time"

type OrderStatus string

const (
	OrderAccepted   OrderStatus = "accepted"
	OrderInProgress OrderStatus = "in_progress"
	OrderDone       OrderStatus = "done"
)

type OpStatus string

const (
	OpPending    OpStatus = "pending"
	OpInProgress OpStatus = "in_progress"
	OpDone       OpStatus = "done"
)

type Category string

const (
	CategoryCutting Category = "cutting"
	CategorySewing  Category = "sewing"
	CategoryFinish  Category = "finish"
)

// FloorNone — признак отсутствия этажа (одноэтажный цех). В БД хранится как 0,
// чтобы уникальный ключ плана работал без NULL.
const FloorNone = 0

// FinishFloor — первый этаж закреплён за отделкой и не переназначается.
const FinishFloor = 1

type Order struct {
	ID          int64       `json:"id"`
	ClientID    int64       `json:"client_id"`
	TotalQty    int         `json:"total_qty"`
	Deadline    time.Time   `json:"deadline"`
	HasDeadline bool        `json:"has_deadline"`
	WorkshopID  int64       `json:"workshop_id"`
	FloorID     int         `json:"floor_id"`
	Status      OrderStatus `json:"status"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

type Workshop struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FloorsCount int    `json:"floors_count"` // 1 или 4
}

// Operation — справочная операция техпроцесса.
type Operation struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Category       Category `json:"category"`
	NormMinutes    float64  `json:"norm_minutes"`
	DefaultFloorID int      `json:"default_floor_id"`
	LockedToFloor  bool     `json:"locked_to_floor"`
}

// OrderOperation — единица исполнения: операция справочника, привязанная к заказу.
type OrderOperation struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"order_id"`
	OperationID int64     `json:"operation_id"`
	Category    Category  `json:"category"`
	SewerID     int64     `json:"sewer_id"`
	FloorID     int       `json:"floor_id"`
	Status      OpStatus  `json:"status"`
	PlannedQty  int       `json:"planned_qty"`
	ActualQty   int       `json:"actual_qty"`
	Variants    []Variant `json:"variants,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Variant — строка разбивки цвет × размер внутри операции.
type Variant struct {
	ID         int64  `json:"id"`
	Color      string `json:"color"`
	Size       string `json:"size"`
	PlannedQty int    `json:"planned_qty"`
	ActualQty  int    `json:"actual_qty"`
}

type Sewer struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	TechnologistID int64  `json:"technologist_id"`
	FloorID        int    `json:"floor_id"`
	CapacityPerDay int    `json:"capacity_per_day"`
}

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleManager      Role = "manager"
	RoleTechnologist Role = "technologist"
	RoleSewer        Role = "sewer"
)

// Principal — явный субъект запроса. Передаётся во все операции ядра,
// из контекста запроса его достаёт только middleware.
type Principal struct {
	Role    Role `json:"role"`
	FloorID int  `json:"floor_id"` // >0 — технолог закреплён за этажом
}

// Elevated — роли, которым разрешено применять план и откатывать статусы.
func (p Principal) Elevated() bool {
	return p.Role == RoleAdmin || p.Role == RoleManager
}
