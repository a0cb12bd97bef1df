package storage

import "context"

// ChainTx — транзакционный снимок операций заказа. Проверка зависимостей
// и запись статуса обязаны происходить в одном снимке: сёстры читаются под
// блокировкой, коммит закрывает транзакцию. Контракт объявлен здесь, чтобы
// mysql его реализовал, а сервис цепочки потреблял, не зная о database/sql.
type ChainTx interface {
	GetOperation(ctx context.Context, id int64) (*OrderOperation, error)
	Siblings(ctx context.Context, orderID int64) ([]*OrderOperation, error)
	UpdateStatus(ctx context.Context, id int64, status OpStatus, actualTotal int) error
	UpdateVariantActual(ctx context.Context, variantID int64, actualQty int) error
	Commit() error
	Rollback() error
}
