package calendar

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page описывает одну страницу элементов.
type Page[T any] struct {
	Items    []T // элементы на текущей странице
	Page     int // номер страницы (с 1)
	PageSize int // количество элементов на странице
	HasNext  bool
	HasPrev  bool
	Total    int // общее количество элементов
}

// NormalizePage приводит номер и размер страницы к допустимым значениям.
func NormalizePage(page, pageSize int) (int, int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	return page, pageSize
}

// Offset — смещение для LIMIT/OFFSET запроса.
func Offset(page, pageSize int) int {
	page, pageSize = NormalizePage(page, pageSize)
	return (page - 1) * pageSize
}

// FromTotal собирает страницу, уже вырезанную запросом к БД.
func FromTotal[T any](items []T, page, pageSize int, total int64) Page[T] {
	page, pageSize = NormalizePage(page, pageSize)
	return Page[T]{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		HasNext:  int64(page*pageSize) < total,
		HasPrev:  page > 1,
		Total:    int(total),
	}
}
