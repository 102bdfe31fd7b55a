package service

import "math"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// (page-1)*size 不会溢出
	MaxPage = math.MaxInt / MaxPageSize
)

// Page 偏移分页的结果
type Page[T any] struct {
	Items    []T   `json:"results"`
	Total    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// normalizePage page 从 1 开始，size 默认 10，最大 100
func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func newPage[T any](items []T, total int64, page, size int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, Total: total, Page: page, PageSize: size}
}
